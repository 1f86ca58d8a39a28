/*
flag Package set up cli flags shared across commands

Usage:

	Flags listed in this package are shared across command boundaries.
	For command dependent flags please define in their respective package.
*/

package flag

import (
	"flag"
)

const (
	DefaultApiBase = "http://localhost:8080"
)

var (
	IsDevelopment bool
	ApiBase       string
)

func init() {
	flag.BoolVar(&IsDevelopment, "dev", true, "set to true if the current run is for development. default value is true")
	flag.StringVar(&ApiBase, "api", DefaultApiBase, "base url of the skill-sharing platform API")
}
