package log

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/techblogs/skillfeed/utils/dotenv"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// This init function is only for testing cases, where the entry point is not
// main function. Unit test will fail with nil pointer dereference if we don't
// init here.
func init() {
	InitLogger()
}

func InitLogger() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	isDevelopment := os.Getenv("SKILLFEED_ENV") != dotenv.ProdEnv
	if !isDevelopment {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	Log = logger.WithFields(
		logrus.Fields{"client": "skillfeed", "is_development": isDevelopment},
	)
}
