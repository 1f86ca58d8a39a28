package utils

// ContainsString returns true iff the provided string slice hay contains string
// needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

// UniqueNonEmpty deduplicates a string slice preserving first-seen order,
// dropping empty entries.
func UniqueNonEmpty(values []string) []string {
	seen := make(map[string]bool, len(values))
	res := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		res = append(res, v)
	}
	return res
}
