package common

import (
	"regexp"
	"strings"
)

// KeywordPattern returns a case-insensitive regular expression that matches
// keyword literally anywhere in a string.
func KeywordPattern(keyword string) string {
	return "(?i)" + regexp.QuoteMeta(strings.TrimSpace(keyword))
}
