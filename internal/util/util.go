// Package util provides string helpers for host command arguments.
package util

import "strings"

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// Unquote undoes host string quoting: a value wrapped in double quotes has
// the wrapper removed and its doubled inner quotes collapsed. Anything else is
// returned unchanged, so raw JSON survives.
func Unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	return FixEscapeQuotes(s[1 : len(s)-1])
}

// SplitCommand splits "CMD|arg1|arg2" into the command and its arguments.
func SplitCommand(s string) (string, []string) {
	parts := strings.Split(s, "|")
	return parts[0], parts[1:]
}
