// Package utils holds small text helpers used by the CLI output layer.
package utils

import (
	"strings"
)

// Truncate returns s shortened to maxLen runes, with "..." marking the cut.
// Counting runes keeps multi-byte titles from being split mid-character.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// ToTitle converts the first character of a string to uppercase.
func ToTitle(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
