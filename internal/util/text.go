package util

import "unicode/utf8"

// Truncate returns the first max runes of s. A max of zero or less disables
// truncation.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}

	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}

	return s
}
