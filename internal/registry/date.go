package registry

import "time"

const dateLayout = "2006-01-02"

// validDate reports whether s is a real calendar date in YYYY-MM-DD form.
// Dates in that form compare correctly as plain strings, so ordering rules
// use lexicographic comparison.
func validDate(s string) bool {
	if len(s) != len(dateLayout) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
