package web

import (
	"fmt"
	"time"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// parseTime accepts RFC3339 and the datetime-local form layout.
func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
