package tools

import "time"

// TimeDurationOrDefault returns a time.Duration from the given seconds, or
// a default of 60 seconds if seconds is 0. Negative values disable the
// timeout.
func TimeDurationOrDefault(seconds int) (dTimeout time.Duration) {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}
