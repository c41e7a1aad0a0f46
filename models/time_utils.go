package models

import "time"

const day = 24 * time.Hour

// ExpectedPoints estimates how many samples the provider returns for a lookback
// of the given number of days at the given sampling step.
func ExpectedPoints(step time.Duration, days int) int {
	if step <= 0 || days <= 0 {
		return 0
	}
	return int(time.Duration(days) * day / step)
}

// RangeStart returns the beginning of a lookback window ending at end.
func RangeStart(end time.Time, days int) time.Time {
	return end.Add(-time.Duration(days) * day)
}
