package statistics

import "time"

// BucketSize is the only aggregation granularity the long-term tier stores.
const BucketSize = time.Hour

// HourFloor truncates t to the start of its hour bucket in UTC.
// Example: HourFloor(10:35:42) → 10:00:00
func HourFloor(t time.Time) time.Time {
	return t.UTC().Truncate(BucketSize)
}
