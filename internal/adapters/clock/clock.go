package clock

import "time"

// System implements ports.Clock using the wall clock.
type System struct{}

// Now returns the current local time. The daily trade limit resets on the
// local calendar date, matching the record timestamps.
func (System) Now() time.Time {
	return time.Now()
}
