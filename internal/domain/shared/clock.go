package shared

import "time"

// Clock supplies the current wall-clock time
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now in a fixed location
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock creates a clock reporting time in loc (UTC when nil)
func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{Location: loc}
}

// Now returns the current time in the clock's location
func (c SystemClock) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time {
	return f()
}
