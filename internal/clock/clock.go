package clock

import "time"

// Clock supplies the current time. Services take it as a dependency so
// date-window checks are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock in UTC.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC()
}
