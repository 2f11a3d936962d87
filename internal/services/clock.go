package services

import "time"

// Clock is injected so tests can pin "now".
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
