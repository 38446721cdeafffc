// Package system provides the wall-clock implementation of the Clock interface.
package system

import "time"

// Clock returns the current time from the operating system.
type Clock struct{}

// New returns a system clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (c *Clock) Now() time.Time {
	return time.Now().UTC()
}
