// Package system holds the wall-clock implementation injected everywhere a
// component takes a Clock.
package system

import "time"

// Clock reads the system time, normalized to UTC so stored timestamps and
// retention cutoffs compare cleanly.
type Clock struct{}

// New returns the system clock.
func New() *Clock {
	return &Clock{}
}

// Now reports the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
