package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for registration dates and notification
// timestamps.
// Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// dateLayout is the YYYY-MM-DD layout used for registration and snapshot dates.
const dateLayout = "2006-01-02"

// Today returns the current UTC date as YYYY-MM-DD.
func Today() string {
	return DateOf(clock.Now())
}

// DateOf returns t's UTC date as YYYY-MM-DD.
func DateOf(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
