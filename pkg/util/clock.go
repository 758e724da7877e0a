package util

import "time"

// Clock supplies the informational timestamps stamped onto orders and
// events. It never participates in priority; tests swap it to prove that.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
