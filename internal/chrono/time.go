package chrono

import (
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().UTC()
}

// FrozenTime always returns the same instant, it can be moved forward with Advance.
type FrozenTime struct {
	now time.Time
}

func NewFrozenTime(now time.Time) *FrozenTime {
	return &FrozenTime{now: now}
}

func (f *FrozenTime) Now() time.Time {
	return f.now
}

func (f *FrozenTime) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}
