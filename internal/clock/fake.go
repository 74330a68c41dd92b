package clock

import "time"

// FakeClock is a manually driven Clock for tests. It only moves when
// told to, so retention windows and SLA deadlines can be crossed
// deterministically.
type FakeClock struct {
	current time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start.UTC()}
}

func (f *FakeClock) Now() time.Time {
	return f.current
}

// Advance moves the clock forward by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}

// SetNow pins the clock to a specific instant.
func (f *FakeClock) SetNow(t time.Time) {
	f.current = t.UTC()
}
