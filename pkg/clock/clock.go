package clock

import "time"

// Clock is the time source used for date-dependent decisions.
type Clock interface {
	Now() time.Time
}

type system struct{}

func NewSystem() Clock { return system{} }

func (system) Now() time.Time { return time.Now().UTC() }

type fixed struct{ t time.Time }

func NewFixed(t time.Time) Clock { return fixed{t: t.UTC()} }

func (f fixed) Now() time.Time { return f.t }

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
