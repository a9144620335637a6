package davclient

import (
	"time"

	davxml "github.com/cyp0633/calsync/internal/xml"
)

// DefaultWindowDays is used for both sides of the window when no override
// is configured.
const DefaultWindowDays = 90

// Window is the sync time range around now, in whole days.
type Window struct {
	PastDays   int
	FutureDays int
}

// DefaultWindow returns the 90 days back, 90 days ahead window.
func DefaultWindow() Window {
	return Window{PastDays: DefaultWindowDays, FutureDays: DefaultWindowDays}
}

// Range returns the window anchored at now, in UTC.
func (w Window) Range(now time.Time) (start, end time.Time) {
	now = now.UTC()
	return now.AddDate(0, 0, -w.PastDays), now.AddDate(0, 0, w.FutureDays)
}

func (w Window) timeRange(now time.Time) *davxml.TimeRange {
	start, end := w.Range(now)
	return &davxml.TimeRange{Start: start, End: end}
}
