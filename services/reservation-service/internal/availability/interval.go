package availability

import (
	"time"

	"github.com/unemi/sportsmap/services/reservation-service/internal/reservation"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [a.Start,a.End) and [b.Start,b.End) intersect:
// a.Start < b.End && b.Start < a.End.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Clip returns the part of a inside window and whether it is non-empty.
func (a Interval) Clip(window Interval) (Interval, bool) {
	start := a.Start
	if window.Start.After(start) {
		start = window.Start
	}
	end := a.End
	if window.End.Before(end) {
		end = window.End
	}
	if !start.Before(end) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

func intervalOf(r reservation.Reservation) Interval {
	return Interval{Start: r.Start, End: r.End}
}

// atHour is date's calendar day at h:00:00 in date's location.
func atHour(date time.Time, h int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, h, 0, 0, 0, date.Location())
}

// Day is the half-open range covering date's calendar day.
func Day(date time.Time) Interval {
	start := atHour(date, 0)
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}
