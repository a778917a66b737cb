// Package calendar composes availability into the 3-day, week and month
// views. The current time is always passed in; nothing here reads the clock.
package calendar

import (
	"time"

	"github.com/unemi/sportsmap/services/reservation-service/internal/availability"
	"github.com/unemi/sportsmap/services/reservation-service/internal/reservation"
)

// Cell is one hour of one day. Disabled cells lie in the past.
type Cell struct {
	availability.Slot
	Disabled bool
}

type Day struct {
	Date  time.Time
	Today bool
	Cells []Cell
}

type MonthCell struct {
	Date    time.Time
	Status  availability.Status
	InMonth bool
	Past    bool
	Today   bool
}

// Disabled reports whether the cell cannot be selected.
func (c MonthCell) Disabled() bool { return !c.InMonth || c.Past }

type Month struct {
	// First is the first day of the month.
	First         time.Time
	Cells         []MonthCell
	CanGoPrevious bool
}

// NextDays returns n consecutive calendar days starting at start's day.
func NextDays(start time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	first := midnight(start)
	days := make([]time.Time, n)
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}
	return days
}

// ThreeDay lays out from and the two following days.
func ThreeDay(code string, from time.Time, all []reservation.Reservation, now time.Time) []Day {
	return hourly(code, NextDays(from, 3), all, now)
}

// Week lays out the Monday to Sunday week containing date.
func Week(code string, date time.Time, all []reservation.Reservation, now time.Time) []Day {
	return hourly(code, NextDays(weekStart(date), 7), all, now)
}

// MonthOf builds the month grid containing date. The grid starts on the
// Monday on or before the 1st and ends on the Sunday on or after the last
// day, so it always holds whole weeks.
func MonthOf(code string, date time.Time, all []reservation.Reservation, now time.Time) Month {
	first := firstOfMonth(date)
	last := first.AddDate(0, 1, -1)
	start := weekStart(first)
	end := weekStart(last).AddDate(0, 0, 6)

	today := midnight(now.In(date.Location()))
	var cells []MonthCell
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		cells = append(cells, MonthCell{
			Date:    d,
			Status:  availability.DayStatus(code, d, all),
			InMonth: d.Month() == first.Month(),
			Past:    d.Before(today),
			Today:   d.Equal(today),
		})
	}
	return Month{
		First:         first,
		Cells:         cells,
		CanGoPrevious: first.After(firstOfMonth(today)),
	}
}

func hourly(code string, days []time.Time, all []reservation.Reservation, now time.Time) []Day {
	out := make([]Day, 0, len(days))
	for _, d := range days {
		local := now.In(d.Location())
		today := midnight(local)
		day := Day{Date: d, Today: d.Equal(today)}
		for _, slot := range availability.DefaultSlots(code, d, all) {
			disabled := d.Before(today) || (day.Today && slot.Start.Hour() < local.Hour())
			day.Cells = append(day.Cells, Cell{Slot: slot, Disabled: disabled})
		}
		out = append(out, day)
	}
	return out
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func firstOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func weekStart(t time.Time) time.Time {
	back := (int(t.Weekday()) + 6) % 7
	return midnight(t).AddDate(0, 0, -back)
}
