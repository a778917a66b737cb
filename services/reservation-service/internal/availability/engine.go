// Package availability derives per-hour and per-day availability of a
// facility from a flat list of reservations. Every function is pure and
// safe for concurrent use; none of them retains its inputs.
package availability

import (
	"time"

	"github.com/unemi/sportsmap/services/reservation-service/internal/reservation"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	// StatusMaintenance is part of the vocabulary but never produced yet.
	StatusMaintenance Status = "maintenance"
)

// Display window used for the calendar slot rows.
const (
	DefaultStartHour = 8
	DefaultEndHour   = 19
)

// Operating window used for the aggregate day status. It ends an hour later
// than the display window.
const (
	operatingStartHour = 8
	operatingEndHour   = 20
	// 90% of the 720 minute operating window.
	reservedThreshold = 648 * time.Minute
)

// Slot is one hour of a facility's day.
type Slot struct {
	Start       time.Time
	End         time.Time
	Status      Status
	Reservation *reservation.Reservation
	// Overlapping holds further reservations that also cover Start. The
	// first covering reservation in list order wins Reservation.
	Overlapping []reservation.Reservation
}

// ForDay returns the reservations of code that intersect date's calendar day,
// in input order.
func ForDay(code string, date time.Time, all []reservation.Reservation) []reservation.Reservation {
	day := Day(date)
	var out []reservation.Reservation
	for _, r := range all {
		if r.FacilityCode != code {
			continue
		}
		if r.Start.Before(day.End) && r.End.After(day.Start) {
			out = append(out, r)
		}
	}
	return out
}

// HourlySlots builds one slot per hour in [startHour, endHour) of date. A slot
// is reserved when some reservation covers its top of the hour, so a
// reservation shorter than an hour still marks the whole hour.
func HourlySlots(code string, date time.Time, all []reservation.Reservation, startHour, endHour int) []Slot {
	if endHour <= startHour {
		return nil
	}
	day := ForDay(code, date, all)
	slots := make([]Slot, 0, endHour-startHour)
	for h := startHour; h < endHour; h++ {
		start := atHour(date, h)
		slot := Slot{Start: start, End: start.Add(time.Hour), Status: StatusAvailable}
		for i := range day {
			if !day[i].Covers(start) {
				continue
			}
			if slot.Reservation == nil {
				r := day[i]
				slot.Reservation = &r
				slot.Status = StatusReserved
				continue
			}
			slot.Overlapping = append(slot.Overlapping, day[i])
		}
		slots = append(slots, slot)
	}
	return slots
}

// DefaultSlots is HourlySlots over the 8:00-19:00 display window.
func DefaultSlots(code string, date time.Time, all []reservation.Reservation) []Slot {
	return HourlySlots(code, date, all, DefaultStartHour, DefaultEndHour)
}

// ReservedMinutes sums the reserved time of code inside date's operating
// window [08:00, 20:00). Overlapping reservations are counted twice.
func ReservedMinutes(code string, date time.Time, all []reservation.Reservation) time.Duration {
	window := Interval{Start: atHour(date, operatingStartHour), End: atHour(date, operatingEndHour)}
	var total time.Duration
	for _, r := range ForDay(code, date, all) {
		if clipped, ok := intervalOf(r).Clip(window); ok {
			total += clipped.End.Sub(clipped.Start)
		}
	}
	return total
}

// DayStatus is reserved when at least 90% of the operating window is booked.
func DayStatus(code string, date time.Time, all []reservation.Reservation) Status {
	if ReservedMinutes(code, date, all) >= reservedThreshold {
		return StatusReserved
	}
	return StatusAvailable
}

// IsReservedAt reports whether any reservation of code covers instant.
func IsReservedAt(code string, instant time.Time, all []reservation.Reservation) bool {
	for _, r := range all {
		if r.FacilityCode == code && r.Covers(instant) {
			return true
		}
	}
	return false
}
