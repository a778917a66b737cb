package reservation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/unemi/sportsmap/services/reservation-service/internal/facility"
)

const dateLayout = "2006-01-02"

// Normalize combines the record's calendar date with its start and end
// times of day in loc and resolves the facility code.
func Normalize(rec Record, loc *time.Location) (Reservation, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(rec.Fecha), loc)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %d: invalid date %q: %w", rec.ID, rec.Fecha, err)
	}
	start, err := atClock(day, rec.HoraInicio)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %d: invalid start time: %w", rec.ID, err)
	}
	end, err := atClock(day, rec.HoraFin)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %d: invalid end time: %w", rec.ID, err)
	}

	return Reservation{
		ID:           rec.ID,
		FacilityCode: facility.CodeFor(rec.Area.Nombre),
		FacilityName: rec.Area.Nombre,
		Start:        start,
		End:          end,
		Responsible:  rec.Responsable,
		IDDocument:   rec.Cedula,
		Activity:     rec.Actividad,
		Profile:      rec.Perfil.Nombre,
		Discipline:   rec.Disciplina.Nombre,
		Career:       rec.Carrera.Nombre,
		Modality:     rec.Modalidad.Nombre,
	}, nil
}

// atClock parses "H:M" or "H:M:S" and places it on day. Out of range values
// roll over the way time.Date normalizes them.
func atClock(day time.Time, clock string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, fmt.Errorf("%q is not H:M or H:M:S", clock)
	}
	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("%q is not H:M or H:M:S", clock)
		}
		fields[i] = n
	}
	return time.Date(day.Year(), day.Month(), day.Day(), fields[0], fields[1], fields[2], 0, day.Location()), nil
}

// RecordError is a record that could not be normalized.
type RecordError struct {
	ID  int64
	Err error
}

func (e RecordError) Error() string { return e.Err.Error() }

func (e RecordError) Unwrap() error { return e.Err }

// Batch is the result of normalizing one full upstream list.
type Batch struct {
	Reservations []Reservation
	Rejected     []RecordError
	// Inverted counts kept reservations whose end is not after their start.
	Inverted int
}

// NormalizeBatch normalizes every record independently. A bad record is
// reported and skipped and never affects the others. Order is preserved.
func NormalizeBatch(records []Record, loc *time.Location) Batch {
	b := Batch{Reservations: make([]Reservation, 0, len(records))}
	for _, rec := range records {
		r, err := Normalize(rec, loc)
		if err != nil {
			b.Rejected = append(b.Rejected, RecordError{ID: rec.ID, Err: err})
			continue
		}
		if !r.End.After(r.Start) {
			b.Inverted++
		}
		b.Reservations = append(b.Reservations, r)
	}
	return b
}
