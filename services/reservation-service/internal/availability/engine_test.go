package availability

import (
	"testing"
	"time"

	"github.com/unemi/sportsmap/services/reservation-service/internal/reservation"
)

var loc = time.FixedZone("ECT", -5*3600)

func at(day, hour, min int) time.Time {
	return time.Date(2024, 5, day, hour, min, 0, 0, loc)
}

func res(id int64, code string, start, end time.Time) reservation.Reservation {
	return reservation.Reservation{ID: id, FacilityCode: code, Start: start, End: end}
}

func TestIsReservedAtHalfOpen(t *testing.T) {
	r := res(1, "Gimnasio", at(1, 9, 0), at(1, 10, 0))
	all := []reservation.Reservation{r}

	cases := []struct {
		instant time.Time
		want    bool
	}{
		{at(1, 8, 59), false},
		{at(1, 9, 0), true},
		{at(1, 9, 59), true},
		{at(1, 10, 0), false},
		{at(1, 10, 1), false},
	}
	for _, tc := range cases {
		if got := IsReservedAt("Gimnasio", tc.instant, all); got != tc.want {
			t.Fatalf("IsReservedAt(%s) = %v, want %v", tc.instant.Format("15:04"), got, tc.want)
		}
	}
	if IsReservedAt("Piscina", at(1, 9, 30), all) {
		t.Fatal("other facilities must not be reserved")
	}
}

func TestDayStatusEmpty(t *testing.T) {
	if got := DayStatus("Gimnasio", at(1, 0, 0), nil); got != StatusAvailable {
		t.Fatalf("expected available, got %s", got)
	}
}

func TestDayStatusThreshold(t *testing.T) {
	// 648 of 720 minutes is exactly 90%.
	reserved := []reservation.Reservation{
		res(1, "Estadio", at(1, 8, 0), at(1, 14, 0)),
		res(2, "Estadio", at(1, 14, 0), at(1, 18, 48)),
	}
	if got := DayStatus("Estadio", at(1, 12, 0), reserved); got != StatusReserved {
		t.Fatalf("648 minutes: expected reserved, got %s", got)
	}

	short := []reservation.Reservation{
		res(1, "Estadio", at(1, 8, 0), at(1, 14, 0)),
		res(2, "Estadio", at(1, 14, 0), at(1, 18, 47)),
	}
	if got := DayStatus("Estadio", at(1, 12, 0), short); got != StatusAvailable {
		t.Fatalf("647 minutes: expected available, got %s", got)
	}
}

func TestReservedMinutesClipsToOperatingWindow(t *testing.T) {
	all := []reservation.Reservation{
		res(1, "Piscina", at(1, 6, 0), at(1, 9, 0)),    // 60 inside
		res(2, "Piscina", at(1, 19, 30), at(1, 22, 0)), // 30 inside
		res(3, "Piscina", at(1, 20, 0), at(1, 21, 0)),  // outside
		res(4, "Piscina", at(0, 22, 0), at(1, 8, 30)),  // 30 inside, starts the day before
		res(5, "Gimnasio", at(1, 10, 0), at(1, 12, 0)), // other facility
		res(6, "Piscina", at(2, 8, 0), at(2, 20, 0)),   // other day
	}
	if got := ReservedMinutes("Piscina", at(1, 0, 0), all); got != 120*time.Minute {
		t.Fatalf("expected 120 minutes, got %s", got)
	}

	whole := []reservation.Reservation{res(1, "Piscina", at(1, 7, 0), at(1, 21, 0))}
	if got := DayStatus("Piscina", at(1, 0, 0), whole); got != StatusReserved {
		t.Fatalf("expected reserved for whole window, got %s", got)
	}
}

func TestHourlySlotsPartialHour(t *testing.T) {
	all := []reservation.Reservation{res(1, "Gimnasio", at(1, 10, 0), at(1, 10, 30))}
	slots := HourlySlots("Gimnasio", at(1, 0, 0), all, 8, 19)
	if len(slots) != 11 {
		t.Fatalf("expected 11 slots, got %d", len(slots))
	}
	byHour := map[int]Slot{}
	for _, s := range slots {
		byHour[s.Start.Hour()] = s
	}
	if byHour[10].Status != StatusReserved {
		t.Fatalf("10:00 slot should be reserved")
	}
	if byHour[9].Status != StatusAvailable || byHour[11].Status != StatusAvailable {
		t.Fatalf("9:00 and 11:00 slots should be available")
	}
}

func TestHourlySlotsScenario(t *testing.T) {
	all := []reservation.Reservation{res(42, "Gimnasio", at(1, 9, 0), at(1, 10, 0))}
	slots := DefaultSlots("Gimnasio", at(1, 15, 37), all)
	if len(slots) != 11 {
		t.Fatalf("expected 11 slots, got %d", len(slots))
	}
	if slots[1].Status != StatusReserved || slots[1].Reservation == nil || slots[1].Reservation.ID != 42 {
		t.Fatalf("09:00 slot should carry reservation 42, got %+v", slots[1])
	}
	for i, s := range slots {
		if i == 1 {
			continue
		}
		if s.Status != StatusAvailable || s.Reservation != nil {
			t.Fatalf("slot %d should be available without reservation, got %+v", i, s)
		}
	}
	if !slots[0].Start.Equal(at(1, 8, 0)) || !slots[0].End.Equal(at(1, 9, 0)) {
		t.Fatalf("slot bounds must be hour aligned, got %s-%s", slots[0].Start, slots[0].End)
	}
}

func TestHourlySlotsMidHourStart(t *testing.T) {
	// 9:30-11:15 covers the tops of 10:00 and 11:00 only.
	all := []reservation.Reservation{res(1, "Gimnasio", at(1, 9, 30), at(1, 11, 15))}
	slots := HourlySlots("Gimnasio", at(1, 0, 0), all, 9, 12)
	want := []Status{StatusAvailable, StatusReserved, StatusReserved}
	for i, s := range slots {
		if s.Status != want[i] {
			t.Fatalf("slot %s: expected %s, got %s", s.Start.Format("15:04"), want[i], s.Status)
		}
	}
}

func TestHourlySlotsFirstMatchWinsAndReportsOverlap(t *testing.T) {
	all := []reservation.Reservation{
		res(7, "Futbol 11", at(1, 9, 0), at(1, 11, 0)),
		res(3, "Futbol 11", at(1, 10, 0), at(1, 12, 0)),
	}
	slots := HourlySlots("Futbol 11", at(1, 0, 0), all, 10, 11)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if slots[0].Reservation.ID != 7 {
		t.Fatalf("first reservation in list order should win, got %d", slots[0].Reservation.ID)
	}
	if len(slots[0].Overlapping) != 1 || slots[0].Overlapping[0].ID != 3 {
		t.Fatalf("expected reservation 3 reported as overlapping, got %+v", slots[0].Overlapping)
	}
}

func TestHourlySlotsEmptyWindow(t *testing.T) {
	if got := HourlySlots("Gimnasio", at(1, 0, 0), nil, 12, 12); got != nil {
		t.Fatalf("expected no slots, got %d", len(got))
	}
}

func TestForDayHalfOpenAndOrdered(t *testing.T) {
	all := []reservation.Reservation{
		res(1, "Gimnasio", at(1, 15, 0), at(1, 16, 0)),
		res(2, "Gimnasio", at(0, 23, 0), at(1, 0, 0)), // ends exactly at midnight
		res(3, "Gimnasio", at(1, 23, 0), at(2, 1, 0)),
		res(4, "Gimnasio", at(2, 0, 0), at(2, 1, 0)), // starts exactly at next midnight
		res(5, "Gimnasio", at(1, 8, 0), at(1, 9, 0)),
	}
	got := ForDay("Gimnasio", at(1, 12, 0), all)
	if len(got) != 3 || got[0].ID != 1 || got[1].ID != 3 || got[2].ID != 5 {
		t.Fatalf("unexpected reservations for day: %+v", got)
	}
}

func TestOverlaps(t *testing.T) {
	all := []reservation.Reservation{
		res(1, "Gimnasio", at(1, 9, 0), at(1, 10, 0)),
		res(2, "Gimnasio", at(1, 10, 0), at(1, 11, 0)), // touches, no overlap
		res(3, "Gimnasio", at(1, 9, 30), at(1, 10, 30)),
		res(4, "Piscina", at(1, 9, 0), at(1, 10, 0)),
	}
	got := Overlaps("Gimnasio", all)
	if len(got) != 2 {
		t.Fatalf("expected 2 overlaps, got %d", len(got))
	}
	if got[0].First.ID != 1 || got[0].Second.ID != 3 || got[1].First.ID != 2 || got[1].Second.ID != 3 {
		t.Fatalf("unexpected overlaps: %+v", got)
	}
	if len(Overlaps("", all)) != 2 {
		t.Fatal("cross-facility pairs must not be reported")
	}
}
