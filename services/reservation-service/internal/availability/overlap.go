package availability

import "github.com/unemi/sportsmap/services/reservation-service/internal/reservation"

// Overlap is a pair of reservations of one facility whose intervals intersect.
// First precedes Second in the input list.
type Overlap struct {
	First  reservation.Reservation
	Second reservation.Reservation
}

// Overlaps lists every intersecting pair for code. An empty code checks all
// facilities, pairing only reservations that share a facility.
func Overlaps(code string, all []reservation.Reservation) []Overlap {
	var out []Overlap
	for i := range all {
		a := all[i]
		if code != "" && a.FacilityCode != code {
			continue
		}
		for j := i + 1; j < len(all); j++ {
			b := all[j]
			if b.FacilityCode != a.FacilityCode {
				continue
			}
			if intervalOf(a).Overlaps(intervalOf(b)) {
				out = append(out, Overlap{First: a, Second: b})
			}
		}
	}
	return out
}
