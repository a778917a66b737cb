// Package snapshot keeps the current reservation list and replaces it
// wholesale from a Source on a fixed interval.
package snapshot

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/unemi/sportsmap/services/reservation-service/internal/reservation"
)

var ErrNotLoaded = errors.New("reservation snapshot not loaded")

// Rejection describes an upstream record that could not be normalized.
type Rejection struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// Snapshot is an immutable reservation list. Callers must not modify the
// Reservations slice.
type Snapshot struct {
	Reservations []reservation.Reservation `json:"reservations"`
	FetchedAt    time.Time                 `json:"fetched_at"`
	Rejected     []Rejection               `json:"rejected,omitempty"`
	Inverted     int                       `json:"inverted"`
}

// Find returns the reservation with id.
func (s *Snapshot) Find(id int64) (reservation.Reservation, bool) {
	for _, r := range s.Reservations {
		if r.ID == id {
			return r, true
		}
	}
	return reservation.Reservation{}, false
}

type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store { return &Store{} }

// Current returns the latest snapshot, or nil before the first load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reservations returns the current list, empty before the first load.
func (s *Store) Reservations() []reservation.Reservation {
	if snap := s.current.Load(); snap != nil {
		return snap.Reservations
	}
	return nil
}

// Replace installs next as the current snapshot. Callers serialize
// replacements themselves.
func (s *Store) Replace(next *Snapshot) {
	s.current.Store(next)
}

// Restore installs next only while the store is still empty.
func (s *Store) Restore(next *Snapshot) bool {
	return s.current.CompareAndSwap(nil, next)
}

// ReadyCheck fails until a snapshot is loaded.
func (s *Store) ReadyCheck(context.Context) error {
	if s.current.Load() == nil {
		return ErrNotLoaded
	}
	return nil
}

// FromBatch builds a snapshot out of a normalized batch.
func FromBatch(b reservation.Batch, fetchedAt time.Time) *Snapshot {
	snap := &Snapshot{
		Reservations: b.Reservations,
		FetchedAt:    fetchedAt,
		Inverted:     b.Inverted,
	}
	for _, rej := range b.Rejected {
		snap.Rejected = append(snap.Rejected, Rejection{ID: rej.ID, Reason: rej.Err.Error()})
	}
	return snap
}
