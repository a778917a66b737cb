package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/unemi/sportsmap/services/reservation-service/internal/reservation"
)

type fakeSource struct {
	mu      sync.Mutex
	records []reservation.Record
	err     error
}

func (f *fakeSource) Fetch(context.Context) ([]reservation.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records, f.err
}

type memCache struct {
	snap  *Snapshot
	saves int
}

func (c *memCache) Load(context.Context) (*Snapshot, error) { return c.snap, nil }

func (c *memCache) Save(_ context.Context, s *Snapshot) error {
	c.snap = s
	c.saves++
	return nil
}

type recordingNotifier struct{ got []*Snapshot }

func (n *recordingNotifier) SnapshotReplaced(_ context.Context, s *Snapshot) error {
	n.got = append(n.got, s)
	return nil
}

type countingMetrics struct{ ok, failed int }

func (m *countingMetrics) PollSucceeded(time.Duration, int, int, int, time.Time) { m.ok++ }
func (m *countingMetrics) PollFailed(time.Duration)                              { m.failed++ }

func record(id int64, area, date, from, to string) reservation.Record {
	return reservation.Record{
		ID: id, Area: reservation.Named{Nombre: area},
		Fecha: date, HoraInicio: from, HoraFin: to,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefreshReplacesAndKeepsPreviousOnFailure(t *testing.T) {
	src := &fakeSource{records: []reservation.Record{
		record(1, "Gimnasio", "2024-05-01", "09:00", "10:00"),
		record(2, "Cancha de fútbol 11", "bad-date", "09:00", "10:00"),
		record(3, "Piscina", "2024-05-01", "11:00", "10:00"),
	}}
	store := NewStore()
	cache := &memCache{}
	notifier := &recordingNotifier{}
	metrics := &countingMetrics{}
	loaded := 0
	p := NewPoller(store, src, testLogger(), PollerConfig{
		Location: time.UTC,
		Cache:    cache,
		Notifier: notifier,
		Metrics:  metrics,
		OnLoaded: func() { loaded++ },
	})

	if err := store.ReadyCheck(context.Background()); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded before first poll, got %v", err)
	}

	snap, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(snap.Reservations) != 2 || len(snap.Rejected) != 1 || snap.Rejected[0].ID != 2 || snap.Inverted != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if store.ReadyCheck(context.Background()) != nil {
		t.Fatal("store should be ready")
	}
	if cache.saves != 1 || len(notifier.got) != 1 || metrics.ok != 1 {
		t.Fatalf("expected cache save, notification and metric: %d %d %d", cache.saves, len(notifier.got), metrics.ok)
	}

	src.err = errors.New("upstream down")
	if _, err := p.Refresh(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if store.Current() != snap {
		t.Fatal("previous snapshot must be kept on failure")
	}
	if metrics.failed != 1 || cache.saves != 1 || len(notifier.got) != 1 {
		t.Fatal("failed poll must not save or notify")
	}

	src.err = nil
	if _, err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if loaded != 1 {
		t.Fatalf("OnLoaded should run once, ran %d times", loaded)
	}
}

func TestStoreRestoreOnlyWhenEmpty(t *testing.T) {
	store := NewStore()
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	first := &Snapshot{FetchedAt: t0}
	cached := &Snapshot{FetchedAt: t0.Add(time.Hour)}

	if !store.Restore(first) {
		t.Fatal("restore into an empty store must succeed")
	}
	if store.Restore(cached) {
		t.Fatal("restore must not overwrite a loaded snapshot")
	}
	older := &Snapshot{FetchedAt: t0.Add(-time.Hour)}
	store.Replace(older)
	if store.Current() != older {
		t.Fatal("replace must install the snapshot regardless of its fetch time")
	}
}

func TestRefreshReplacesFutureDatedCachedSnapshot(t *testing.T) {
	cached := &Snapshot{
		Reservations: []reservation.Reservation{{ID: 9, FacilityCode: "Gimnasio"}},
		FetchedAt:    time.Now().Add(time.Hour),
	}
	store := NewStore()
	src := &fakeSource{records: []reservation.Record{
		record(1, "Piscina", "2024-05-01", "09:00", "10:00"),
	}}
	metrics := &countingMetrics{}
	notifier := &recordingNotifier{}
	p := NewPoller(store, src, testLogger(), PollerConfig{
		Location: time.UTC,
		Cache:    &memCache{snap: cached},
		Notifier: notifier,
		Metrics:  metrics,
	})

	p.warm(context.Background())
	if store.Current() != cached {
		t.Fatal("cached snapshot should be restored")
	}
	snap, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, ok := snap.Find(1); !ok {
		t.Fatal("refresh should return the fetched list")
	}
	if store.Current() != snap {
		t.Fatal("fetched list must replace the cached one")
	}
	if _, ok := store.Current().Find(9); ok {
		t.Fatal("cached reservation should be gone")
	}
	if metrics.ok != 1 || len(notifier.got) != 1 {
		t.Fatalf("expected one success and one notification, got %d and %d", metrics.ok, len(notifier.got))
	}
}

func TestRunWarmsFromCacheAndStops(t *testing.T) {
	cached := &Snapshot{
		Reservations: []reservation.Reservation{{ID: 9, FacilityCode: "Gimnasio"}},
		FetchedAt:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	store := NewStore()
	src := &fakeSource{err: errors.New("upstream down")}
	p := NewPoller(store, src, testLogger(), PollerConfig{
		Interval: time.Hour,
		Cache:    &memCache{snap: cached},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.Current() == nil {
		select {
		case <-deadline:
			t.Fatal("cache was not restored")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	if got, ok := store.Current().Find(9); !ok || got.FacilityCode != "Gimnasio" {
		t.Fatal("restored snapshot should hold the cached reservation")
	}
}

func TestDecodeSnapshot(t *testing.T) {
	snap := &Snapshot{
		Reservations: []reservation.Reservation{{
			ID: 1, FacilityCode: "Piscina",
			Start: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		}},
		FetchedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Rejected:  []Rejection{{ID: 4, Reason: "bad date"}},
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Reservations[0].End.Equal(snap.Reservations[0].End) || got.Rejected[0].Reason != "bad date" {
		t.Fatalf("unexpected decoded snapshot %+v", got)
	}
	if _, err := decodeSnapshot([]byte(`{"reservations":[]}`)); err == nil {
		t.Fatal("expected error for snapshot without fetched_at")
	}
}
