package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	otelx "github.com/unemi/sportsmap/libs/otel"
	"github.com/unemi/sportsmap/services/reservation-service/internal/reservation"
)

// Source returns the complete current upstream reservation list.
type Source interface {
	Fetch(ctx context.Context) ([]reservation.Record, error)
}

// Cache persists the last good snapshot across restarts.
type Cache interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// Notifier is told about every installed snapshot.
type Notifier interface {
	SnapshotReplaced(ctx context.Context, snap *Snapshot) error
}

// Metrics receives poll outcomes.
type Metrics interface {
	PollSucceeded(elapsed time.Duration, size, rejected, inverted int, at time.Time)
	PollFailed(elapsed time.Duration)
}

type PollerConfig struct {
	Interval time.Duration
	Location *time.Location
	Cache    Cache
	Notifier Notifier
	Metrics  Metrics
	// OnLoaded runs once, after the first snapshot is installed.
	OnLoaded func()
}

type Poller struct {
	store    *Store
	source   Source
	logger   *slog.Logger
	interval time.Duration
	loc      *time.Location
	cache    Cache
	notifier Notifier
	metrics  Metrics
	onLoaded func()
	loaded   sync.Once
	now      func() time.Time

	// mu serializes cycles; the last completed fetch always wins.
	mu sync.Mutex
}

func NewPoller(store *Store, source Source, logger *slog.Logger, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Poller{
		store:    store,
		source:   source,
		logger:   logger,
		interval: cfg.Interval,
		loc:      cfg.Location,
		cache:    cfg.Cache,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		onLoaded: cfg.OnLoaded,
		now:      time.Now,
	}
}

// Run warms the store from the cache, polls once immediately and then on
// every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.warm(ctx)
	if _, err := p.Refresh(ctx); err != nil {
		p.logger.Error("reservation poll failed", "err", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Refresh(ctx); err != nil {
				p.logger.Error("reservation poll failed", "err", err)
			}
		}
	}
}

// Refresh runs one poll cycle. On failure the current snapshot is kept.
func (p *Poller) Refresh(ctx context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, span := otelx.Tracer("reservation-service/snapshot").Start(ctx, "snapshot.refresh")
	defer span.End()

	started := p.now()
	records, err := p.source.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		if p.metrics != nil {
			p.metrics.PollFailed(p.now().Sub(started))
		}
		return nil, fmt.Errorf("fetch reservations: %w", err)
	}

	batch := reservation.NormalizeBatch(records, p.loc)
	for _, rej := range batch.Rejected {
		p.logger.Warn("reservation record skipped", "reservation_id", rej.ID, "err", rej.Err)
	}
	if batch.Inverted > 0 {
		p.logger.Warn("reservations end before they start", "count", batch.Inverted)
	}

	fetchedAt := p.now()
	snap := FromBatch(batch, fetchedAt)
	p.store.Replace(snap)
	span.SetAttributes(
		attribute.Int("reservations.count", len(snap.Reservations)),
		attribute.Int("reservations.rejected", len(snap.Rejected)),
	)
	if p.metrics != nil {
		p.metrics.PollSucceeded(fetchedAt.Sub(started), len(snap.Reservations), len(snap.Rejected), snap.Inverted, fetchedAt)
	}
	p.logger.Info("reservation snapshot replaced",
		"count", len(snap.Reservations),
		"rejected", len(snap.Rejected),
		"inverted", snap.Inverted,
	)
	p.markLoaded()

	if p.cache != nil {
		if err := p.cache.Save(ctx, snap); err != nil {
			p.logger.Warn("snapshot cache save failed", "err", err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.SnapshotReplaced(ctx, snap); err != nil {
			p.logger.Warn("snapshot notification failed", "err", err)
		}
	}
	return snap, nil
}

func (p *Poller) warm(ctx context.Context) {
	if p.cache == nil {
		return
	}
	snap, err := p.cache.Load(ctx)
	if err != nil {
		p.logger.Warn("snapshot cache load failed", "err", err)
		return
	}
	if snap == nil {
		return
	}
	if p.store.Restore(snap) {
		p.logger.Info("reservation snapshot restored from cache",
			"count", len(snap.Reservations),
			"fetched_at", snap.FetchedAt,
		)
		p.markLoaded()
	}
}

func (p *Poller) markLoaded() {
	if p.onLoaded != nil {
		p.loaded.Do(p.onLoaded)
	}
}
