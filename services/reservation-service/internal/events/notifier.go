// Package events publishes snapshot replacements to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/unemi/sportsmap/libs/kafkax"
	"github.com/unemi/sportsmap/services/reservation-service/internal/snapshot"
)

const (
	DefaultTopic         = "reservations.snapshot"
	SnapshotReplacedType = "reservations.snapshot.replaced.v1"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type SnapshotReplaced struct {
	FetchedAt time.Time `json:"fetched_at"`
	Count     int       `json:"count"`
	Rejected  int       `json:"rejected"`
	Inverted  int       `json:"inverted"`
}

type Notifier struct {
	writer MessageWriter
	source string
}

// NewNotifier publishes through writer. source becomes the message key.
func NewNotifier(writer MessageWriter, source string) *Notifier {
	return &Notifier{writer: writer, source: source}
}

func (n *Notifier) SnapshotReplaced(ctx context.Context, snap *snapshot.Snapshot) error {
	payload, err := json.Marshal(SnapshotReplaced{
		FetchedAt: snap.FetchedAt.UTC(),
		Count:     len(snap.Reservations),
		Rejected:  len(snap.Rejected),
		Inverted:  snap.Inverted,
	})
	if err != nil {
		return err
	}
	meta := kafkax.EventMeta{EventID: uuid.NewString(), EventType: SnapshotReplacedType}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(n.source),
		Value:   payload,
		Headers: kafkax.InjectTraceHeaders(ctx, meta.Headers()),
		Time:    snap.FetchedAt,
	})
}
