// Package events publishes ingestion progress to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectRecordCreated  = "catalog.record.created"
	SubjectWriteRecovered = "catalog.write.recovered"
	SubjectIngestPage     = "catalog.ingest.page"
	SubjectIngestFinished = "catalog.ingest.finished"
	streamName            = "CATALOG"
)

// Publisher is the port the pipeline reports through. Publishing is best
// effort: callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close() error
}

// Event is the envelope published to NATS.
type Event struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSPublisher publishes catalog events to JetStream.
type NATSPublisher struct {
	nc  *nats.Conn
	js  jetStream
	log *zap.Logger
}

// New connects to NATS and ensures the CATALOG stream exists.
// If natsURL is empty, returns a no-op publisher.
func New(natsURL string, log *zap.Logger) (Publisher, error) {
	if natsURL == "" {
		log.Info("NATS_URL not set, catalog events will not be published")
		return Nop{}, nil
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("catalog-ingestion"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"catalog.>"},
		Storage:  nats.FileStorage,
	})
	if err != nil {
		log.Warn("failed to create NATS stream (may already exist)", zap.Error(err))
	}

	log.Info("NATS publisher initialised", zap.String("stream", streamName))
	return &NATSPublisher{nc: nc, js: js, log: log}, nil
}

// Publish wraps payload in an Event envelope and sends it to subject.
func (p *NATSPublisher) Publish(_ context.Context, subject string, payload any) error {
	data, err := encode(subject, payload)
	if err != nil {
		return err
	}

	ack, err := p.js.Publish(subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.log.Debug("NATS event published", zap.String("subject", subject), zap.Uint64("seq", ack.Sequence))
	return nil
}

// Close drains pending acks and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

func encode(subject string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", subject, err)
	}

	return json.Marshal(Event{
		EventID:    uuid.NewString(),
		EventType:  subject,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }
