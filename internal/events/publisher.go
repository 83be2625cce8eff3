// Package events delivers committed ledger events to downstream consumers
package events

import (
	"context"

	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/models"
)

// Publisher delivers one event
// It may be called again for the same event, consumers dedupe by event id
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
	Close() error
}

// LogPublisher writes events to the log
// Used when no broker is configured
type LogPublisher struct {
	logger logger.Logger
}

func NewLogPublisher(l logger.Logger) *LogPublisher {
	return &LogPublisher{logger: l}
}

func (p *LogPublisher) Publish(_ context.Context, event models.Event) error {
	p.logger.Info("Ledger event",
		"event_id", event.ID,
		"topic", event.Topic,
		"key", event.Key,
		"payload", string(event.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
