package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/repository"
)

const (
	defaultCountWorkers = 4               // Number of workers publishing events
	defaultInterval     = 2 * time.Second // Interval for polling outbox
	defaultBatchSize    = 100
)

type publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// Recorder observes publish attempts, e.g. in metrics
type Recorder interface {
	ObservePublish(topic string, err error)
}

type Config struct {
	CountWorkers int
	Interval     time.Duration
	BatchSize    int
	Recorder     Recorder
}

// Relay moves committed outbox events to the publisher
// Delivery is at least once: an event published but not marked is published again
// Next poll starts only after the previous batch is handled
type Relay struct {
	consumer *Consumer
	producer *Producer
	logger   logger.Logger
}

func New(cfg Config, outbox repository.OutboxRepo, pub publisher, l logger.Logger) *Relay {
	if cfg.CountWorkers <= 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	batch := &sync.WaitGroup{}

	return &Relay{
		consumer: &Consumer{
			countWorkers: cfg.CountWorkers,
			outbox:       outbox,
			publisher:    pub,
			recorder:     cfg.Recorder,
			batch:        batch,
			now:          time.Now,
			logger:       l,
		},
		producer: &Producer{
			interval:  cfg.Interval,
			batchSize: cfg.BatchSize,
			outbox:    outbox,
			batch:     batch,
			logger:    l,
		},
		logger: l,
	}
}

// Run starts relay; returned channel is closed when all workers stopped
func (r *Relay) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	eventChan := make(chan models.Event)

	producerStopped := r.producer.Produce(ctx, eventChan)
	consumerStopped := r.consumer.Consume(ctx, eventChan)

	go func() {
		defer close(idleStopped)
		<-producerStopped
		close(eventChan)
		<-consumerStopped
		r.logger.Debug("Outbox relay stopped")
	}()

	return idleStopped
}
