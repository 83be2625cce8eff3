package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/repository"
)

type Consumer struct {
	countWorkers int

	outbox    repository.OutboxRepo
	publisher publisher
	recorder  Recorder
	batch     *sync.WaitGroup
	now       func() time.Time
	logger    logger.Logger
}

func (c *Consumer) Consume(ctx context.Context, in <-chan models.Event) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for range c.countWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx, in)
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		c.logger.Debug("Consumer stopped")
	}()

	return idleStopped
}

func (c *Consumer) worker(ctx context.Context, in <-chan models.Event) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-in:
			if !ok {
				c.logger.Debug("Consumer worker stopped, input channel closed")
				return
			}

			c.handle(ctx, event)
			c.batch.Done()
		}
	}
}

func (c *Consumer) handle(ctx context.Context, event models.Event) {
	err := c.publisher.Publish(ctx, event)
	if c.recorder != nil {
		c.recorder.ObservePublish(event.Topic, err)
	}
	if err != nil {
		// Event stays pending and is picked again on the next poll
		c.logger.Warn("Failed to publish event", "error", err, "event_id", event.ID, "topic", event.Topic)
		return
	}

	if err := c.outbox.MarkPublished(ctx, event.ID, c.now().UTC()); err != nil {
		c.logger.Error("Failed to mark event published", "error", err, "event_id", event.ID)
	}
}
