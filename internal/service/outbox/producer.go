package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/models"
	"github.com/nkiryanov/campuswallet/internal/repository"
)

type Producer struct {
	interval  time.Duration
	batchSize int
	outbox    repository.OutboxRepo
	batch     *sync.WaitGroup
	logger    logger.Logger
}

func (p *Producer) Produce(ctx context.Context, out chan<- models.Event) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting producer", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Producer stopped by context")
				return

			case <-ticker.C:
				events, err := p.outbox.ListPending(ctx, p.batchSize)
				if err != nil {
					p.logger.Error("Failed to list pending events", "error", err)
					continue
				}

				if !p.send(ctx, out, events) {
					p.logger.Debug("Producer stopped by context while sending events")
					return
				}
			}
		}
	}()

	return idleStopped
}

// send hands the batch to workers and waits until each event is handled
func (p *Producer) send(ctx context.Context, out chan<- models.Event, events []models.Event) bool {
	defer p.batch.Wait()

	for _, event := range events {
		p.batch.Add(1)

		select {
		case <-ctx.Done():
			p.batch.Done()
			return false
		case out <- event:
			p.logger.Debug("Event sent to channel", "event_id", event.ID)
		}
	}

	return true
}
