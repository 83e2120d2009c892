package publisher

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/repository"
)

// OutboxSink routes cart events into the outbox table. Cart writes land in
// a separate store, so these events cannot share the order transaction and
// are enqueued best-effort after the cart save.
type OutboxSink struct {
	outbox repository.OutboxRepository
}

func NewOutboxSink(outbox repository.OutboxRepository) *OutboxSink {
	return &OutboxSink{outbox: outbox}
}

func (s *OutboxSink) Publish(ctx context.Context, events []domain.Event) {
	rows := make([]*repository.OutboxEvent, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Printf("failed to marshal event %s: %v", ev.EventName(), err)
			continue
		}
		rows = append(rows, &repository.OutboxEvent{
			AggregateID: aggregateID(ev),
			EventType:   ev.EventName(),
			Payload:     payload,
		})
	}
	if len(rows) == 0 {
		return
	}
	if err := s.outbox.EnqueueEvents(ctx, rows); err != nil {
		log.Printf("failed to enqueue %d events: %v", len(rows), err)
	}
}

func aggregateID(ev domain.Event) string {
	switch e := ev.(type) {
	case domain.CartCreated:
		return e.CartID.String()
	case domain.CartItemAdded:
		return e.CartID.String()
	case domain.CartItemUpdated:
		return e.CartID.String()
	case domain.CartItemRemoved:
		return e.CartID.String()
	case domain.CartCleared:
		return e.CartID.String()
	case domain.CartAssignedToUser:
		return e.CartID.String()
	case domain.CartExpired:
		return e.CartID.String()
	case domain.ProductVariantStockChanged:
		return e.VariantID.String()
	case domain.ProductStockChanged:
		return e.ProductID.String()
	default:
		return ""
	}
}
