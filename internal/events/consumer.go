package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Handler processes a transaction-created event. Errors are terminal from
// the consumer's point of view: the handler owns recording the failure, the
// consumer only logs and moves on so the broker never retries a payout.
type Handler func(ctx context.Context, evt TransactionCreated) error

// Consumer reads transaction-created events and hands them to the
// reconciler. Offsets are committed after handling, so delivery is
// at-least-once and duplicates are expected downstream.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
}

func NewConsumer(brokers []string, groupID string, handler Handler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    TransactionsTopic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		handler: handler,
	}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to read transaction event", "error", err)
			continue
		}

		var evt TransactionCreated
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			slog.Error("failed to unmarshal transaction event", "key", string(msg.Key), "error", err)
			continue
		}

		if err := c.handler(ctx, evt); err != nil {
			// The handler already persisted the failure; nothing to retry here.
			slog.Error("transaction event handling failed", "transaction_id", evt.TransactionID, "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
