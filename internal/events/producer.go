package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Producer publishes ledger events to Kafka.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        TransactionsTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Producer) PublishTransactionCreated(ctx context.Context, evt TransactionCreated) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(evt.TransactionID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("failed to publish transaction event", "transaction_id", evt.TransactionID, "error", err)
		return err
	}
	slog.Info("transaction event published", "transaction_id", evt.TransactionID, "type", evt.Type)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
