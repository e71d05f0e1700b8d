package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const PurchasePaid = "purchase.paid"

// PurchasePaidEvent is emitted whenever a purchase lands in the paid state,
// whether by webhook reconciliation or by grant-link consumption.
type PurchasePaidEvent struct {
	UserID          string    `json:"user_id"`
	ProductID       string    `json:"product_id"`
	AmountCents     int64     `json:"amount_cents"`
	PaymentProvider string    `json:"payment_provider"`
	PaymentID       string    `json:"payment_id,omitempty"`
	PaidAt          time.Time `json:"paid_at"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
	Close() error
}

type KafkaPublisher struct {
	writer       *kafka.Writer
	topicByEvent map[string]string
}

func NewKafkaPublisher(brokers []string, topicByEvent map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		topicByEvent: topicByEvent,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	topic := eventType
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		topic = mapped
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(partitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte, string) error { return nil }
func (NoopPublisher) Close() error                                          { return nil }

// PublishPurchasePaid encodes the event and keys it by user so one buyer's
// events stay ordered within a partition.
func PublishPurchasePaid(ctx context.Context, p Publisher, evt PurchasePaidEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", PurchasePaid, err)
	}
	return p.Publish(ctx, PurchasePaid, payload, evt.UserID)
}
