package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher is implemented by the in-process bus and by the NATS publisher.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type envelope struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Bus publishes events as JSON envelopes on one watermill topic.
type Bus struct {
	publisher message.Publisher
	topic     string
}

func NewBus(publisher message.Publisher, topic string) *Bus {
	return &Bus{publisher: publisher, topic: topic}
}

func (b *Bus) Topic() string {
	return b.topic
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(envelope{
		Type:       event.EventType(),
		Payload:    event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.EventType())
	return b.publisher.Publish(b.topic, msg)
}

// Decode reverses Publish.
func Decode(msg *message.Message) (BaseEvent, error) {
	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return BaseEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return BaseEvent{Type: env.Type, Data: env.Payload, OccurredAt: env.OccurredAt}, nil
}
