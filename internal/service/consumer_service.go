package service

import (
	"context"
	"time"

	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const relayTimeout = 5 * time.Second

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// SessionNotifier pushes an event to the sockets watching a session.
type SessionNotifier interface {
	Notify(ctx context.Context, sessionID uuid.UUID, event events.Event)
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	relay      events.Publisher
	notifier   SessionNotifier
	logger     logger.ILogger
}

// NewConsumerService drains the in-process pipeline topic. relay and
// notifier are optional.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	relay events.Publisher,
	notifier SessionNotifier,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		relay:      relay,
		notifier:   notifier,
		logger:     log,
	}
}

// Consume returns once subscribed; messages are handled until ctx is done.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks. Delivery to NATS and sockets is best effort
// and a redelivery would only duplicate progress updates.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	evt, err := events.Decode(msg)
	if err != nil {
		cs.logger.Warn("CONSUMER", "Dropping malformed pipeline event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	if cs.relay != nil {
		relayCtx, cancel := context.WithTimeout(ctx, relayTimeout)
		if err := cs.relay.Publish(relayCtx, evt); err != nil {
			cs.logger.Warn("CONSUMER", "Failed to relay event to NATS", map[string]interface{}{
				"event": evt.EventType(),
				"error": err.Error(),
			})
		}
		cancel()
	}

	if cs.notifier == nil {
		return
	}
	sid, err := uuid.Parse(events.SessionOf(evt))
	if err != nil {
		return
	}
	cs.notifier.Notify(ctx, sid, evt)
}
