package amqpx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-saga-orders/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends envelopes to the exchange; the topic is the routing key.
type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) PublishEnvelope(ctx context.Context, topic string, env events.Envelope) error {
	msg, err := toPublishing(env)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, ExchangeName, topic, false, false, msg)
}

func toPublishing(env events.Envelope) (amqp.Publishing, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("could not marshal envelope: %w", err)
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.EventID,
		CorrelationId: env.CorrelationID,
		Type:          env.EventType,
		Timestamp:     env.OccurredAt,
		AppId:         env.Producer,
		Headers:       amqp.Table{"x-event-version": int32(env.EventVersion)},
		Body:          body,
	}, nil
}
