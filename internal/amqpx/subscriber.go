package amqpx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-saga-orders/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, env events.Envelope) error

// Subscribe binds a durable queue to the given routing keys and handles
// deliveries until ctx ends or the channel closes. Deliveries are acked after
// h succeeds; a failed one is requeued once, undecodable ones are dropped.
func Subscribe(ctx context.Context, ch *amqp.Channel, queue string, bindings []string, h Handler, log *zap.Logger) error {
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("could not declare queue: %w", err)
	}
	for _, rk := range bindings {
		if err := ch.QueueBind(q.Name, rk, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("could not bind queue: %w", err)
		}
	}
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("could not start consume: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					log.Info("rabbitmq consumer stopped", zap.String("queue", q.Name))
					return
				}
				handleDelivery(ctx, d, h, log)
			}
		}
	}()
	return nil
}

// acknowledger is the part of amqp.Delivery used for settling.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, d amqp.Delivery, h Handler, log *zap.Logger) {
	settle(ctx, d, d.Body, d.RoutingKey, d.Redelivered, h, log)
}

func settle(ctx context.Context, ack acknowledger, body []byte, rk string, redelivered bool, h Handler, log *zap.Logger) {
	var env events.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Warn("dropping undecodable message", zap.String("routing_key", rk), zap.Error(err))
		_ = ack.Nack(false, false)
		return
	}
	if err := h(ctx, env); err != nil {
		log.Warn("handler failed", zap.String("routing_key", rk), zap.String("event_id", env.EventID), zap.Error(err))
		_ = ack.Nack(false, !redelivered)
		return
	}
	_ = ack.Ack(false)
}
