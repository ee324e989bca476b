package orders

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-saga-orders/internal/events"
)

// Notifier delivers a system message about an order. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, orderID, content string) error
}

// EventPublisher is implemented by the Kafka producer and the AMQP publisher.
type EventPublisher interface {
	PublishEnvelope(ctx context.Context, topic string, env events.Envelope) error
}

// ScheduledNotice is the fixed system message sent when an appointment is confirmed.
func ScheduledNotice(orderID string) string {
	return fmt.Sprintf("Automated notice: an administrator has confirmed the appointment for order %s. "+
		"Please check the time and location.", orderID)
}

// EventNotifier turns a notification into a NotificationRequested event on
// the chat notifications topic, for deployments where the chat service
// consumes from a broker instead of taking HTTP calls.
type EventNotifier struct {
	Publisher EventPublisher
	Producer  string
}

func (n *EventNotifier) Notify(ctx context.Context, orderID, content string) error {
	env, err := events.New(events.TypeNotificationRequested, n.Producer, orderID,
		events.NotificationPayload{OrderID: orderID, Content: content})
	if err != nil {
		return err
	}
	return n.Publisher.PublishEnvelope(ctx, events.TopicChatNotifications, env)
}
