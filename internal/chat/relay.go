package chat

import (
	"context"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/events"
	"go.uber.org/zap"
)

const consumerName = "chat-relay"

type Relay struct {
	Store Store
	Log   *zap.Logger
	Now   func() time.Time
}

func NewRelay(store Store, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{Store: store, Log: log, Now: time.Now}
}

// SystemNotify posts a message from the system into an order's room.
func (r *Relay) SystemNotify(ctx context.Context, orderID, content string) error {
	if orderID == "" || content == "" {
		return apperr.New(apperr.Invalid, "order_id and content are required")
	}
	m := Message{OrderID: orderID, Role: RoleSystem, Name: SystemName, Content: content, Time: r.Now().UTC()}
	if err := r.Store.Append(ctx, m); err != nil {
		r.Log.Error("store system message", zap.String("order_id", orderID), zap.Error(err))
		return apperr.Wrap(apperr.Internal, err, "could not store message")
	}
	r.Log.Info("system message posted", zap.String("order_id", orderID))
	return nil
}

func (r *Relay) History(ctx context.Context, orderID string) ([]Message, error) {
	if orderID == "" {
		return nil, apperr.New(apperr.Invalid, "order_id is required")
	}
	ms, err := r.Store.History(ctx, orderID)
	if err != nil {
		r.Log.Error("load history", zap.String("order_id", orderID), zap.Error(err))
		return nil, apperr.Wrap(apperr.Internal, err, "could not load messages")
	}
	return ms, nil
}

// HandleEnvelope consumes NotificationRequested events from Kafka or
// RabbitMQ. Redeliveries of an event already handled are skipped; other
// event types and undecodable payloads are dropped. An event whose message
// could not be stored is released again so the broker's redelivery posts it.
func (r *Relay) HandleEnvelope(ctx context.Context, env events.Envelope) error {
	if env.EventType != events.TypeNotificationRequested {
		return nil
	}
	p, err := events.Decode[events.NotificationPayload](env)
	if err != nil {
		r.Log.Warn("dropping undecodable notification", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	if env.EventID != "" {
		first, err := r.Store.FirstSeen(ctx, consumerName, env.EventID)
		if err != nil {
			return err
		}
		if !first {
			r.Log.Debug("duplicate event skipped", zap.String("event_id", env.EventID))
			return nil
		}
	}
	if err := r.SystemNotify(ctx, p.OrderID, p.Content); err != nil {
		if apperr.Is(err, apperr.Invalid) {
			r.Log.Warn("dropping invalid notification", zap.String("event_id", env.EventID), zap.Error(err))
			return nil
		}
		if env.EventID != "" {
			if ferr := r.Store.Forget(context.WithoutCancel(ctx), consumerName, env.EventID); ferr != nil {
				r.Log.Error("release event for redelivery", zap.String("event_id", env.EventID), zap.Error(ferr))
			}
		}
		return err
	}
	return nil
}
