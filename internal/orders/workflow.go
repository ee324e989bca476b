package orders

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-saga-orders/internal/orders")

// Reserver is the Inventory Reservation Service as seen from the order side.
type Reserver interface {
	Reserve(ctx context.Context, productID string, quantity int) (unitPrice int64, err error)
}

// Service is the order workflow engine.
type Service struct {
	Store    Store
	Reserver Reserver

	// Optional collaborators; nil disables them.
	Notifier Notifier
	Events   EventPublisher
	Cache    StatusCache

	ReserveTimeout time.Duration
	NotifyTimeout  time.Duration
	Producer       string // envelope producer name
	Log            *zap.Logger
	Now            func() time.Time
}

func NewService(store Store, reserver Reserver, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Store:          store,
		Reserver:       reserver,
		ReserveTimeout: 5 * time.Second,
		NotifyTimeout:  3 * time.Second,
		Producer:       "order-service",
		Log:            log,
		Now:            time.Now,
	}
}

// CreateOrder reserves stock for every item in the given order and persists
// the order with the confirmed prices. Until then the order only exists in
// memory. A failed reservation discards it but leaves stock already reserved
// for earlier items decremented. Calling it twice creates two orders.
func (s *Service) CreateOrder(ctx context.Context, caller Caller, items []ItemInput) (Order, error) {
	ctx, span := tracer.Start(ctx, "orders.create", trace.WithAttributes(
		attribute.String("user.id", caller.UserID),
		attribute.Int("order.items", len(items)),
	))
	defer span.End()

	if caller.UserID == "" {
		return Order{}, apperr.New(apperr.Unauthorized, "caller identity is required")
	}
	for i, it := range items {
		if it.ProductID == "" {
			return Order{}, apperr.New(apperr.Invalid, "item %d: product_id is required", i)
		}
		if it.Quantity < 1 {
			return Order{}, apperr.New(apperr.Invalid, "item %d: quantity must be at least 1", i)
		}
	}

	o := Order{
		ID:        uuid.NewString(),
		UserID:    caller.UserID,
		Status:    StatusPending,
		CreatedAt: s.Now().UTC(),
		Items:     make([]Item, 0, len(items)),
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	log := s.Log.With(zap.String("order_id", o.ID), zap.String("user_id", o.UserID))

	// Reservations run before the store is touched, so a slow catalog never
	// holds a store connection or transaction.
	for _, in := range items {
		price, err := s.reserve(ctx, in)
		if err != nil {
			log.Info("order aborted: reservation failed",
				zap.String("product_id", in.ProductID),
				zap.Int("quantity", in.Quantity),
				zap.Int("reserved_items", len(o.Items)),
				zap.Error(err),
			)
			return Order{}, s.fail(span, log, apperr.Annotate(err, "item %s", in.ProductID))
		}
		o.Items = append(o.Items, Item{ProductID: in.ProductID, Quantity: in.Quantity, UnitPrice: price})
		o.TotalAmount += price * int64(in.Quantity)
	}

	if err := s.Store.Create(ctx, o); err != nil {
		return Order{}, s.fail(span, log, apperr.Wrap(apperr.Internal, err, "could not save order"))
	}

	log.Info("order created", zap.Int64("total_amount", o.TotalAmount), zap.Int("items", len(o.Items)))
	s.cacheStatus(ctx, o, o.CreatedAt)
	s.publish(ctx, events.TopicOrderCreated, events.TypeOrderCreated, o.ID, createdPayload(o))
	return o, nil
}

// reserve makes one bounded reservation call. A deadline hit while the
// reserver was working counts as the dependency being unavailable.
func (s *Service) reserve(ctx context.Context, in ItemInput) (int64, error) {
	ctx, span := tracer.Start(ctx, "orders.reserve_item", trace.WithAttributes(
		attribute.String("product.id", in.ProductID),
		attribute.Int("reserve.quantity", in.Quantity),
	))
	defer span.End()

	rctx, cancel := context.WithTimeout(ctx, s.ReserveTimeout)
	defer cancel()

	price, err := s.Reserver.Reserve(rctx, in.ProductID, in.Quantity)
	if err == nil {
		return price, nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "reservation failed")
	if apperr.KindOf(err) == apperr.Internal && errors.Is(rctx.Err(), context.DeadlineExceeded) {
		return 0, apperr.Wrap(apperr.UpstreamUnavailable, err, "inventory reservation timed out")
	}
	return 0, err
}

// AdvanceStatus moves an order forward. Paying is open to any identified
// caller; scheduling is an admin action and triggers a best-effort
// notification whose failure only shows up as Warning.
func (s *Service) AdvanceStatus(ctx context.Context, caller Caller, orderID string, to Status) (StatusResult, error) {
	ctx, span := tracer.Start(ctx, "orders.advance_status", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.target_status", string(to)),
	))
	defer span.End()

	log := s.Log.With(zap.String("order_id", orderID), zap.String("target", string(to)))

	if caller.UserID == "" {
		return StatusResult{}, apperr.New(apperr.Unauthorized, "caller identity is required")
	}
	if !IsTarget(to) {
		return StatusResult{}, apperr.New(apperr.Invalid, "unsupported target status %q", to)
	}
	if RequiresAdmin(to) && !caller.IsAdmin() {
		return StatusResult{}, apperr.New(apperr.Forbidden, "only admins can schedule orders")
	}

	prev, o, err := s.Store.Transition(ctx, orderID, to)
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			err = apperr.Wrap(apperr.Internal, err, "could not update order")
		}
		return StatusResult{}, s.fail(span, log, err)
	}
	log.Info("order status changed", zap.String("from", string(prev)))

	now := s.Now().UTC()
	s.cacheStatus(ctx, o, now)
	s.publish(ctx, events.TopicOrderStatusChanged, events.TypeOrderStatusChanged, o.ID,
		events.OrderStatusChangedPayload{OrderID: o.ID, UserID: o.UserID, From: string(prev), To: string(to)})

	res := StatusResult{OrderID: o.ID, Status: o.Status}
	switch to {
	case StatusPaid:
		res.Message = "payment confirmed"
	case StatusScheduled:
		res.Message = "appointment confirmed and customer notified"
		if err := s.notify(ctx, o.ID); err != nil {
			log.Warn("scheduled notification not delivered", zap.Error(err))
			span.AddEvent("notification failed", trace.WithAttributes(attribute.String("error", err.Error())))
			res.Message = "appointment confirmed but the chat notification could not be sent"
			res.Warning = "notification not delivered: " + err.Error()
		}
	}
	return res, nil
}

// notify runs after the transition has committed and never undoes it.
func (s *Service) notify(ctx context.Context, orderID string) error {
	if s.Notifier == nil {
		return nil
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.NotifyTimeout)
	defer cancel()
	return s.Notifier.Notify(nctx, orderID, ScheduledNotice(orderID))
}

// ListOrders returns every order for admins and only the caller's own otherwise.
func (s *Service) ListOrders(ctx context.Context, caller Caller) ([]Order, error) {
	if caller.UserID == "" {
		return nil, apperr.New(apperr.Unauthorized, "caller identity is required")
	}
	owner := caller.UserID
	if caller.IsAdmin() {
		owner = ""
	}
	list, err := s.Store.List(ctx, owner)
	if err != nil {
		s.Log.Error("list orders", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, apperr.Wrap(apperr.Internal, err, "could not load orders")
	}
	return list, nil
}

// GetOrder hides orders of other users behind NotFound unless the caller is an admin.
func (s *Service) GetOrder(ctx context.Context, caller Caller, orderID string) (Order, error) {
	if caller.UserID == "" {
		return Order{}, apperr.New(apperr.Unauthorized, "caller identity is required")
	}
	o, err := s.Store.Get(ctx, orderID)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return Order{}, err
		}
		s.Log.Error("get order", zap.String("order_id", orderID), zap.Error(err))
		return Order{}, apperr.Wrap(apperr.Internal, err, "could not load order")
	}
	if !visible(caller, o.UserID) {
		return Order{}, apperr.New(apperr.NotFound, "order %s not found", orderID)
	}
	return o, nil
}

// OrderStatus reads through the status cache and falls back to the store.
func (s *Service) OrderStatus(ctx context.Context, caller Caller, orderID string) (StatusView, error) {
	if caller.UserID == "" {
		return StatusView{}, apperr.New(apperr.Unauthorized, "caller identity is required")
	}
	if s.Cache != nil {
		v, ok, err := s.Cache.Get(ctx, orderID)
		if err != nil {
			s.Log.Warn("status cache read", zap.String("order_id", orderID), zap.Error(err))
		}
		if ok {
			if !visible(caller, v.UserID) {
				return StatusView{}, apperr.New(apperr.NotFound, "order %s not found", orderID)
			}
			return v, nil
		}
	}

	o, err := s.GetOrder(ctx, caller, orderID)
	if err != nil {
		return StatusView{}, err
	}
	v := StatusView{OrderID: o.ID, UserID: o.UserID, Status: o.Status, UpdatedAt: s.Now().UTC()}
	if s.Cache != nil {
		if err := s.Cache.Put(ctx, v); err != nil {
			s.Log.Warn("status cache write", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return v, nil
}

func visible(caller Caller, owner string) bool {
	return caller.IsAdmin() || caller.UserID == owner
}

func (s *Service) cacheStatus(ctx context.Context, o Order, at time.Time) {
	if s.Cache == nil {
		return
	}
	v := StatusView{OrderID: o.ID, UserID: o.UserID, Status: o.Status, UpdatedAt: at}
	if err := s.Cache.Put(context.WithoutCancel(ctx), v); err != nil {
		s.Log.Warn("status cache write", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// publish emits a domain event after the state it describes has committed.
// Failures are logged and dropped.
func (s *Service) publish(ctx context.Context, topic, eventType, orderID string, payload any) {
	if s.Events == nil {
		return
	}
	env, err := events.New(eventType, s.Producer, orderID, payload)
	if err != nil {
		s.Log.Error("build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	if err := s.Events.PublishEnvelope(context.WithoutCancel(ctx), topic, env); err != nil {
		s.Log.Warn("publish event", zap.String("event_type", eventType), zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *Service) fail(span trace.Span, log *zap.Logger, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if apperr.KindOf(err) == apperr.Internal {
		log.Error("order workflow failed", zap.Error(err))
	}
	return err
}

func createdPayload(o Order) events.OrderCreatedPayload {
	items := make([]events.ItemPrice, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, events.ItemPrice{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return events.OrderCreatedPayload{OrderID: o.ID, UserID: o.UserID, Items: items, TotalAmount: o.TotalAmount}
}
