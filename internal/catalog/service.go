package catalog

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-saga-orders/internal/catalog")

// Service is the Inventory Reservation Service plus the catalog reads.
type Service struct {
	Store Store
	Redis *redis.Client // optional cache for the product list
	Log   *zap.Logger

	group singleflight.Group
}

func NewService(store Store, rdb *redis.Client, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Store: store, Redis: rdb, Log: log}
}

// Reserve decrements quantity units of productID across its locations and
// returns the unit price to charge.
func (s *Service) Reserve(ctx context.Context, productID string, quantity int) (int64, error) {
	ctx, span := tracer.Start(ctx, "catalog.reserve", trace.WithAttributes(
		attribute.String("product.id", productID),
		attribute.Int("reserve.quantity", quantity),
	))
	defer span.End()

	if productID == "" {
		return 0, apperr.New(apperr.Invalid, "product_id is required")
	}
	if quantity < 1 {
		return 0, apperr.New(apperr.Invalid, "quantity must be at least 1")
	}

	price, err := s.Store.Reserve(ctx, productID, quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserve failed")
		if _, ok := apperr.As(err); !ok {
			s.Log.Error("inventory reservation failed", zap.String("product_id", productID), zap.Error(err))
			return 0, apperr.Wrap(apperr.Internal, err, "inventory update failed")
		}
		s.Log.Info("reservation rejected",
			zap.String("product_id", productID),
			zap.Int("quantity", quantity),
			zap.String("reason", apperr.KindOf(err).String()),
		)
		return 0, err
	}

	s.invalidateList(ctx)
	s.Log.Info("stock reserved",
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Int64("unit_price", price),
	)
	return price, nil
}

// ListProducts is cache-aside over Redis; concurrent misses share one store
// read. The fill runs under WATCH on the catalog version, so a list read
// before a reservation cannot land in the cache after that reservation.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	if s.Redis != nil {
		if b, err := s.Redis.Get(ctx, redisx.KeyCatalogProducts).Bytes(); err == nil {
			var ps []Product
			if err := json.Unmarshal(b, &ps); err == nil {
				return ps, nil
			}
		}
	}

	v, err, _ := s.group.Do(redisx.KeyCatalogProducts, func() (any, error) {
		if s.Redis == nil {
			return s.loadProducts(ctx)
		}
		var (
			ps      []Product
			loadErr error
		)
		err := s.Redis.Watch(ctx, func(tx *redis.Tx) error {
			ps, loadErr = s.loadProducts(ctx)
			if loadErr != nil {
				return loadErr
			}
			b, err := json.Marshal(ps)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, redisx.KeyCatalogProducts, b, redisx.TTLCatalogProducts)
				return nil
			})
			return err
		}, redisx.KeyCatalogVersion)
		switch {
		case loadErr != nil:
			return nil, loadErr
		case errors.Is(err, redis.TxFailedErr):
			s.Log.Debug("stock changed during read, product list not cached")
		case err != nil:
			s.Log.Warn("cache product list", zap.Error(err))
		}
		if ps == nil {
			return s.loadProducts(ctx)
		}
		return ps, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not load products")
	}
	return v.([]Product), nil
}

func (s *Service) loadProducts(ctx context.Context) ([]Product, error) {
	ps, err := s.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = []Product{}
	}
	return ps, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return Product{}, err
		}
		return Product{}, apperr.Wrap(apperr.Internal, err, "could not load product")
	}
	return p, nil
}

func (s *Service) Seed(ctx context.Context) error {
	return s.Store.Seed(ctx, DemoProducts)
}

func (s *Service) invalidateList(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	_, err := s.Redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, redisx.KeyCatalogVersion)
		p.Del(ctx, redisx.KeyCatalogProducts)
		return nil
	})
	if err != nil {
		s.Log.Warn("invalidate product list", zap.Error(err))
	}
}
