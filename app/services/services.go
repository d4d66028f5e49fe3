// Package services holds the application workflows. Services take plain
// inputs, return resources and raise *apperr.Error; they never see HTTP.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/orderly/app/repositories"
	"github.com/shashiranjanraj/orderly/pkg/cache"
)

// Event names fired by the services. Payloads are the structs below.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderRejected      = "order.rejected"
	EventOrderStatusChanged = "order.status_changed"
	EventCustomerCreated    = "customer.created"
)

// Rejection reasons carried by OrderRejected.
const (
	ReasonCustomerNotFound  = "customer_not_found"
	ReasonEmptyOrder        = "empty_order"
	ReasonProductNotFound   = "product_not_found"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonInvalid           = "invalid"
)

type OrderPlaced struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Total      float64   `json:"total"`
	Lines      int       `json:"lines"`
}

type OrderRejected struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Reason     string    `json:"reason"`
	Message    string    `json:"message"`
}

type OrderStatusChanged struct {
	OrderID uuid.UUID `json:"order_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
}

type CustomerCreated struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Email      string    `json:"email"`
}

// Cache keys.
const (
	keyProductsAll  = "products:all"
	keyCustomersAll = "customers:all"
)

func customerKey(id uuid.UUID) string       { return cache.Key("customers", id) }
func orderKey(id uuid.UUID) string          { return cache.Key("orders", id) }
func customerOrdersKey(id uuid.UUID) string { return cache.Key("orders", "customer", id) }

// Services bundles every workflow over one store and cache.
type Services struct {
	Customers *CustomerService
	Products  *ProductService
	Orders    *OrderService
	Auth      *AuthService
}

// Options configures New. A nil Cache disables caching.
type Options struct {
	Cache    cache.Store
	CacheTTL time.Duration
	Auth     AuthConfig
}

func New(store *repositories.Store, opts Options) *Services {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Services{
		Customers: NewCustomerService(store, opts.Cache, ttl),
		Products:  NewProductService(store, opts.Cache, ttl),
		Orders:    NewOrderService(store, opts.Cache, ttl),
		Auth:      NewAuthService(opts.Auth),
	}
}

// lookup runs a cached read that may legitimately find nothing. Misses are
// not cached so the entity is visible as soon as it is created.
func lookup[T any](ctx context.Context, s cache.Store, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	v, err := cache.Remember(ctx, s, key, ttl, load)
	if errors.Is(err, repositories.ErrNotFound) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}
