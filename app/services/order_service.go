package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/orderly/app/apperr"
	"github.com/shashiranjanraj/orderly/app/models"
	"github.com/shashiranjanraj/orderly/app/repositories"
	"github.com/shashiranjanraj/orderly/app/resources"
	"github.com/shashiranjanraj/orderly/pkg/cache"
	"github.com/shashiranjanraj/orderly/pkg/event"
	"github.com/shashiranjanraj/orderly/pkg/logger"
)

type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateOrderInput struct {
	CustomerID uuid.UUID
	Items      []OrderLine
}

type OrderService struct {
	store *repositories.Store
	cache cache.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewOrderService(store *repositories.Store, c cache.Store, ttl time.Duration) *OrderService {
	return &OrderService{store: store, cache: c, ttl: ttl, now: time.Now}
}

// Create places an order. Customer lookup, stock checks, decrements and the
// insert share one transaction, so a failure on any line leaves every
// product's stock as it was.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (resources.Order, error) {
	log := logger.WithCtx(ctx)

	if err := validateLines(in.Items); err != nil {
		s.reject(ctx, in.CustomerID, ReasonInvalid, err)
		return resources.Order{}, err
	}

	order := models.Order{
		ID:         uuid.New(),
		CustomerID: in.CustomerID,
		CreatedAt:  s.now().UTC(),
		Status:     models.StatusPending,
	}

	reason := ""
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		ok, err := tx.Customers.Exists(ctx, in.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			reason = ReasonCustomerNotFound
			return apperr.NotFound("Customer", in.CustomerID)
		}

		if len(in.Items) == 0 {
			reason = ReasonEmptyOrder
			return apperr.BusinessRule("Order must contain at least one item.")
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(in.Items))
		for _, line := range in.Items {
			p, err := tx.Products.FindByID(ctx, line.ProductID)
			if errors.Is(err, repositories.ErrNotFound) {
				reason = ReasonProductNotFound
				return apperr.NotFound("Product", line.ProductID)
			}
			if err != nil {
				return err
			}

			if !p.HasStock(line.Quantity) {
				reason = ReasonInsufficientStock
				return insufficientStock(p.Name, p.StockQuantity, line.Quantity)
			}

			if err := tx.Products.DecrementStock(ctx, p.ID, line.Quantity); err != nil {
				if !errors.Is(err, repositories.ErrInsufficientStock) {
					return err
				}
				// Another order took the units between the read and the update.
				available := 0
				if fresh, ferr := tx.Products.FindByID(ctx, p.ID); ferr == nil {
					available = fresh.StockQuantity
				}
				reason = ReasonInsufficientStock
				return insufficientStock(p.Name, available, line.Quantity)
			}

			item := models.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: p.ID,
				Quantity:  line.Quantity,
				UnitPrice: p.Price,
			}
			total = total.Add(item.LineTotal())
			items = append(items, item)
		}

		order.Items = items
		order.TotalAmount = total
		return tx.Orders.Create(ctx, &order)
	})
	if err != nil {
		if reason != "" {
			s.reject(ctx, in.CustomerID, reason, err)
			return resources.Order{}, err
		}
		log.Error("order create failed", "customer_id", in.CustomerID, "error", err)
		return resources.Order{}, apperr.Internal(err)
	}

	cache.Forget(ctx, s.cache,
		[]string{keyProductsAll, keyCustomersAll, customerKey(order.CustomerID), customerOrdersKey(order.CustomerID)})

	log.Info("order placed",
		"order_id", order.ID,
		"customer_id", order.CustomerID,
		"total", order.TotalAmount.StringFixed(2),
		"lines", len(order.Items))
	total, _ := order.TotalAmount.Float64()
	event.Fire(EventOrderPlaced, OrderPlaced{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Total:      total,
		Lines:      len(order.Items),
	})

	return resources.NewOrder(order), nil
}

func validateLines(lines []OrderLine) error {
	fields := map[string][]string{}
	for i, l := range lines {
		if l.ProductID == uuid.Nil {
			k := fmt.Sprintf("items[%d].productId", i)
			fields[k] = append(fields[k], "Product ID is required.")
		}
		if l.Quantity <= 0 {
			k := fmt.Sprintf("items[%d].quantity", i)
			fields[k] = append(fields[k], "Quantity must be greater than zero.")
		}
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

func insufficientStock(product string, available, requested int) error {
	return apperr.BusinessRule("Insufficient stock for product '%s'. Available: %d, Requested: %d",
		product, available, requested)
}

func (s *OrderService) reject(ctx context.Context, customerID uuid.UUID, reason string, err error) {
	logger.WithCtx(ctx).Warn("order rejected", "customer_id", customerID, "reason", reason, "error", err)
	event.Fire(EventOrderRejected, OrderRejected{CustomerID: customerID, Reason: reason, Message: err.Error()})
}

// UpdateStatus moves an order along the status graph. Only the status
// changes; in particular cancelling does not return stock.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus) (resources.Order, error) {
	if !to.Valid() {
		return resources.Order{}, apperr.Invalid("status", "Status must be a valid OrderStatus value.")
	}

	var order *models.Order
	var from models.OrderStatus
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		o, err := tx.Orders.FindByID(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("Order", id)
		}
		if err != nil {
			return err
		}

		from = o.Status
		if !from.CanTransitionTo(to) {
			return apperr.BusinessRule("Invalid status transition from '%s' to '%s'.", from, to)
		}

		err = tx.Orders.UpdateStatus(ctx, id, from, to)
		if errors.Is(err, repositories.ErrStaleStatus) {
			return apperr.BusinessRule("Order '%s' was modified concurrently; reload and retry.", id)
		}
		if err != nil {
			return err
		}
		o.Status = to
		order = o
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return resources.Order{}, err
		}
		logger.WithCtx(ctx).Error("order status update failed", "order_id", id, "error", err)
		return resources.Order{}, apperr.Internal(err)
	}

	cache.Forget(ctx, s.cache,
		[]string{orderKey(id), keyCustomersAll, customerKey(order.CustomerID), customerOrdersKey(order.CustomerID)})

	logger.WithCtx(ctx).Info("order status changed", "order_id", id, "from", from, "to", to)
	event.Fire(EventOrderStatusChanged, OrderStatusChanged{OrderID: id, From: string(from), To: string(to)})

	return resources.NewOrder(*order), nil
}

// Find returns the order with its items and their products.
func (s *OrderService) Find(ctx context.Context, id uuid.UUID) (resources.Order, bool, error) {
	o, ok, err := lookup(ctx, s.cache, orderKey(id), s.ttl, func(ctx context.Context) (resources.Order, error) {
		o, err := s.store.Orders.FindByID(ctx, id)
		if err != nil {
			return resources.Order{}, err
		}
		return resources.NewOrder(*o), nil
	})
	if err != nil {
		return resources.Order{}, false, apperr.Internal(err)
	}
	return o, ok, nil
}

// Get is Find with a NotFound error in place of the flag.
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (resources.Order, error) {
	o, ok, err := s.Find(ctx, id)
	if err != nil {
		return o, err
	}
	if !ok {
		return o, apperr.NotFound("Order", id)
	}
	return o, nil
}

// ForCustomer lists a customer's orders newest first. An unknown customer
// simply has no orders.
func (s *OrderService) ForCustomer(ctx context.Context, customerID uuid.UUID) ([]resources.Order, error) {
	out, err := cache.Remember(ctx, s.cache, customerOrdersKey(customerID), s.ttl, func(ctx context.Context) ([]resources.Order, error) {
		orders, err := s.store.Orders.ForCustomer(ctx, customerID)
		if err != nil {
			return nil, err
		}
		return resources.NewOrders(orders), nil
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}
