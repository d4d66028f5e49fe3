package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/orderly/app/apperr"
	"github.com/shashiranjanraj/orderly/app/models"
	"github.com/shashiranjanraj/orderly/app/repositories"
	"github.com/shashiranjanraj/orderly/app/resources"
	"github.com/shashiranjanraj/orderly/pkg/cache"
	"github.com/shashiranjanraj/orderly/pkg/logger"
)

type CreateProductInput struct {
	Name          string
	Price         decimal.Decimal
	StockQuantity int
}

type ProductService struct {
	store *repositories.Store
	cache cache.Store
	ttl   time.Duration
}

func NewProductService(store *repositories.Store, c cache.Store, ttl time.Duration) *ProductService {
	return &ProductService{store: store, cache: c, ttl: ttl}
}

func (s *ProductService) Create(ctx context.Context, in CreateProductInput) (resources.Product, error) {
	fields := map[string][]string{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		fields["name"] = append(fields["name"], "Name is required.")
	} else if utf8.RuneCountInString(name) > models.MaxNameLength {
		fields["name"] = append(fields["name"], fmt.Sprintf("Name must not exceed %d characters.", models.MaxNameLength))
	}
	if in.Price.IsNegative() {
		fields["price"] = append(fields["price"], "Price must be zero or greater.")
	} else if !in.Price.Equal(in.Price.Round(2)) {
		fields["price"] = append(fields["price"], "Price cannot have more than two decimal places.")
	}
	if in.StockQuantity < 0 {
		fields["stockQuantity"] = append(fields["stockQuantity"], "Stock quantity must be zero or greater.")
	}
	if len(fields) > 0 {
		return resources.Product{}, apperr.Validation(fields)
	}

	p := models.Product{
		ID:            uuid.New(),
		Name:          name,
		Price:         in.Price.Round(2),
		StockQuantity: in.StockQuantity,
	}
	if err := s.store.Products.Create(ctx, &p); err != nil {
		return resources.Product{}, apperr.Internal(err)
	}

	cache.Forget(ctx, s.cache, []string{keyProductsAll})
	logger.WithCtx(ctx).Info("product created", "product_id", p.ID, "name", p.Name)
	return resources.NewProduct(p), nil
}

// All lists the catalogue by name.
func (s *ProductService) All(ctx context.Context) ([]resources.Product, error) {
	out, err := cache.Remember(ctx, s.cache, keyProductsAll, s.ttl, func(ctx context.Context) ([]resources.Product, error) {
		ps, err := s.store.Products.All(ctx)
		if err != nil {
			return nil, err
		}
		return resources.NewProducts(ps), nil
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}
