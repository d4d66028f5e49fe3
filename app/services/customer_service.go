package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/orderly/app/apperr"
	"github.com/shashiranjanraj/orderly/app/models"
	"github.com/shashiranjanraj/orderly/app/repositories"
	"github.com/shashiranjanraj/orderly/app/resources"
	"github.com/shashiranjanraj/orderly/pkg/cache"
	"github.com/shashiranjanraj/orderly/pkg/event"
	"github.com/shashiranjanraj/orderly/pkg/logger"
)

type CreateCustomerInput struct {
	Name        string
	Email       string
	PhoneNumber string
}

type CustomerService struct {
	store *repositories.Store
	cache cache.Store
	ttl   time.Duration
}

func NewCustomerService(store *repositories.Store, c cache.Store, ttl time.Duration) *CustomerService {
	return &CustomerService{store: store, cache: c, ttl: ttl}
}

// Create registers a customer. The email is checked for format before
// uniqueness, and a duplicate leaves the store untouched.
func (s *CustomerService) Create(ctx context.Context, in CreateCustomerInput) (resources.Customer, error) {
	email, err := models.NewEmail(in.Email)
	if err != nil {
		return resources.Customer{}, err
	}
	fields := map[string][]string{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		fields["name"] = append(fields["name"], "Name is required.")
	} else if utf8.RuneCountInString(name) > models.MaxNameLength {
		fields["name"] = append(fields["name"], fmt.Sprintf("Name must not exceed %d characters.", models.MaxNameLength))
	}
	phone := strings.TrimSpace(in.PhoneNumber)
	if utf8.RuneCountInString(phone) > models.MaxPhoneLength {
		fields["phoneNumber"] = append(fields["phoneNumber"], fmt.Sprintf("Phone number must not exceed %d characters.", models.MaxPhoneLength))
	}
	if len(fields) > 0 {
		return resources.Customer{}, apperr.Validation(fields)
	}

	if _, err := s.store.Customers.FindByEmail(ctx, email); err == nil {
		return resources.Customer{}, duplicateEmail(email)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return resources.Customer{}, apperr.Internal(err)
	}

	c := models.Customer{ID: uuid.New(), Name: name, Email: email}
	if phone != "" {
		c.PhoneNumber = &phone
	}

	if err := s.store.Customers.Create(ctx, &c); err != nil {
		// Lost a race with another insert of the same email.
		if _, findErr := s.store.Customers.FindByEmail(ctx, email); findErr == nil {
			return resources.Customer{}, duplicateEmail(email)
		}
		return resources.Customer{}, apperr.Internal(err)
	}

	cache.Forget(ctx, s.cache, []string{keyCustomersAll})
	logger.WithCtx(ctx).Info("customer created", "customer_id", c.ID)
	event.Fire(EventCustomerCreated, CustomerCreated{CustomerID: c.ID, Email: email.String()})

	return resources.NewCustomer(c), nil
}

func duplicateEmail(email models.Email) error {
	return apperr.BusinessRule("Customer with email '%s' already exists.", email)
}

// All returns every customer with their orders.
func (s *CustomerService) All(ctx context.Context) ([]resources.Customer, error) {
	out, err := cache.Remember(ctx, s.cache, keyCustomersAll, s.ttl, func(ctx context.Context) ([]resources.Customer, error) {
		cs, err := s.store.Customers.All(ctx)
		if err != nil {
			return nil, err
		}
		return resources.NewCustomers(cs), nil
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// Find returns the customer with its orders, items and products.
func (s *CustomerService) Find(ctx context.Context, id uuid.UUID) (resources.Customer, bool, error) {
	c, ok, err := lookup(ctx, s.cache, customerKey(id), s.ttl, func(ctx context.Context) (resources.Customer, error) {
		c, err := s.store.Customers.FindByID(ctx, id)
		if err != nil {
			return resources.Customer{}, err
		}
		return resources.NewCustomer(*c), nil
	})
	if err != nil {
		return resources.Customer{}, false, apperr.Internal(err)
	}
	return c, ok, nil
}

// Get is Find with a NotFound error in place of the flag.
func (s *CustomerService) Get(ctx context.Context, id uuid.UUID) (resources.Customer, error) {
	c, ok, err := s.Find(ctx, id)
	if err != nil {
		return c, err
	}
	if !ok {
		return c, apperr.NotFound("Customer", id)
	}
	return c, nil
}
