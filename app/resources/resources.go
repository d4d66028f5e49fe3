// Package resources maps models to the JSON shapes served by the API.
// The mappers are pure; they never touch storage.
package resources

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/orderly/app/models"
	"github.com/shashiranjanraj/orderly/pkg/collection"
)

// Money renders as a JSON number with two decimals, e.g. 65.00.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money { return Money{d} }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}

// Float is for consumers that cannot carry decimals (GraphQL Float).
func (m Money) Float() float64 {
	f, _ := m.Float64()
	return f
}

type Product struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Price         Money     `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
}

type OrderItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"orderId"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	UnitPrice Money     `json:"unitPrice"`
	Product   *Product  `json:"product,omitempty"`
}

type Order struct {
	ID          uuid.UUID          `json:"id"`
	CustomerID  uuid.UUID          `json:"customerId"`
	TotalAmount Money              `json:"totalAmount"`
	CreatedAt   time.Time          `json:"createdAt"`
	Status      models.OrderStatus `json:"status"`
	OrderItems  []OrderItem        `json:"orderItems"`
}

type Customer struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber *string   `json:"phoneNumber"`
	Orders      []Order   `json:"orders"`
}

// Token is the login response. ExpiresIn is in minutes.
type Token struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresIn int    `json:"expiresIn"`
}

func NewProduct(p models.Product) Product {
	return Product{
		ID:            p.ID,
		Name:          p.Name,
		Price:         NewMoney(p.Price),
		StockQuantity: p.StockQuantity,
	}
}

func NewProducts(ps []models.Product) []Product {
	return collection.Map(ps, NewProduct)
}

func NewOrderItem(it models.OrderItem) OrderItem {
	out := OrderItem{
		ID:        it.ID,
		OrderID:   it.OrderID,
		ProductID: it.ProductID,
		Quantity:  it.Quantity,
		UnitPrice: NewMoney(it.UnitPrice),
	}
	if it.Product != nil {
		p := NewProduct(*it.Product)
		out.Product = &p
	}
	return out
}

func NewOrder(o models.Order) Order {
	return Order{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		TotalAmount: NewMoney(o.TotalAmount),
		CreatedAt:   o.CreatedAt.UTC(),
		Status:      o.Status,
		OrderItems:  collection.Map(o.Items, NewOrderItem),
	}
}

func NewOrders(orders []models.Order) []Order {
	return collection.Map(orders, NewOrder)
}

func NewCustomer(c models.Customer) Customer {
	return Customer{
		ID:          c.ID,
		Name:        c.Name,
		Email:       c.Email.String(),
		PhoneNumber: c.PhoneNumber,
		Orders:      NewOrders(c.Orders),
	}
}

func NewCustomers(cs []models.Customer) []Customer {
	return collection.Map(cs, NewCustomer)
}

// NewToken reports the remaining lifetime in whole minutes.
func NewToken(token string, expiresAt time.Time) Token {
	mins := int(time.Until(expiresAt).Round(time.Minute) / time.Minute)
	if mins < 0 {
		mins = 0
	}
	return Token{Token: token, TokenType: "Bearer", ExpiresIn: mins}
}
