package resources_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/orderly/app/models"
	"github.com/shashiranjanraj/orderly/app/resources"
)

func TestOrderJSONShape(t *testing.T) {
	orderID := uuid.MustParse("2b0b7c1e-6a2b-4d4e-9d6f-0c1c2a3b4d5e")
	customerID := uuid.MustParse("9a1f2e3d-4c5b-4a69-8877-665544332211")
	productID := uuid.MustParse("11111111-2222-4333-8444-555555555555")
	itemID := uuid.MustParse("aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee")

	o := models.Order{
		ID:          orderID,
		CustomerID:  customerID,
		TotalAmount: decimal.RequireFromString("65"),
		CreatedAt:   time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC),
		Status:      models.StatusPending,
		Items: []models.OrderItem{{
			ID:        itemID,
			OrderID:   orderID,
			ProductID: productID,
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("10"),
		}},
	}

	out, err := json.Marshal(resources.NewOrder(o))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "2b0b7c1e-6a2b-4d4e-9d6f-0c1c2a3b4d5e",
		"customerId": "9a1f2e3d-4c5b-4a69-8877-665544332211",
		"totalAmount": 65.00,
		"createdAt": "2024-03-04T05:06:07Z",
		"status": "Pending",
		"orderItems": [{
			"id": "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee",
			"orderId": "2b0b7c1e-6a2b-4d4e-9d6f-0c1c2a3b4d5e",
			"productId": "11111111-2222-4333-8444-555555555555",
			"quantity": 2,
			"unitPrice": 10.00
		}]
	}`, string(out))
	assert.Contains(t, string(out), `"totalAmount":65.00`)
}

func TestCustomerWithoutOrdersHasEmptyArray(t *testing.T) {
	email, err := models.NewEmail("ana@example.com")
	require.NoError(t, err)

	out, err := json.Marshal(resources.NewCustomer(models.Customer{ID: uuid.New(), Name: "Ana", Email: email}))
	require.NoError(t, err)

	assert.Contains(t, string(out), `"orders":[]`)
	assert.Contains(t, string(out), `"phoneNumber":null`)
}

func TestMoneyRoundTrip(t *testing.T) {
	var p resources.Product
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Tea","price":12.99,"stockQuantity":3}`), &p))
	assert.True(t, p.Price.Equal(decimal.RequireFromString("12.99")))
	assert.InDelta(t, 12.99, p.Price.Float(), 1e-9)
}

func TestOrderItemEmbedsProduct(t *testing.T) {
	prod := models.Product{ID: uuid.New(), Name: "Tea", Price: decimal.RequireFromString("2.5"), StockQuantity: 1}
	item := resources.NewOrderItem(models.OrderItem{ID: uuid.New(), ProductID: prod.ID, Quantity: 1, UnitPrice: prod.Price, Product: &prod})

	require.NotNil(t, item.Product)
	assert.Equal(t, "Tea", item.Product.Name)
}
