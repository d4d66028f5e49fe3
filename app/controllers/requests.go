package controllers

import "github.com/shopspring/decimal"

// Request bodies. Field names match the JSON the front end sends.

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createCustomerRequest struct {
	Name        string `json:"name"        validate:"required,max=200" messages:"required=Name is required.;max=Name must not exceed 200 characters."`
	Email       string `json:"email"       validate:"required,max=320" messages:"required=Email is required.;max=Email must not exceed 320 characters."`
	PhoneNumber string `json:"phoneNumber" validate:"nullable,max=20"  messages:"max=Phone number must not exceed 20 characters."`
}

type createProductRequest struct {
	Name          string          `json:"name"          validate:"required,max=200" messages:"required=Name is required.;max=Name must not exceed 200 characters."`
	Price         decimal.Decimal `json:"price"         validate:"gte=0,scale=2"    messages:"gte=Price must be zero or greater.;scale=Price cannot have more than two decimal places."`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"            messages:"gte=Stock quantity must be zero or greater."`
}

type orderItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid" messages:"required=Product ID is required.;uuid=Product ID must be a valid UUID."`
	Quantity  int    `json:"quantity"  validate:"gt=0"          messages:"gt=Quantity must be greater than zero."`
}

type createOrderRequest struct {
	CustomerID string             `json:"customerId" validate:"required,uuid" messages:"required=Customer ID is required.;uuid=Customer ID must be a valid UUID."`
	Items      []orderItemRequest `json:"items"      validate:"required,dive" messages:"required=Order must contain at least one item."`
}

type updateOrderStatusRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid" messages:"required=Order ID is required.;uuid=Order ID must be a valid UUID."`
	Status  string `json:"status"  validate:"required"      messages:"required=Status must be a valid OrderStatus value."`
}
