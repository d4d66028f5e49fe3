package controllers

import (
	"github.com/shashiranjanraj/orderly/app/services"
	"github.com/shashiranjanraj/orderly/pkg/ctx"
)

type CustomerController struct {
	customers *services.CustomerService
	orders    *services.OrderService
}

func NewCustomerController(customers *services.CustomerService, orders *services.OrderService) *CustomerController {
	return &CustomerController{customers: customers, orders: orders}
}

func (h *CustomerController) Store(c *ctx.Context) {
	var body createCustomerRequest
	if !c.BindJSON(&body) {
		return
	}

	customer, err := h.customers.Create(c.Context(), services.CreateCustomerInput{
		Name:        body.Name,
		Email:       body.Email,
		PhoneNumber: body.PhoneNumber,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(customer, "/api/customers/"+customer.ID.String())
}

func (h *CustomerController) Index(c *ctx.Context) {
	customers, err := h.customers.All(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(customers)
}

func (h *CustomerController) Show(c *ctx.Context) {
	id, ok := c.UUIDParam("id")
	if !ok {
		return
	}

	customer, err := h.customers.Get(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(customer)
}

// Orders lists the customer's orders, newest first.
func (h *CustomerController) Orders(c *ctx.Context) {
	id, ok := c.UUIDParam("id")
	if !ok {
		return
	}

	orders, err := h.orders.ForCustomer(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(orders)
}
