package controllers

import (
	"github.com/google/uuid"

	"github.com/shashiranjanraj/orderly/app/apperr"
	"github.com/shashiranjanraj/orderly/app/models"
	"github.com/shashiranjanraj/orderly/app/services"
	"github.com/shashiranjanraj/orderly/pkg/ctx"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

func (h *OrderController) Store(c *ctx.Context) {
	var body createOrderRequest
	if !c.BindJSON(&body) {
		return
	}

	// Both ids passed the uuid rule, so parsing cannot fail here.
	in := services.CreateOrderInput{CustomerID: uuid.MustParse(body.CustomerID)}
	for _, it := range body.Items {
		in.Items = append(in.Items, services.OrderLine{
			ProductID: uuid.MustParse(it.ProductID),
			Quantity:  it.Quantity,
		})
	}

	order, err := h.orders.Create(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(order, "/api/orders/"+order.ID.String())
}

func (h *OrderController) Show(c *ctx.Context) {
	id, ok := c.UUIDParam("id")
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(order)
}

// UpdateStatus moves the order in the path to the status in the body. The
// body repeats the order id, and the two must agree.
func (h *OrderController) UpdateStatus(c *ctx.Context) {
	id, ok := c.UUIDParam("id")
	if !ok {
		return
	}

	var body updateOrderStatusRequest
	if !c.BindJSON(&body) {
		return
	}

	if uuid.MustParse(body.OrderID) != id {
		c.Fail(apperr.Invalid("orderId", "Order ID in URL does not match the ID in the request body"))
		return
	}

	status, err := models.ParseOrderStatus(body.Status)
	if err != nil {
		c.Fail(apperr.Invalid("status", "Status must be a valid OrderStatus value."))
		return
	}

	order, err := h.orders.UpdateStatus(c.Context(), id, status)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(order)
}
