package controllers

import (
	"github.com/shashiranjanraj/orderly/app/services"
	"github.com/shashiranjanraj/orderly/pkg/ctx"
)

type ProductController struct {
	products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

func (h *ProductController) Store(c *ctx.Context) {
	var body createProductRequest
	if !c.BindJSON(&body) {
		return
	}

	product, err := h.products.Create(c.Context(), services.CreateProductInput{
		Name:          body.Name,
		Price:         body.Price,
		StockQuantity: body.StockQuantity,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(product, "")
}

func (h *ProductController) Index(c *ctx.Context) {
	products, err := h.products.All(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(products)
}
