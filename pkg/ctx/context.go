// Package ctx gives API handlers one value per request instead of the
// (http.ResponseWriter, *http.Request) pair, with the binding and reply
// helpers every controller needs:
//
//	func (h *OrderController) Show(c *ctx.Context) {
//	    id, ok := c.UUIDParam("id")
//	    if !ok {
//	        return // 400 already sent
//	    }
//	    order, err := h.orders.Get(c.Context(), id)
//	    if err != nil {
//	        c.Fail(err)
//	        return
//	    }
//	    c.OK(order)
//	}
//
//	orders.Get("/{id}", "orders.show", ctx.Wrap(h.Show))
package ctx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shashiranjanraj/orderly/pkg/bind"
	"github.com/shashiranjanraj/orderly/pkg/logger"
	"github.com/shashiranjanraj/orderly/pkg/response"
)

const validationDetail = "One or more validation errors occurred."

type HandlerFunc func(c *Context)

// Wrap adapts h to net/http.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(&Context{W: w, R: r})
	}
}

type Context struct {
	W http.ResponseWriter
	R *http.Request
}

func (c *Context) Context() context.Context { return c.R.Context() }

// Param is the chi path parameter key.
func (c *Context) Param(key string) string { return chi.URLParam(c.R, key) }

// UUIDParam parses a path parameter. A malformed id is answered with a 400
// keyed by the parameter name.
func (c *Context) UUIDParam(key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		c.Invalid(key, fmt.Sprintf("The %s must be a valid UUID.", key))
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON decodes and validates the body into dest. A body that cannot be
// decoded is reported under "body"; rule failures under their JSON names.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Invalid("body", err.Error())
		return false
	}
	if len(errs) == 0 {
		return true
	}
	fields := make(map[string][]string, len(errs))
	for k, v := range errs {
		fields[k] = []string{v}
	}
	response.ValidationError(c.W, c.R, validationDetail, fields)
	return false
}

func (c *Context) JSON(code int, v any) {
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(code)
	if err := json.NewEncoder(c.W).Encode(v); err != nil {
		logger.WithCtx(c.Context()).Warn("ctx: encode response", "error", err)
	}
}

func (c *Context) OK(v any) { c.JSON(http.StatusOK, v) }

// Created answers 201 with a Location header when location is non-empty.
func (c *Context) Created(v any, location string) {
	if location != "" {
		c.W.Header().Set("Location", location)
	}
	c.JSON(http.StatusCreated, v)
}

// Fail renders err as a problem. Anything that is not a known problem
// becomes an opaque 500 and is logged with the real cause.
func (c *Context) Fail(err error) {
	p := response.NewProblem(c.R, err)
	if p.Status >= http.StatusInternalServerError {
		logger.WithCtx(c.Context()).Error("request failed",
			"method", c.R.Method, "path", c.R.URL.Path, "error", err)
	}
	c.JSON(p.Status, p)
}

// Invalid sends a 400 for a single field.
func (c *Context) Invalid(field, msg string) {
	response.ValidationError(c.W, c.R, validationDetail, map[string][]string{field: {msg}})
}
