// Package routes mounts the HTTP API on the router.
package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/orderly/app/controllers"
	appgraphql "github.com/shashiranjanraj/orderly/app/graphql"
	"github.com/shashiranjanraj/orderly/app/repositories"
	"github.com/shashiranjanraj/orderly/app/services"
	"github.com/shashiranjanraj/orderly/config"
	"github.com/shashiranjanraj/orderly/pkg/app"
	"github.com/shashiranjanraj/orderly/pkg/cache"
	"github.com/shashiranjanraj/orderly/pkg/ctx"
	"github.com/shashiranjanraj/orderly/pkg/graphql"
	"github.com/shashiranjanraj/orderly/pkg/middleware"
	"github.com/shashiranjanraj/orderly/pkg/rbac"
	"github.com/shashiranjanraj/orderly/pkg/router"
)

// Mount builds the services over env and registers the API. It is the
// route callback handed to the application runner.
func Mount(r *router.Router, env app.Env) error {
	svc := services.New(repositories.NewStore(env.DB), services.Options{
		Cache:    env.Cache,
		CacheTTL: config.CacheTTL(),
		Auth: services.AuthConfig{
			Username: config.AdminUsername(),
			Password: config.AdminPassword(),
		},
	})
	return RegisterAPI(r, svc, Options{
		AuthRequired:   config.AuthRequired(),
		Cache:          env.Cache,
		IdempotencyTTL: config.IdempotencyTTL(),
	})
}

// Options tunes RegisterAPI.
type Options struct {
	// AuthRequired makes the mutating routes demand an admin bearer token.
	AuthRequired bool
	// Cache stores replayable order responses; nil disables idempotency keys.
	Cache          cache.Store
	IdempotencyTTL time.Duration
}

// RegisterAPI mounts every /api route. Reads stay public.
func RegisterAPI(r *router.Router, svc *services.Services, opts Options) error {
	schema, err := appgraphql.NewSchema(svc)
	if err != nil {
		return fmt.Errorf("routes: graphql schema: %w", err)
	}

	authController := controllers.NewAuthController(svc.Auth)
	customerController := controllers.NewCustomerController(svc.Customers, svc.Orders)
	productController := controllers.NewProductController(svc.Products)
	orderController := controllers.NewOrderController(svc.Orders)

	guard := func(next http.Handler) http.Handler { return next }
	if opts.AuthRequired {
		guard = func(next http.Handler) http.Handler {
			return middleware.Auth(true)(rbac.HasRole(services.AdminRole)(next))
		}
	}

	api := r.Group("/api")
	api.Post("/auth/login", "auth.login", ctx.Wrap(authController.Login))

	customers := api.Group("/customers")
	customers.Post("/", "customers.store", ctx.Wrap(customerController.Store), guard)
	customers.Get("/", "customers.index", ctx.Wrap(customerController.Index))
	customers.Get("/{id}", "customers.show", ctx.Wrap(customerController.Show))
	customers.Get("/{id}/orders", "customers.orders", ctx.Wrap(customerController.Orders))

	products := api.Group("/products")
	products.Post("/", "products.store", ctx.Wrap(productController.Store), guard)
	products.Get("/", "products.index", ctx.Wrap(productController.Index))

	orders := api.Group("/orders")
	orders.Post("/", "orders.store", ctx.Wrap(orderController.Store),
		guard, middleware.Idempotent(opts.Cache, opts.IdempotencyTTL))
	orders.Get("/{id}", "orders.show", ctx.Wrap(orderController.Show))
	orders.Put("/{id}/status", "orders.status", ctx.Wrap(orderController.UpdateStatus), guard)

	api.Post("/graphql", "graphql", graphql.Handler(schema))
	return nil
}
