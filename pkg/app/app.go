// Package app is the application runner: it owns the CLI, builds the HTTP
// kernel and boots the infrastructure the route callbacks depend on.
//
//	func main() {
//	    app.New("orderly").
//	        Routes(routes.Mount).
//	        Seeder(seeders.RunAll).
//	        Boot(listeners.Boot).
//	        Run()
//	}
//
// Migrations register themselves from init() and are pulled in with a blank
// import of the migrations package.
package app

import (
	"context"
	"io"
	"os"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/orderly/pkg/cache"
	"github.com/shashiranjanraj/orderly/pkg/router"
)

// Env is the infrastructure handed to route callbacks. Both fields are nil
// when routes are only being listed.
type Env struct {
	DB    *gorm.DB
	Cache cache.Store
}

// RouteFunc mounts routes on r.
type RouteFunc func(r *router.Router, env Env) error

// SeedFunc fills the database with reference data, reporting on out. It
// must be idempotent.
type SeedFunc func(ctx context.Context, db *gorm.DB, out io.Writer) error

// Application collects the project callbacks. Build one with New.
type Application struct {
	name   string
	routes []RouteFunc
	seed   SeedFunc
	boot   []func() func()
}

func New(name string) *Application {
	return &Application{name: name}
}

// Routes adds a route callback. Callbacks run in the order added.
func (a *Application) Routes(fn RouteFunc) *Application {
	a.routes = append(a.routes, fn)
	return a
}

// Seeder sets the seed function used by `seed` and by serve when
// SEED_ON_BOOT is on.
func (a *Application) Seeder(fn SeedFunc) *Application {
	a.seed = fn
	return a
}

// Boot adds a hook run once before serving, e.g. event listener setup.
// The func it returns, if any, runs at shutdown.
func (a *Application) Boot(fn func() func()) *Application {
	a.boot = append(a.boot, fn)
	return a
}

// Run executes the CLI with os.Args and exits non-zero on failure.
func (a *Application) Run() {
	if err := a.Command().Execute(); err != nil {
		os.Exit(1)
	}
}
