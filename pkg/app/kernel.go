package app

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/orderly/config"
	"github.com/shashiranjanraj/orderly/pkg/database"
	"github.com/shashiranjanraj/orderly/pkg/logger"
	"github.com/shashiranjanraj/orderly/pkg/metrics"
	"github.com/shashiranjanraj/orderly/pkg/middleware"
	"github.com/shashiranjanraj/orderly/pkg/reqid"
	"github.com/shashiranjanraj/orderly/pkg/response"
	"github.com/shashiranjanraj/orderly/pkg/router"
)

// Handler builds the HTTP kernel: the global middleware stack, the
// operational endpoints and every route callback.
func (a *Application) Handler(env Env) (http.Handler, error) {
	r, err := a.router(env)
	if err != nil {
		return nil, err
	}
	return r.Handler(), nil
}

func (a *Application) router(env Env) (*router.Router, error) {
	r := router.New()

	// Outermost first. The request id must precede the logger.
	r.Use(
		metrics.Middleware(),
		middleware.Recovery,
		reqid.Middleware(),
		middleware.Logger,
		middleware.CORS(config.CORSOrigins()),
		middleware.RateLimit(config.RateLimit(), time.Minute),
	)
	r.NotFound(response.NotFound)
	r.MethodNotAllowed(response.MethodNotAllowed)

	r.Get("/health", "health", health(env.DB))
	r.Get("/metrics", "metrics", metrics.Handler())

	for _, fn := range a.routes {
		if err := fn(r, env); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func health(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := database.Ping(ctx, db); err != nil {
			logger.WithCtx(r.Context()).Warn("health: database unreachable", "error", err)
			response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
