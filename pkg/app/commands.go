package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/orderly/config"
	"github.com/shashiranjanraj/orderly/internal/server"
	"github.com/shashiranjanraj/orderly/pkg/cache"
	"github.com/shashiranjanraj/orderly/pkg/database"
	"github.com/shashiranjanraj/orderly/pkg/grpc"
	"github.com/shashiranjanraj/orderly/pkg/logger"
	"github.com/shashiranjanraj/orderly/pkg/migration"
)

// Command returns the root cobra command. Running it with no sub-command
// serves the API.
func (a *Application) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           a.name,
		Short:         a.name + " order management API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	serve := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start", "run"},
		Short:   "Start the HTTP API (and the gRPC health server when GRPC_PORT is set)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	root.RunE = serve.RunE

	root.AddCommand(
		serve,
		&cobra.Command{
			Use:   "migrate",
			Short: "Run all pending database migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := bootDB(cmd.Context())
				if err != nil {
					return err
				}
				_, err = migration.New(db, cmd.OutOrStdout()).Up(cmd.Context())
				return err
			},
		},
		&cobra.Command{
			Use:     "migrate:rollback",
			Aliases: []string{"migrate:down"},
			Short:   "Roll back the last batch of migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := bootDB(cmd.Context())
				if err != nil {
					return err
				}
				_, err = migration.New(db, cmd.OutOrStdout()).Down(cmd.Context())
				return err
			},
		},
		&cobra.Command{
			Use:   "migrate:status",
			Short: "Show which migrations have run",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := bootDB(cmd.Context())
				if err != nil {
					return err
				}
				states, err := migration.New(db, nil).Status(cmd.Context())
				if err != nil {
					return err
				}
				return migration.PrintStatus(cmd.OutOrStdout(), states)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Seed reference data",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if a.seed == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No seeder configured.")
					return nil
				}
				db, err := bootDB(cmd.Context())
				if err != nil {
					return err
				}
				return a.seed(cmd.Context(), db, cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:     "route:list",
			Aliases: []string{"routes"},
			Short:   "List the registered routes",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.listRoutes(cmd)
			},
		},
	)
	return root
}

func (a *Application) serve(ctx context.Context) error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if uri := config.LogMongoURI(); uri != "" {
		closeSink, err := logger.EnableMongo(logger.MongoOptions{
			URI:        uri,
			Database:   config.LogMongoDB(),
			Collection: config.LogMongoCollection(),
			Retention:  config.LogMongoRetention(),
			MinLevel:   config.LogMongoLevel(),
		})
		if err != nil {
			logger.Warn("logger: mongo sink disabled", "error", err)
		}
		defer closeSink()
	}

	db, err := bootDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if config.AutoMigrate() {
		if _, err := migration.New(db, nil).Up(ctx); err != nil {
			return err
		}
	}
	if config.SeedOnBoot() && a.seed != nil {
		if err := a.seed(ctx, db, logWriter{}); err != nil {
			return err
		}
	}

	store, err := cache.Connect(ctx)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	logger.Info("cache: ready", "driver", store.Driver())

	for _, fn := range a.boot {
		if stop := fn(); stop != nil {
			defer stop()
		}
	}

	handler, err := a.Handler(Env{DB: db, Cache: store})
	if err != nil {
		return err
	}

	opts := server.Options{Addr: ":" + config.AppPort(), Handler: handler}
	if port := config.GRPCPort(); port != "" {
		gs, err := grpc.Listen(":"+port, func(ctx context.Context) error {
			return database.Ping(ctx, db)
		})
		if err != nil {
			return err
		}
		opts.GRPC = gs
	}

	logger.Info("orderly starting", "env", config.AppEnv(), "db", config.DatabaseDriver())
	return server.Run(ctx, opts)
}

func (a *Application) listRoutes(cmd *cobra.Command) error {
	r, err := a.router(Env{})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATH\tNAME")
	for _, ri := range r.Routes() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return tw.Flush()
}

// bootDB loads config and opens the configured database.
func bootDB(ctx context.Context) (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return database.OpenWith(ctx, database.FromConfig())
}

// logWriter sends seeder progress to the structured log during serve.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logger.Debug("seed", "output", string(p))
	return len(p), nil
}
