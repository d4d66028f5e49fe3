// Package testutil opens throwaway SQLite databases with the full schema
// applied, for package tests that need real persistence.
package testutil

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	_ "github.com/shashiranjanraj/orderly/database/migrations"
	"github.com/shashiranjanraj/orderly/pkg/database"
	"github.com/shashiranjanraj/orderly/pkg/migration"
)

var (
	seq      atomic.Int64
	unsafeRE = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// NewDB returns a migrated in-memory database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("%s_%d", unsafeRE.ReplaceAllString(t.Name(), "_"), seq.Add(1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)

	_, err = migration.New(db, nil).Up(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
