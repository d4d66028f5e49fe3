// Package seeders loads reference data. Seeders must be safe to repeat:
// the server runs them on every boot when SEED_ON_BOOT is set.
package seeders

import (
	"context"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"
)

// Seeder fills one slice of reference data through tx.
type Seeder struct {
	Name string
	Run  func(ctx context.Context, tx *gorm.DB) error
}

// All runs in order. Later seeders may rely on rows from earlier ones.
var All = []Seeder{
	{Name: "products", Run: SeedProducts},
}

// RunAll applies All inside one transaction, so a failing seeder leaves
// nothing half loaded. Progress goes to out.
func RunAll(ctx context.Context, db *gorm.DB, out io.Writer) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range All {
			start := time.Now()
			if err := s.Run(ctx, tx); err != nil {
				return fmt.Errorf("seeders: %s: %w", s.Name, err)
			}
			fmt.Fprintf(out, "seeded %-12s %s\n", s.Name, time.Since(start).Round(time.Millisecond))
		}
		return nil
	})
}
