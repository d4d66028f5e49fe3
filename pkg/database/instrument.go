package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/orderly/pkg/metrics"
)

const startedAt = "orderly:started_at"

type register func(name string, fn func(*gorm.DB)) error

// instrument times every statement into the db query histogram, labelled
// by gorm processor.
func instrument(db *gorm.DB) error {
	cb := db.Callback()
	hooks := map[string][2]register{
		"select": {cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		"insert": {cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		"update": {cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		"delete": {cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		"raw":    {cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
		"row":    {cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
	}
	for op, h := range hooks {
		if err := h[0]("orderly:start_"+op, markStart); err != nil {
			return err
		}
		if err := h[1]("orderly:observe_"+op, observe(op)); err != nil {
			return err
		}
	}
	return nil
}

func markStart(db *gorm.DB) { db.InstanceSet(startedAt, time.Now()) }

func observe(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if v, ok := db.InstanceGet(startedAt); ok {
			if start, ok := v.(time.Time); ok {
				metrics.ObserveDBQuery(op, start)
			}
		}
	}
}
