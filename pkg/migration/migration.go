// Package migration applies the registered schema steps in name order and
// remembers them, grouped in batches, in the schema_migrations table. A
// rollback undoes the newest batch.
//
//	func init() {
//	    migration.Register("20250101000001_create_customers_table", &CreateCustomersTable{})
//	}
package migration

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/orderly/pkg/logger"
)

// Migration is one reversible schema step. Both directions get a
// transaction handle.
type Migration interface {
	Up(tx *gorm.DB) error
	Down(tx *gorm.DB) error
}

type applied struct {
	Name      string    `gorm:"primaryKey;size:255"`
	Batch     int       `gorm:"index;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (applied) TableName() string { return "schema_migrations" }

var (
	mu    sync.Mutex
	steps = map[string]Migration{}
)

// Register adds m under name. Registering a name twice panics.
func Register(name string, m Migration) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := steps[name]; dup {
		panic("migration: duplicate name " + name)
	}
	steps[name] = m
}

func names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(steps))
	for n := range steps {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func lookup(name string) (Migration, bool) {
	mu.Lock()
	defer mu.Unlock()
	m, ok := steps[name]
	return m, ok
}

// State is one row of Status.
type State struct {
	Name  string
	Batch int // 0 while pending
	At    time.Time
}

func (s State) Pending() bool { return s.Batch == 0 }

type Runner struct {
	db  *gorm.DB
	out io.Writer
}

// New returns a runner that narrates progress to out. A nil out is silent.
func New(db *gorm.DB, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{db: db, out: out}
}

func (r *Runner) ledger(ctx context.Context) (map[string]applied, error) {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(&applied{}); err != nil {
		return nil, fmt.Errorf("migration: ledger table: %w", err)
	}
	var rows []applied
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: read ledger: %w", err)
	}
	done := make(map[string]applied, len(rows))
	for _, row := range rows {
		done[row.Name] = row
	}
	return done, nil
}

// Pending names the registered steps not yet applied.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	done, err := r.ledger(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names() {
		if _, ok := done[n]; !ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Up applies every pending step as one new batch and reports how many ran.
// Each step commits with its ledger row; a failure stops the batch but
// keeps the steps before it.
func (r *Runner) Up(ctx context.Context) (int, error) {
	done, err := r.ledger(ctx)
	if err != nil {
		return 0, err
	}
	batch := 1
	for _, row := range done {
		batch = max(batch, row.Batch+1)
	}

	ran := 0
	for _, name := range names() {
		if _, ok := done[name]; ok {
			continue
		}
		m, _ := lookup(name)
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&applied{Name: name, Batch: batch, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("migration: up %s: %w", name, err)
		}
		ran++
		fmt.Fprintf(r.out, "migrated     %s\n", name)
	}

	if ran == 0 {
		fmt.Fprintln(r.out, "schema is up to date")
		return 0, nil
	}
	logger.Info("migration: applied", "count", ran, "batch", batch)
	return ran, nil
}

// Down reverts the newest batch, last step first, and reports how many
// steps it undid.
func (r *Runner) Down(ctx context.Context) (int, error) {
	done, err := r.ledger(ctx)
	if err != nil {
		return 0, err
	}
	var newest []applied
	for _, row := range done {
		switch {
		case len(newest) == 0 || row.Batch > newest[0].Batch:
			newest = []applied{row}
		case row.Batch == newest[0].Batch:
			newest = append(newest, row)
		}
	}
	if len(newest) == 0 {
		fmt.Fprintln(r.out, "nothing to roll back")
		return 0, nil
	}
	slices.SortFunc(newest, func(a, b applied) int { return strings.Compare(b.Name, a.Name) })

	undone := 0
	for _, row := range newest {
		m, ok := lookup(row.Name)
		if !ok {
			return undone, fmt.Errorf("migration: %s is recorded but not registered", row.Name)
		}
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&applied{}, "name = ?", row.Name).Error
		})
		if err != nil {
			return undone, fmt.Errorf("migration: down %s: %w", row.Name, err)
		}
		undone++
		fmt.Fprintf(r.out, "rolled back  %s\n", row.Name)
	}
	logger.Info("migration: rolled back", "count", undone, "batch", newest[0].Batch)
	return undone, nil
}

// Status lists every registered step with its batch, in name order.
func (r *Runner) Status(ctx context.Context) ([]State, error) {
	done, err := r.ledger(ctx)
	if err != nil {
		return nil, err
	}
	all := names()
	out := make([]State, len(all))
	for i, n := range all {
		out[i] = State{Name: n}
		if row, ok := done[n]; ok {
			out[i].Batch, out[i].At = row.Batch, row.AppliedAt
		}
	}
	return out, nil
}

// PrintStatus renders states as a table.
func PrintStatus(w io.Writer, states []State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MIGRATION\tBATCH\tAPPLIED")
	for _, s := range states {
		if s.Pending() {
			fmt.Fprintf(tw, "%s\t-\tpending\n", s.Name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, s.Batch, s.At.Format(time.RFC3339))
	}
	return tw.Flush()
}
