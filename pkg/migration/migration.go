// Package migration runs ordered, batch-tracked schema changes.
//
// Migrations register themselves from init() in database/migrations:
//
//	func init() {
//	    migration.Register("20260101000000_create_users_table", migration.Func{
//	        UpFn:   func(db *gorm.DB) error { return db.AutoMigrate(&models.User{}) },
//	        DownFn: func(db *gorm.DB) error { return db.Migrator().DropTable("users") },
//	    })
//	}
package migration

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mmsi/orderdesk/pkg/logger"
	"gorm.io/gorm"
)

type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// Func adapts a pair of functions to Migration.
type Func struct {
	UpFn   func(db *gorm.DB) error
	DownFn func(db *gorm.DB) error
}

func (f Func) Up(db *gorm.DB) error { return f.UpFn(db) }

func (f Func) Down(db *gorm.DB) error {
	if f.DownFn == nil {
		return nil
	}
	return f.DownFn(db)
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "schema_migrations" }

type entry struct {
	name string
	m    Migration
}

var (
	regMu    sync.Mutex
	registry []entry
)

// Register adds a migration. Names are timestamp-prefixed and run in
// lexical order.
func Register(name string, m Migration) {
	regMu.Lock()
	defer regMu.Unlock()
	registry = append(registry, entry{name: name, m: m})
}

func registered() []entry {
	regMu.Lock()
	defer regMu.Unlock()
	out := make([]entry, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Runner executes and tracks migrations against one database.
type Runner struct {
	db  *gorm.DB
	out io.Writer
}

func New(db *gorm.DB) *Runner {
	return &Runner{db: db, out: os.Stdout}
}

// WithOutput redirects progress lines; pass io.Discard to silence them.
func (r *Runner) WithOutput(w io.Writer) *Runner {
	r.out = w
	return r
}

func (r *Runner) ensureTable() error {
	return r.db.AutoMigrate(&record{})
}

func (r *Runner) applied() (map[string]record, error) {
	var rows []record
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	m := make(map[string]record, len(rows))
	for _, rec := range rows {
		m[rec.Name] = rec
	}
	return m, nil
}

// Run applies every pending migration as one new batch.
func (r *Runner) Run() error {
	if err := r.ensureTable(); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	done, err := r.applied()
	if err != nil {
		return fmt.Errorf("migration: fetch applied: %w", err)
	}

	var pending []entry
	for _, e := range registered() {
		if _, ok := done[e.name]; !ok {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return nil
	}

	batch := r.lastBatch() + 1
	for _, e := range pending {
		fmt.Fprintf(r.out, "  ▶ Migrating: %s\n", e.name)
		if err := e.m.Up(r.db); err != nil {
			return fmt.Errorf("migration: %s up: %w", e.name, err)
		}
		if err := r.db.Create(&record{Name: e.name, Batch: batch}).Error; err != nil {
			return fmt.Errorf("migration: record %s: %w", e.name, err)
		}
	}

	logger.Info("migration: done", "ran", len(pending), "batch", batch)
	return nil
}

// Rollback reverts the most recent batch, newest first.
func (r *Runner) Rollback() error {
	if err := r.ensureTable(); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	batch := r.lastBatch()
	if batch == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return nil
	}

	var rows []record
	if err := r.db.Where("batch = ?", batch).Order("id desc").Find(&rows).Error; err != nil {
		return err
	}

	byName := make(map[string]Migration)
	for _, e := range registered() {
		byName[e.name] = e.m
	}

	for _, rec := range rows {
		m, ok := byName[rec.Name]
		if !ok {
			return fmt.Errorf("migration: cannot roll back %s: not registered", rec.Name)
		}
		fmt.Fprintf(r.out, "  ◀ Rolling back: %s\n", rec.Name)
		if err := m.Down(r.db); err != nil {
			return fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if err := r.db.Delete(&rec).Error; err != nil {
			return err
		}
	}
	logger.Info("migration: rolled back", "batch", batch, "count", len(rows))
	return nil
}

// Status prints each registered migration and its batch.
func (r *Runner) Status() error {
	if err := r.ensureTable(); err != nil {
		return err
	}
	done, err := r.applied()
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "%-60s  %-8s  %s\n", "Migration", "Status", "Batch")
	for _, e := range registered() {
		if rec, ok := done[e.name]; ok {
			fmt.Fprintf(r.out, "%-60s  %-8s  %d\n", e.name, "Ran", rec.Batch)
		} else {
			fmt.Fprintf(r.out, "%-60s  %-8s  -\n", e.name, "Pending")
		}
	}
	return nil
}

func (r *Runner) lastBatch() int {
	var max struct{ Max int }
	r.db.Model(&record{}).Select("COALESCE(MAX(batch), 0) as max").Scan(&max)
	return max.Max
}
