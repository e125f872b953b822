package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"socialapi/internal/middleware"

	"gorm.io/gorm"
)

// MigrationRecord is one row of migration_logs.
type MigrationRecord struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

func (MigrationRecord) TableName() string {
	return "migration_logs"
}

// MigrationState pairs a known migration with its applied time, if any.
type MigrationState struct {
	Migration
	AppliedAt *time.Time
}

// Applied reports whether the migration is recorded in migration_logs.
func (s MigrationState) Applied() bool { return s.AppliedAt != nil }

// Runner applies an ordered migration set and records each version.
// Every up or down script runs in the same transaction as its log row, so a
// failed script leaves no record behind.
type Runner struct {
	db  *gorm.DB
	set []Migration
}

// NewRunner returns a Runner over set, which must be sorted by version.
func NewRunner(db *gorm.DB, set []Migration) *Runner {
	return &Runner{db: db, set: set}
}

func (r *Runner) ensureLog(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("ensure migration_logs: %w", err)
	}
	return nil
}

func (r *Runner) applied(ctx context.Context) (map[int]MigrationRecord, error) {
	var rows []MigrationRecord
	if err := r.db.WithContext(ctx).Order("version ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	out := make(map[int]MigrationRecord, len(rows))
	for _, row := range rows {
		out[row.Version] = row
	}
	return out, nil
}

// Status lists every known migration in version order.
func (r *Runner) Status(ctx context.Context) ([]MigrationState, error) {
	if err := r.ensureLog(ctx); err != nil {
		return nil, err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkKnownVersions(done, r.set); err != nil {
		return nil, err
	}

	states := make([]MigrationState, 0, len(r.set))
	for _, m := range r.set {
		st := MigrationState{Migration: m}
		if row, ok := done[m.Version]; ok {
			at := row.AppliedAt
			st.AppliedAt = &at
		}
		states = append(states, st)
	}
	return states, nil
}

// Up applies every pending migration and returns how many ran.
func (r *Runner) Up(ctx context.Context) (int, error) {
	states, err := r.Status(ctx)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, st := range states {
		if st.Applied() {
			continue
		}
		m := st.Migration
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("apply %s: %w", m.String(), err)
		}
		middleware.Logger.Info("migration applied", slog.String("migration", m.String()))
		ran++
	}
	return ran, nil
}

// Down reverts version, which must be the newest applied migration.
func (r *Runner) Down(ctx context.Context, version int) error {
	states, err := r.Status(ctx)
	if err != nil {
		return err
	}

	var target, latest *MigrationState
	for i := range states {
		if states[i].Version == version {
			target = &states[i]
		}
		if states[i].Applied() {
			latest = &states[i]
		}
	}
	switch {
	case target == nil:
		return fmt.Errorf("migration %06d not found", version)
	case !target.Applied():
		return fmt.Errorf("migration %s has not been applied", target.String())
	case latest.Version != version:
		return fmt.Errorf("migration %s is not the latest applied (roll back %s first)", target.String(), latest.String())
	}

	m := target.Migration
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return err
		}
		return tx.Delete(&MigrationRecord{}, version).Error
	})
	if err != nil {
		return fmt.Errorf("roll back %s: %w", m.String(), err)
	}
	middleware.Logger.Info("migration rolled back", slog.String("migration", m.String()))
	return nil
}

// checkKnownVersions refuses to run against a database migrated by a newer build.
func checkKnownVersions(done map[int]MigrationRecord, set []Migration) error {
	known := make(map[int]bool, len(set))
	for _, m := range set {
		known[m.Version] = true
	}

	var unknown []int
	for v := range done {
		if !known[v] {
			unknown = append(unknown, v)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	names := make([]string, len(unknown))
	for i, v := range unknown {
		names[i] = fmt.Sprintf("%06d", v)
	}
	return fmt.Errorf("migration_logs has versions this build does not know: %s", strings.Join(names, ", "))
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	_, err := NewRunner(db, GetMigrations()).Up(ctx)
	return err
}

// RollbackMigration reverts the newest applied embedded migration, which must be version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return NewRunner(db, GetMigrations()).Down(ctx, version)
}
