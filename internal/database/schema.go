package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"socialapi/internal/config"
	"socialapi/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted in DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid" // SQL migrations, then AutoMigrate outside production
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaPlan is what ApplySchema will do for a given configuration.
type schemaPlan struct {
	Mode string
	SQL  bool
	Auto bool
}

func isProduction(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging":
		return true
	}
	return false
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{Mode: cfg.DBSchemaMode}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}

	switch plan.Mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeHybrid:
		plan.SQL, plan.Auto = true, !isProduction(cfg.Env)
	case SchemaModeAuto:
		if isProduction(cfg.Env) && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto in %q needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.Auto = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

// The embedded SQL uses plpgsql triggers and CHECK constraints.
func supportsSQLMigrations(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// ApplySchema brings the database up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		if supportsSQLMigrations(db) {
			if err := RunMigrations(ctx, db); err != nil {
				return fmt.Errorf("sql migrations: %w", err)
			}
		} else {
			middleware.Logger.Warn("sql migrations need postgres, skipping", slog.String("dialect", db.Dialector.Name()))
		}
	}

	if plan.Auto {
		middleware.Logger.Info("auto-migrating models", slog.String("mode", plan.Mode), slog.String("env", cfg.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// SchemaStatus describes the schema plan and the state of every migration.
type SchemaStatus struct {
	Mode        string
	Environment string
	RunsSQL     bool
	RunsAuto    bool
	Migrations  []MigrationState
}

// Pending returns the migrations not yet applied.
func (s *SchemaStatus) Pending() []Migration {
	var out []Migration
	for _, m := range s.Migrations {
		if !m.Applied() {
			out = append(out, m.Migration)
		}
	}
	return out
}

// GetSchemaStatus reports what ApplySchema would do and which migrations
// have run. Migration states are listed even when the plan skips SQL.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	states, err := NewRunner(db, GetMigrations()).Status(ctx)
	if err != nil {
		return nil, err
	}
	return &SchemaStatus{
		Mode:        plan.Mode,
		Environment: cfg.Env,
		RunsSQL:     plan.SQL,
		RunsAuto:    plan.Auto,
		Migrations:  states,
	}, nil
}
