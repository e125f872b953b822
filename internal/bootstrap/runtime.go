// Package bootstrap connects the runtime dependencies shared by the server
// and the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"socialapi/internal/cache"
	"socialapi/internal/config"
	"socialapi/internal/database"
	"socialapi/internal/middleware"
	"socialapi/internal/models"
	"socialapi/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedPreset, when set, seeds an empty development database.
	SeedPreset string
}

// InitRuntime connects to the database and Redis. The Redis client is nil
// when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.InitRedis(cfg.RedisURL)

	if opts.SeedPreset != "" {
		if err := seedIfEmpty(cfg, db, opts.SeedPreset); err != nil {
			return nil, nil, fmt.Errorf("seed %s: %w", opts.SeedPreset, err)
		}
	}
	return db, r, nil
}

// seedIfEmpty only ever touches development databases without users.
func seedIfEmpty(cfg *config.Config, db *gorm.DB, preset string) error {
	if env := strings.ToLower(strings.TrimSpace(cfg.Env)); env != "development" && env != "dev" {
		middleware.Logger.Warn("skipping seed outside development", slog.String("env", cfg.Env))
		return nil
	}

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	s, err := seed.NewSeeder(db, seed.Options{})
	if err != nil {
		return err
	}
	_, err = s.ApplyPreset(context.Background(), seed.BuiltinPresets(), preset)
	return err
}
