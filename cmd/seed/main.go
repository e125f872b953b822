// Command seed fills a development database with demo data.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"socialapi/internal/config"
	"socialapi/internal/database"
	"socialapi/internal/middleware"
	"socialapi/internal/seed"
)

func main() {
	preset := flag.String("preset", "demo", "preset to apply")
	presetFile := flag.String("presets", "", "optional YAML file with extra presets")
	clean := flag.Bool("clean", true, "clear existing rows first")
	fast := flag.Bool("fast", false, "skip password hashing (seeded users cannot log in)")
	randSeed := flag.Int64("seed", 0, "random seed for reproducible data")
	list := flag.Bool("list", false, "list presets and exit")
	flag.Parse()

	presets, err := seed.LoadPresets(*presetFile)
	if err != nil {
		fail("load presets", err)
	}
	if *list {
		for _, name := range presets.Names() {
			p := presets[name]
			middleware.Logger.Info("preset", slog.String("name", name),
				slog.Int("users", p.Users), slog.Int("posts", p.Posts))
		}
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fail("load configuration", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		fail("connect database", err)
	}

	s, err := seed.NewSeeder(db, seed.Options{RandSeed: *randSeed, SkipBcrypt: *fast})
	if err != nil {
		fail("create seeder", err)
	}

	ctx := context.Background()
	if *clean {
		if err := s.ClearAll(ctx); err != nil {
			fail("clear database", err)
		}
	}
	if _, err := s.ApplyPreset(ctx, presets, *preset); err != nil {
		fail("apply preset", err)
	}
	if !*fast {
		middleware.Logger.Info("seeded users share one password", slog.String("password", seed.DefaultPassword))
	}
}

func fail(step string, err error) {
	middleware.Logger.Error(step+" failed", slog.String("error", err.Error()))
	os.Exit(1)
}
