// Command seed provisions accounts from a YAML fixture. Cédulas that
// already exist are skipped, so the tool can be re-run safely.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/equinox/fleet-inspections/internal/config"
	"github.com/equinox/fleet-inspections/internal/database"
	"github.com/equinox/fleet-inspections/internal/logger"
	"github.com/equinox/fleet-inspections/internal/repository"
	"github.com/equinox/fleet-inspections/internal/service"
	"github.com/equinox/fleet-inspections/internal/utils"
)

func main() {
	path := flag.String("file", "users.yaml", "path to the accounts fixture")
	migrate := flag.Bool("migrate", false, "apply migrations before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New(0).Fatal("invalid configuration", "error", err)
	}
	log := logger.New(cfg.LogLevel)

	fixture, err := LoadFixture(*path)
	if err != nil {
		log.Fatal("failed to load fixture", "path", *path, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	if *migrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal("failed to apply migrations", "error", err)
		}
	}

	users := service.NewUsers(repository.NewUserRepo(db.DB), utils.NewHasher(cfg.Auth.BcryptCost), log)

	var created, skipped, failed int
	for _, in := range fixture.Users {
		_, err := users.Provision(ctx, in)
		switch {
		case errors.Is(err, service.ErrUserExists):
			skipped++
			log.Info("user exists, skipping", "cedula", in.Cedula)
		case err != nil:
			failed++
			log.Error("failed to provision user", "cedula", in.Cedula, "error", err)
		default:
			created++
		}
	}

	log.Info("seed finished", "created", created, "skipped", skipped, "failed", failed)
	if failed > 0 {
		db.Close()
		os.Exit(1)
	}
}
