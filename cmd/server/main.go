package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/equinox/fleet-inspections/internal/config"
	"github.com/equinox/fleet-inspections/internal/database"
	"github.com/equinox/fleet-inspections/internal/handler"
	"github.com/equinox/fleet-inspections/internal/logger"
	"github.com/equinox/fleet-inspections/internal/middleware"
	"github.com/equinox/fleet-inspections/internal/queue"
	"github.com/equinox/fleet-inspections/internal/ratelimit"
	"github.com/equinox/fleet-inspections/internal/repository"
	"github.com/equinox/fleet-inspections/internal/router"
	"github.com/equinox/fleet-inspections/internal/service"
	"github.com/equinox/fleet-inspections/internal/utils"
)

// Set at build time with -ldflags.
var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(0).Fatal("invalid configuration", "error", err)
	}

	log := logger.New(cfg.LogLevel)
	if cfg.IsProduction() {
		log = logger.NewJSON(os.Stdout, cfg.LogLevel)
	}
	log.Info("starting server", "version", buildVersion, "date", buildDate, "commit", buildCommit, "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal("failed to apply migrations", "error", err)
		}
		log.Info("migrations applied")
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	} else if cfg.RateLimit.UsesRedis() || cfg.Cache.Enabled {
		log.Warn("redis unavailable, using in-memory rate limiting and no response cache", "addr", cfg.Redis.Addr)
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.UsesRedis() && rdb != nil {
		limiter = ratelimit.NewRedis(rdb, cfg.RateLimit.Prefix, log)
	} else {
		mem := ratelimit.NewMemory(ratelimit.WithSweepInterval(cfg.RateLimit.SweepInterval))
		defer mem.Close()
		limiter = mem
	}

	var cache middleware.CacheStore
	if rdb != nil {
		cache = middleware.NewRedisCache(rdb)
	}

	users := repository.NewUserRepo(db.DB)
	tokens := repository.NewTokenRepo(db.DB)
	inspections := repository.NewInspectionRepo(db.DB)

	signer := utils.NewSigner(cfg.Auth.Secret)
	hasher := utils.NewHasher(cfg.Auth.BcryptCost)

	sessions := service.NewSession(users, tokens, signer, hasher, service.SessionOptions{
		AccessTTL:          cfg.Auth.AccessTTL,
		RefreshedAccessTTL: cfg.Auth.RefreshedAccessTTL,
		RefreshTTL:         cfg.Auth.RefreshTTL,
		RefreshOnLogin:     cfg.Auth.RefreshOnLogin,
	}, log.With("component", "session"))

	var publisher service.EventPublisher
	var wg sync.WaitGroup
	if cfg.Queue.Enabled {
		publisher = queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name)
		consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.Name, cfg.Queue.LogDir, log.With("component", "consumer"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("queue consumer stopped", "error", err)
			}
		}()
	}

	e := router.New(router.Deps{
		Cfg:         cfg,
		Log:         log,
		Auth:        handler.NewAuthHandler(sessions, cfg.IsProduction(), log),
		Inspections: handler.NewInspectionHandler(service.NewInspections(inspections, publisher, log.With("component", "inspections")), log),
		Dev:         handler.NewDevHandler(service.NewUsers(users, hasher, log), db, cfg.TestUser, log),
		Verifier:    signer,
		Limiter:     limiter,
		Cache:       cache,
		DB:          db,
	})

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	wg.Wait()
}
