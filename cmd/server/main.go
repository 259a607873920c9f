package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayush/exercise-tracker/internal/config"
	"github.com/ayush/exercise-tracker/internal/logger"
	"github.com/ayush/exercise-tracker/internal/server"
	"github.com/ayush/exercise-tracker/internal/store"
	"github.com/ayush/exercise-tracker/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogDir, "exercise-tracker", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx := context.Background()

	// ── Store ────────────────────────────────────────────────
	db, err := openStore(ctx, cfg)
	if err != nil {
		lg.Fatalf("store: %v", err)
	}

	// ── Redis user cache ─────────────────────────────────────
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			lg.Fatalf("redis connect: %v", err)
		}
		db = store.NewCachedStore(db, rdb, cfg.UserCacheTTL, lg)
		lg.Infof("user cache enabled at %s (ttl %s)", cfg.RedisAddr, cfg.UserCacheTTL)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			lg.Errorf("store close: %v", err)
		}
	}()

	if err := db.SyncIndexes(ctx); err != nil {
		lg.Warnf("index sync: %v", err)
	}

	// ── Handlers / router ────────────────────────────────────
	svc := tracker.NewService(db, lg)
	h := tracker.NewHandler(svc, lg, cfg.IndexFile)
	router := server.NewRouter(server.Options{
		PublicDir:   cfg.PublicDir,
		CORSOrigins: cfg.CORSOrigins,
	}, h, db, lg)

	// ── Server ───────────────────────────────────────────────
	srv := server.New(server.Config{
		Address:      ":" + cfg.Port,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, router)

	go func() {
		lg.Infof("listening on :%s (store=%s)", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Infof("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		lg.Errorf("shutdown: %v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pg, err := store.ConnectPostgres(connectCtx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(connectCtx); err != nil {
			pg.Close(ctx)
			return nil, err
		}
		return pg, nil
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	default:
		m, err := store.ConnectMongo(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}
