package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/arcanechess/backend/internal/api"
	"github.com/arcanechess/backend/internal/archive"
	"github.com/arcanechess/backend/internal/config"
	"github.com/arcanechess/backend/internal/database"
	"github.com/arcanechess/backend/internal/logging"
	"github.com/arcanechess/backend/internal/middleware"
	"github.com/arcanechess/backend/internal/migrations"
	"github.com/arcanechess/backend/internal/redis"
	"github.com/arcanechess/backend/internal/room"
	"github.com/arcanechess/backend/internal/ws"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// The match archive is optional: without DATABASE_URL the server runs
	// on Redis alone.
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if cfg.MigrateOnStart {
			if err := migrations.Run(cfg.DatabaseURL); err != nil {
				log.Fatal("failed to run migrations", zap.Error(err))
			}
			log.Info("migrations applied")
		}
	} else {
		log.Info("no DATABASE_URL set, match archive disabled")
	}

	store := room.NewStore(rdb, log)
	bridge := ws.NewBridge(rdb, log)
	hub := ws.NewHub(ctx, bridge, log)
	session := ws.NewSession(store, bridge, hub, log)
	rec := archive.NewRecorder(db, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg))
	api.SetupRoutes(router, store, bridge, session, rec, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	// Cancelling ctx already stops the bridge listeners; give in-flight
	// requests a grace period.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
