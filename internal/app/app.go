package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchroom/internal/controller"
	"github.com/sharetube/watchroom/internal/hub"
	chatGorm "github.com/sharetube/watchroom/internal/repository/chat/gorm"
	directoryGorm "github.com/sharetube/watchroom/internal/repository/directory/gorm"
	queueGorm "github.com/sharetube/watchroom/internal/repository/queue/gorm"
	roomRedis "github.com/sharetube/watchroom/internal/repository/room/redis"
	"github.com/sharetube/watchroom/internal/service/room"
	"github.com/sharetube/watchroom/internal/service/roomstate"
	"github.com/sharetube/watchroom/pkg/ctxlogger"
	"github.com/sharetube/watchroom/pkg/dbclient"
	"github.com/sharetube/watchroom/pkg/redisclient"
	"gorm.io/gorm"
)

type AppConfig struct {
	Secret            string        `json:"-"`
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	LogLevel          string        `json:"log_level"`
	RedisPort         int           `json:"redis_port"`
	RedisHost         string        `json:"redis_host"`
	RedisPassword     string        `json:"-"`
	DBDialect         string        `json:"db_dialect"`
	DBDSN             string        `json:"-"`
	DBAutoMigrate     bool          `json:"db_auto_migrate"`
	StateTTL          time.Duration `json:"state_ttl"`
	ReconcileInterval time.Duration `json:"reconcile_interval"`
	MirrorWorkers     int           `json:"mirror_workers"`
	PlaybackAuthority string        `json:"playback_authority"`
	WsRateLimit       float64       `json:"ws_rate_limit"`
	WsRateBurst       int           `json:"ws_rate_burst"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return errors.New("secret must not be empty")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.DBDialect != "postgres" && cfg.DBDialect != "sqlite" {
		return fmt.Errorf("db dialect must be postgres or sqlite, got %q", cfg.DBDialect)
	}
	if cfg.DBDSN == "" {
		return errors.New("db dsn must not be empty")
	}
	if cfg.StateTTL < time.Second {
		return errors.New("state ttl must be at least 1s")
	}
	if cfg.ReconcileInterval <= 0 {
		return errors.New("reconcile interval must be greater than 0")
	}
	if cfg.MirrorWorkers < 1 {
		return errors.New("mirror workers must be greater than 0")
	}
	if cfg.PlaybackAuthority != room.PlaybackAuthorityAny && cfg.PlaybackAuthority != room.PlaybackAuthorityAdmins {
		return fmt.Errorf("playback authority must be %q or %q", room.PlaybackAuthorityAny, room.PlaybackAuthorityAdmins)
	}
	if cfg.WsRateLimit < 0 {
		return errors.New("ws rate limit must not be negative")
	}
	if cfg.WsRateLimit > 0 && cfg.WsRateBurst < 1 {
		return errors.New("ws rate burst must be greater than 0")
	}

	return nil
}

type iRoomService interface {
	RunReconciler(ctx context.Context, interval time.Duration)
	Wait()
}

// newHandler wires repositories, services and the controller over the given clients.
func newHandler(ctx context.Context, cfg *AppConfig, logger *slog.Logger, rc *redis.Client, db *gorm.DB) (http.Handler, iRoomService, error) {
	queueRepo := queueGorm.NewRepo(db, logger)
	chatRepo := chatGorm.NewRepo(db, logger)
	directoryRepo := directoryGorm.NewRepo(db, logger)
	if cfg.DBAutoMigrate {
		if err := queueRepo.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate queue tables: %w", err)
		}
		if err := chatRepo.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate chat tables: %w", err)
		}
		if err := directoryRepo.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate directory tables: %w", err)
		}
	}

	store := roomstate.New(&roomstate.Config{
		CacheRepo:    roomRedis.NewRepo(rc, logger, cfg.StateTTL),
		SnapshotRepo: queueRepo,
		Logger:       logger,
	})

	h := hub.New(logger)
	roomService := room.New(&room.Config{
		StateStore:        store,
		QueueRepo:         queueRepo,
		ChatRepo:          chatRepo,
		Directory:         directoryRepo,
		Publisher:         h,
		Logger:            logger,
		PlaybackAuthority: cfg.PlaybackAuthority,
		MirrorWorkers:     cfg.MirrorWorkers,
	})

	c := controller.New(&controller.Config{
		RoomService: roomService,
		Hub:         h,
		Logger:      logger,
		Secret:      cfg.Secret,
		Client: hub.ClientConfig{
			RateLimit: cfg.WsRateLimit,
			RateBurst: cfg.WsRateBurst,
		},
	})

	return c.GetMux(), roomService, nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:             cfg.RedisPort,
		Host:             cfg.RedisHost,
		Password:         cfg.RedisPassword,
		AllowUnavailable: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	db, err := dbclient.Open(&dbclient.Config{
		Dialect:  cfg.DBDialect,
		DSN:      cfg.DBDSN,
		Attempts: 5,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	handler, roomService, err := newHandler(ctx, cfg, logger, rc, db)
	if err != nil {
		return err
	}

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: handler}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	reconcilerCtx, stopReconciler := context.WithCancel(context.Background())
	defer stopReconciler()
	reconcilerDone := make(chan struct{})
	go func() {
		defer close(reconcilerDone)
		roomService.RunReconciler(reconcilerCtx, cfg.ReconcileInterval)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		select {
		case <-sig:
		case <-serverCtx.Done():
		}

		shutdownCtx, c := context.WithTimeout(context.Background(), 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "failed to shutdown server", "error", err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	stopReconciler()
	<-reconcilerDone
	roomService.Wait()
	logger.Info("server stopped")

	return nil
}
