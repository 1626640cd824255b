package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"focusroom/config"
	"focusroom/internal/api"
	"focusroom/internal/catalog"
	"focusroom/internal/core"
	"focusroom/internal/events"
	"focusroom/internal/focus"
	"focusroom/internal/logging"
	"focusroom/internal/notify"
	"focusroom/internal/scheduler"
	"focusroom/internal/storage"
	"focusroom/internal/storage/sqlite"
	"focusroom/internal/watch"
)

const (
	shutdownTimeout   = 10 * time.Second
	defaultConfigPath = "config.json"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from FOCUSROOM_* environment variables")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *useEnv {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Logging.Format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
	slog.SetDefault(logger)
	logger.Info("Starting focusroom", "version", version, "address", cfg.Address())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Initializing SQLite database", "path", cfg.Database.Path)
	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	store := storage.NewWriteBehind(db, storage.WriteBehindConfig{
		QueueSize:   cfg.Database.WriteQueueSize,
		MaxAttempts: cfg.Database.WriteMaxAttempts,
	}, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
		if n := store.Dropped(); n > 0 {
			logger.Warn("Persistence writes dropped during run", "count", n)
		}
	}()

	sink := events.MultiSink{events.NewLogSink(logger, slog.LevelInfo)}
	var notifier *notify.Notifier
	if cfg.Notify.Enabled() {
		notifier, err = notify.NewTelegram(cfg.Notify.TelegramToken, notify.Config{
			ChatID:     cfg.Notify.TelegramChatID,
			Milestones: cfg.Notify.Milestones,
		}, logger)
		if err != nil {
			logger.Warn("Telegram notifications disabled", "error", err)
		} else {
			sink = append(sink, notifier)
		}
	}

	rules := catalog.LoadOrBuiltin(ctx, cfg.Policy.CatalogDir, logger)
	settings := loadSettingsFile(cfg.Policy.SettingsPath, logger)

	svc, err := focus.New(ctx, focus.Options{
		Store:           store,
		Sink:            sink,
		Logger:          logger,
		Catalog:         rules,
		Settings:        settings,
		MaxGrantMinutes: cfg.Session.MaxGrantMinutes,
		HistoryLimit:    cfg.Session.HistoryLimit,
		Milestones:      cfg.ActiveMilestones(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize focus service: %w", err)
	}
	service := logging.NewFocusServiceLogger(svc, logger)

	sched := scheduler.NewScheduler(svc, core.RealClock{}, cfg.SchedulerInterval(), logger)

	server := &http.Server{
		Addr: cfg.Address(),
		Handler: api.NewRouter(api.RouterConfig{
			Service: service,
			APIKey:  cfg.Security.APIKey,
			Version: version,
			Logger:  logger,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})

	if notifier != nil {
		g.Go(func() error {
			return notifier.Run(gctx)
		})
	}

	if cfg.Policy.Watch {
		watcher, err := watch.New(service, watch.Config{
			CatalogDir:   cfg.Policy.CatalogDir,
			SettingsPath: cfg.Policy.SettingsPath,
			Debounce:     cfg.WatchDebounce(),
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize file watcher: %w", err)
		}
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// loadSettingsFile returns the settings file contents, or nil when there is none
func loadSettingsFile(path string, logger *slog.Logger) *core.Settings {
	if path == "" {
		return nil
	}
	settings, err := catalog.LoadSettingsFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Failed to load settings file, using defaults", "path", path, "error", err)
		}
		return nil
	}
	return &settings
}
