// Package main boots the reflection service: config, logging, telemetry,
// the storage and provider adapters, the application services, the HTTP
// surface, and the optional daily delivery schedule.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/clients"
	"github.com/jsamuelsen/stoic-reflections/internal/adapters/clients/anthropic"
	"github.com/jsamuelsen/stoic-reflections/internal/adapters/http"
	"github.com/jsamuelsen/stoic-reflections/internal/adapters/http/handlers"
	"github.com/jsamuelsen/stoic-reflections/internal/adapters/mail"
	"github.com/jsamuelsen/stoic-reflections/internal/adapters/storage"
	"github.com/jsamuelsen/stoic-reflections/internal/app"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/config"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/logging"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/scheduler"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/telemetry"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

// Injected at build time via -ldflags "-X main.Version=..." and reported by
// the /-/build endpoint.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// With the scheduler on, the first generation failure would happen
	// unattended at send time, so refuse to start without a key.
	if cfg.Scheduler.Enabled && cfg.Generation.APIKey == "" {
		return fmt.Errorf("scheduler is enabled but no generation API key is set (ANTHROPIC_API_KEY)")
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting reflection service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	healthRegistry := ports.NewHealthRegistry()

	store, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}

	if checker, ok := store.(ports.HealthChecker); ok {
		if err := healthRegistry.Register(checker); err != nil {
			return fmt.Errorf("registering blob store health check: %w", err)
		}
	}

	// The generator shares the resilient outbound client: retries, circuit
	// breaker, and request ID propagation all apply to Messages API calls.
	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Generation.BaseURL,
		ServiceName: "anthropic",
		Timeout:     cfg.Generation.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		AuthFunc:    anthropic.AuthHeaders(cfg.Generation.APIKey, cfg.Generation.APIVersion),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating generation HTTP client: %w", err)
	}

	generator := anthropic.NewClient(anthropic.Config{
		Client:      httpClient,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Logger:      logger,
	})

	if err := healthRegistry.Register(generator); err != nil {
		return fmt.Errorf("registering generator health check: %w", err)
	}

	mailer, err := newMailer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating mailer: %w", err)
	}

	if checker, ok := mailer.(ports.HealthChecker); ok {
		if err := healthRegistry.Register(checker); err != nil {
			return fmt.Errorf("registering mailer health check: %w", err)
		}
	}

	renderer := mail.NewRenderer(cfg.Mail.WebsiteURL, cfg.Subscription.Secret)

	resolverService := app.NewResolverService(app.ResolverServiceConfig{
		Store:      store,
		DatasetKey: cfg.Storage.DatasetKey,
		Logger:     logger,
	})

	archiveService := app.NewArchiveService(app.ArchiveServiceConfig{
		Store:      store,
		ArchiveKey: cfg.Storage.ArchiveKey,
		Logger:     logger,
	})

	reflectionService := app.NewReflectionService(app.ReflectionServiceConfig{
		Archive: archiveService,
		Logger:  logger,
	})

	deliveryMetrics, err := app.NewDeliveryMetrics()
	if err != nil {
		return fmt.Errorf("creating delivery metrics: %w", err)
	}

	deliveryService := app.NewDeliveryService(app.DeliveryServiceConfig{
		Resolver:              resolverService,
		Archive:               archiveService,
		Generator:             generator,
		Renderer:              renderer,
		Mailer:                mailer,
		Store:                 store,
		RecipientsKey:         cfg.Storage.RecipientsKey,
		Sender:                cfg.Mail.Sender,
		KeepDays:              cfg.Archive.KeepDays,
		AttributionWindowDays: cfg.Archive.AttributionWindowDays,
		MaxParallel:           cfg.Mail.MaxParallel,
		Metrics:               deliveryMetrics,
		Logger:                logger,
	})

	subscriptionService := app.NewSubscriptionService(app.SubscriptionServiceConfig{
		Store:          store,
		Renderer:       renderer,
		Mailer:         mailer,
		SubscribersKey: cfg.Storage.SubscribersKey,
		RecipientsKey:  cfg.Storage.RecipientsKey,
		Sender:         cfg.Mail.Sender,
		Secret:         cfg.Subscription.Secret,
		Source:         cfg.Subscription.Source,
		Logger:         logger,
	})

	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)
	reflectionHandler := handlers.NewReflectionHandler(reflectionService)

	// The public signup endpoints are optional; the admin surface keeps
	// subscriber visibility either way.
	var subscriptionHandler *handlers.SubscriptionHandler
	if cfg.Subscription.Enabled {
		subscriptionHandler = handlers.NewSubscriptionHandler(subscriptionService)
	}

	adminHandler := handlers.NewAdminHandler(handlers.AdminHandlerConfig{
		Resolver:      resolverService,
		Archive:       archiveService,
		Delivery:      deliveryService,
		Subscriptions: subscriptionService,
	})

	server := http.New(&cfg.Server, logger)

	routerCfg := http.RouterConfig{
		Logger:              logger,
		AuthConfig:          &cfg.Auth,
		AppConfig:           &cfg.App,
		HealthHandler:       healthHandler,
		ReflectionHandler:   reflectionHandler,
		SubscriptionHandler: subscriptionHandler,
		AdminHandler:        adminHandler,
		Timeout:             http.DefaultRequestTimeout,
	}
	http.SetupRouter(server.Engine(), routerCfg)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler.Timezone, logger)
		if err != nil {
			return fmt.Errorf("creating scheduler: %w", err)
		}

		err = sched.Add("daily-delivery", cfg.Scheduler.Spec, 0, func(ctx context.Context) error {
			report, runErr := deliveryService.Run(ctx)
			if runErr != nil {
				return runErr
			}

			logger.InfoContext(ctx, "daily delivery complete",
				slog.String("date", report.Date),
				slog.Int("sent", report.Sent),
				slog.Int("failed", report.Failed),
			)

			return nil
		})
		if err != nil {
			return fmt.Errorf("scheduling daily delivery: %w", err)
		}

		sched.Start()
	}

	serverErr := server.Start()

	return waitForShutdown(ctx, logger, server, sched, serverErr, cfg.Server.ShutdownTimeout)
}

// newBlobStore builds the configured document store. The memory driver
// holds documents for the life of the process; when a file exists at the
// dataset key path it is loaded so a local profile serves real quotes.
func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.BlobStore, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       cfg.Storage.Bucket,
			Region:       cfg.Storage.Region,
			Endpoint:     cfg.Storage.Endpoint,
			UsePathStyle: cfg.Storage.UsePathStyle,
		}, logger)

	case "memory":
		store := storage.NewMemoryStore()

		if data, err := os.ReadFile(cfg.Storage.DatasetKey); err == nil {
			store.Seed(cfg.Storage.DatasetKey, data)
			logger.Info("seeded quote dataset from local file",
				slog.String("path", cfg.Storage.DatasetKey),
			)
		}

		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// newMailer builds the configured mail transport.
func newMailer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.Mailer, error) {
	switch cfg.Mail.Driver {
	case "ses":
		return mail.NewSESMailer(ctx, mail.SESConfig{Region: cfg.Mail.Region}, logger)

	case "noop":
		return mail.NewNoopMailer(logger), nil

	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Mail.Driver)
	}
}

// waitForShutdown blocks until SIGINT/SIGTERM or a server error, then drains
// the scheduler and HTTP server within the shutdown timeout.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	sched *scheduler.Scheduler,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	// Stop scheduling first so no delivery run starts mid-drain
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Error("scheduler shutdown error", slog.Any("error", err))
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
