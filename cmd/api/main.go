package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ai-content-platform/internal/application/generation"
	"github.com/ai-content-platform/internal/application/notification"
	"github.com/ai-content-platform/internal/application/usage"
	"github.com/ai-content-platform/internal/config"
	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/infrastructure/breaker"
	"github.com/ai-content-platform/internal/infrastructure/dynamo"
	"github.com/ai-content-platform/internal/infrastructure/fal"
	"github.com/ai-content-platform/internal/infrastructure/google"
	jwtinfra "github.com/ai-content-platform/internal/infrastructure/jwt"
	"github.com/ai-content-platform/internal/infrastructure/memory"
	"github.com/ai-content-platform/internal/infrastructure/metrics"
	openaiinfra "github.com/ai-content-platform/internal/infrastructure/openai"
	s3infra "github.com/ai-content-platform/internal/infrastructure/s3"
	"github.com/ai-content-platform/internal/infrastructure/sns"
	transporthttp "github.com/ai-content-platform/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(newLogger(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("usage store unavailable", "backend", cfg.StorageBackend, "err", err)
		os.Exit(1)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		slog.Error("JWT provider not available", "err", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector("ai_content")

	hub := notification.NewHub(cfg.NotificationTick)
	defer hub.Dispose()
	go hub.ReleaseIdle(ctx, cfg.NotificationIdleTTL)
	hub.OnCreate(func(_ string, m *notification.Manager) {
		m.Subscribe(notification.NewArrivals(func(n domain.Notification) {
			collector.NotificationShown(string(n.Type))
		}))
	})
	if err := forwardToSNS(ctx, cfg, hub); err != nil {
		slog.Warn("SNS forwarding not available", "err", err)
	}

	text := breaker.NewText(openaiinfra.NewClient(cfg), breaker.New(breakerSettings("openai", collector)))
	image := breaker.NewImage(fal.NewClient(cfg), breaker.New(breakerSettings("fal", collector)))

	deps := &transporthttp.Deps{
		Store:       store,
		Hub:         hub,
		JWTProvider: jwtProvider,
		Google:      google.NewVerifier(cfg.GoogleClientID),
		Text:        text,
		Image:       image,
		Metrics:     collector,
	}
	if archiver, err := newArchiver(ctx, cfg); err != nil {
		slog.Warn("image archiving not available", "err", err)
	} else if archiver != nil {
		deps.Archiver = archiver
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.AppPort),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Image generation can take most of UpstreamTimeout.
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	slog.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// newStore returns the configured usage-stats backend. DynamoDB tables are
// created if they do not exist.
func newStore(ctx context.Context, cfg *config.Config) (usage.Store, error) {
	if cfg.StorageBackend == config.StorageMemory {
		slog.Warn("using in-memory usage store; stats are lost on restart")
		return memory.NewKVStore(), nil
	}
	client, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
	return dynamo.NewKVStore(client, cfg.DynamoTables.KV), nil
}

func breakerSettings(name string, collector *metrics.Collector) breaker.Settings {
	s := breaker.DefaultSettings(name)
	s.OnStateChange = collector.BreakerStateChanged
	return s
}

// newArchiver returns nil, nil when archiving is switched off.
func newArchiver(ctx context.Context, cfg *config.Config) (generation.Archiver, error) {
	if !cfg.ArchiveImages {
		return nil, nil
	}
	if cfg.S3BucketName == "" {
		return nil, errors.New("S3_ARCHIVE_IMAGES is set but S3_BUCKET_NAME is empty")
	}
	client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s3infra.NewStore(client, cfg.S3BucketName, cfg.ArchiveURLTTL), nil
}

// forwardToSNS publishes every new notification of a forwarded type to
// SNSTopicARN. It does nothing when no topic is configured.
func forwardToSNS(ctx context.Context, cfg *config.Config, hub *notification.Hub) error {
	if cfg.SNSTopicARN == "" {
		return nil
	}
	client, err := sns.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	publisher := sns.NewPublisher(client, cfg.SNSTopicARN)

	forwarded := make(map[domain.NotificationType]bool, len(cfg.SNSForwardTypes))
	for _, t := range cfg.SNSForwardTypes {
		forwarded[domain.ParseNotificationType(t)] = true
	}

	hub.OnCreate(func(userID string, m *notification.Manager) {
		m.Subscribe(notification.NewArrivals(func(n domain.Notification) {
			if !forwarded[n.Type] {
				return
			}
			// Listeners run inside Show; publish off that path.
			go func() {
				pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := publisher.Publish(pubCtx, userID, n); err != nil {
					slog.Warn("could not forward notification to SNS", "user_id", userID, "id", n.ID, "err", err)
				}
			}()
		}))
	})
	return nil
}
