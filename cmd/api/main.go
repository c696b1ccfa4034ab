package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ymgch/slack-pulse/backend/internal/config"
	"github.com/ymgch/slack-pulse/backend/internal/handler"
	userhandler "github.com/ymgch/slack-pulse/backend/internal/handler/user"
	"github.com/ymgch/slack-pulse/backend/internal/handler/webhook"
	wshandler "github.com/ymgch/slack-pulse/backend/internal/handler/ws"
	"github.com/ymgch/slack-pulse/backend/internal/service/classify"
	eventservice "github.com/ymgch/slack-pulse/backend/internal/service/event"
	"github.com/ymgch/slack-pulse/backend/internal/service/hub"
	"github.com/ymgch/slack-pulse/backend/internal/slack"
	"github.com/ymgch/slack-pulse/backend/internal/store"
	"github.com/ymgch/slack-pulse/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog, err := logger.New("slack-pulse", cfg.Server.Debug)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	st, closeStore, err := newStore(ctx, cfg.Mongo, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize document store", zap.Error(err))
	}
	defer closeStore()

	slackClient := slack.New(cfg.Slack.BotToken)
	classifier := newClassifier(ctx, cfg.Classify, zlog)
	broadcastHub := hub.New(zlog)

	eventSvc := eventservice.NewService(st, slackClient, classifier, broadcastHub, zlog)

	router := handler.NewRouter(
		webhook.New(eventSvc, cfg.Slack.SigningSecret, zlog),
		wshandler.New(broadcastHub, zlog),
		userhandler.New(st, slackClient, zlog),
	)

	startServer(ctx, cfg.Server, router, zlog)
}

// newStore connects to MongoDB when configured and falls back to the
// in-memory store otherwise.
func newStore(ctx context.Context, cfg config.MongoConfig, zlog *zap.Logger) (store.Store, func(), error) {
	if !cfg.Enabled() {
		zlog.Warn("MONGO_URI not set, using in-memory document store")
		return store.NewMemoryStore(), func() {}, nil
	}

	mongoStore, err := store.NewMongoStore(ctx, store.MongoConfig{
		URI:        cfg.URI,
		Database:   cfg.Database,
		RetryCount: cfg.RetryCount,
	})
	if err != nil {
		return nil, nil, err
	}

	zlog.Info("connected to MongoDB", zap.String("database", cfg.Database))
	closeFn := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoStore.Close(shutdownCtx); err != nil {
			zlog.Warn("failed to disconnect MongoDB", zap.Error(err))
		}
	}
	return mongoStore, closeFn, nil
}

// newClassifier assembles the provider chain. Missing credentials skip
// that tier only; with no providers at all every message rates the
// fixed default.
func newClassifier(ctx context.Context, cfg config.ClassifyConfig, zlog *zap.Logger) *classify.Classifier {
	var providers []classify.Provider

	if cfg.Primary.Enabled() {
		if p, err := buildProvider(ctx, cfg.Primary, cfg.Timeout, true); err != nil {
			zlog.Warn("failed to initialize primary classification provider", zap.Error(err))
		} else {
			providers = append(providers, p)
		}
	} else {
		zlog.Warn("primary classification provider not configured")
	}

	if cfg.Secondary.Enabled() {
		if p, err := buildProvider(ctx, cfg.Secondary, cfg.Timeout, false); err != nil {
			zlog.Warn("failed to initialize secondary classification provider", zap.Error(err))
		} else {
			providers = append(providers, p)
		}
	} else {
		zlog.Warn("secondary classification provider not configured")
	}

	zlog.Info("urgency classifier ready", zap.Int("providers", len(providers)))
	return classify.New(zlog, providers...)
}

func buildProvider(ctx context.Context, cfg config.ProviderConfig, timeout time.Duration, primary bool) (classify.Provider, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, err
	}
	if primary {
		return classify.NewPrimaryProvider(ctx, chatModel, timeout)
	}
	return classify.NewSecondaryProvider(ctx, chatModel, timeout)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, zlog *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zlog.Info("listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
