package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kinnect/kinnect-chat/backend/internal/config"
	"github.com/kinnect/kinnect-chat/backend/internal/handler"
	"github.com/kinnect/kinnect-chat/backend/internal/model/persona"
	"github.com/kinnect/kinnect-chat/backend/internal/server"
	"github.com/kinnect/kinnect-chat/backend/internal/service/ai"
	"github.com/kinnect/kinnect-chat/backend/internal/service/chat"
	"github.com/kinnect/kinnect-chat/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		Production: cfg.Log.Production,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	personaStore, err := loadPersonas(cfg.Personas, zapLogger)
	if err != nil {
		return err
	}

	completer := newCompleter(ctx, cfg.AI, zapLogger)

	chatSvc := chat.NewService(personaStore, completer, chat.ServiceConfig{
		TTL:             cfg.Session.TTL,
		CleanupInterval: cfg.Session.CleanupInterval,
		ExchangeTimeout: cfg.AI.Timeout,
	}, zapLogger)
	defer chatSvc.Close()

	router := handler.NewRouter(personaStore, chatSvc, cfg.Server.AllowedOrigins, zapLogger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Personas.Watch && cfg.Personas.CatalogPath != "" {
		watcher := &persona.Watcher{Path: cfg.Personas.CatalogPath, Store: personaStore, Logger: zapLogger}
		g.Go(func() error { return watcher.Run(gctx) })
	}
	// Closing sessions first ends open SSE and WebSocket streams.
	g.Go(func() error { return server.Serve(gctx, srv, ln, chatSvc.Close, zapLogger) })
	return g.Wait()
}

func loadPersonas(cfg config.PersonaConfig, zapLogger *zap.Logger) (*persona.MemoryStore, error) {
	if cfg.CatalogPath == "" {
		return persona.NewMemoryStore(persona.Seed()), nil
	}

	items, err := persona.LoadFile(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load persona catalog: %w", err)
	}
	zapLogger.Info("persona catalog loaded", zap.String("path", cfg.CatalogPath), zap.Int("count", len(items)))
	return persona.NewMemoryStore(items), nil
}

// newCompleter falls back to an always-failing backend so the UI still works
// without credentials; every exchange then surfaces as a backend error.
func newCompleter(ctx context.Context, cfg config.AIConfig, zapLogger *zap.Logger) chat.Completer {
	if !cfg.Enabled() {
		zapLogger.Warn("Ark credentials not configured, chat replies disabled")
		return ai.Unavailable{Reason: "Ark credentials or model not set"}
	}

	svc, err := ai.NewService(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Warn("failed to initialize AI service", zap.Error(err))
		return ai.Unavailable{Reason: err.Error()}
	}
	zapLogger.Info("AI service initialized", zap.Bool("stream", svc.StreamingEnabled()))
	return svc
}
