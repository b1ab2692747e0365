// Command segchatd serves the conversational segmentation API over HTTP.
//
// Usage:
//
//	GEMINI_API_KEY=gk-... segchatd
//	DEEPSEEK_API_KEY=sk-... SEGCHAT_PROVIDER=deepseek segchatd
//
// Configuration comes from the environment (optionally via a .env file);
// see the config package for the full variable list.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/fwojciec/segchat"
	"github.com/fwojciec/segchat/agent"
	"github.com/fwojciec/segchat/artifact"
	"github.com/fwojciec/segchat/config"
	"github.com/fwojciec/segchat/deepseek"
	"github.com/fwojciec/segchat/gdino"
	"github.com/fwojciec/segchat/gemini"
	"github.com/fwojciec/segchat/sam"
	"github.com/fwojciec/segchat/service"
	"github.com/fwojciec/segchat/store"
	"github.com/fwojciec/segchat/tools"
	"github.com/fwojciec/segchat/vision"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "segchatd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	provider, err := resolveProvider(ctx, cfg)
	if err != nil {
		return err
	}

	artifacts, err := artifact.New(cfg.ResultDir)
	if err != nil {
		return err
	}

	sessions := store.NewSessionStore()
	cache := store.NewDetectionCache()
	pipeline := vision.New(gdino.New(cfg.GroundingDINOURL), sam.New(cfg.SAMURL))
	executor := tools.NewExecutor(pipeline, cache, artifacts,
		tools.WithThresholds(cfg.BoxThreshold, cfg.TextThreshold))

	loop := agent.New(provider, executor, sessions, tools.Definitions(),
		agent.WithModel(cfg.Model),
		agent.WithMaxIterations(cfg.MaxIterations),
		agent.WithLogger(logger),
	)

	svc, err := service.New(sessions, cache, loop, artifacts, cfg.UploadDir,
		service.WithLogger(logger))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           service.NewHandler(svc, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("provider", cfg.Provider))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func resolveProvider(ctx context.Context, cfg *config.Config) (segchat.Provider, error) {
	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		return gemini.New(ctx, cfg.GeminiAPIKey)
	case "deepseek":
		if cfg.DeepSeekAPIKey == "" {
			return nil, fmt.Errorf("DEEPSEEK_API_KEY is required for the deepseek provider")
		}
		return deepseek.New(cfg.DeepSeekAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
