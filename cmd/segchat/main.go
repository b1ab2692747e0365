// Command segchat is a terminal chat client for conversational image
// segmentation. It runs the whole stack in-process: point it at an image
// and at running Grounding DINO and SAM inference servers, then describe
// what to segment.
//
// Usage:
//
//	GEMINI_API_KEY=gk-... segchat -image photo.jpg
//
// Flags:
//
//	-image string   Path to the image to segment (required)
//
// Everything else comes from the environment; see the config package.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
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
	"github.com/fwojciec/segchat/tui"
	"github.com/fwojciec/segchat/vision"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "segchat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	imagePath := flag.String("image", "", "Path to the image to segment (required)")
	flag.Parse()
	if *imagePath == "" {
		flag.Usage()
		return fmt.Errorf("-image is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

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

	// Logging goes nowhere in TUI mode; stdout belongs to the interface.
	loop := agent.New(provider, executor, sessions, tools.Definitions(),
		agent.WithModel(cfg.Model),
		agent.WithMaxIterations(cfg.MaxIterations),
	)

	svc, err := service.New(sessions, cache, loop, artifacts, cfg.UploadDir,
		service.WithLogger(zap.NewNop()))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	sessionID, err := svc.CreateSession(ctx, data, filepath.Base(*imagePath))
	if err != nil {
		return err
	}

	turn := func(ctx context.Context, message string) (*service.ChatResponse, error) {
		return svc.Chat(ctx, sessionID, message)
	}

	p := tea.NewProgram(tui.New(turn), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Results saved under %s\n", cfg.ResultDir)
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
