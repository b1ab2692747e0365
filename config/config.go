// Package config loads service configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultAddr          = ":5000"
	DefaultUploadDir     = "uploads"
	DefaultResultDir     = "results"
	DefaultBoxThreshold  = 0.35
	DefaultTextThreshold = 0.25
	DefaultMaxIterations = 5
)

// Config holds everything the service needs to run.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// UploadDir receives session source images.
	UploadDir string
	// ResultDir receives rendered result images.
	ResultDir string

	// Provider selects the reasoning engine: "gemini" or "deepseek".
	Provider string
	// Model overrides the provider's default model when non-empty.
	Model string
	// GeminiAPIKey authenticates against the Gemini API.
	GeminiAPIKey string
	// DeepSeekAPIKey authenticates against the DeepSeek API.
	DeepSeekAPIKey string

	// GroundingDINOURL is the detection inference server.
	GroundingDINOURL string
	// SAMURL is the segmentation inference server.
	SAMURL string

	// BoxThreshold and TextThreshold filter detector output.
	BoxThreshold  float64
	TextThreshold float64
	// MaxIterations bounds tool-calling rounds per turn.
	MaxIterations int
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:             getenv("SEGCHAT_ADDR", DefaultAddr),
		UploadDir:        getenv("SEGCHAT_UPLOAD_DIR", DefaultUploadDir),
		ResultDir:        getenv("SEGCHAT_RESULT_DIR", DefaultResultDir),
		Provider:         getenv("SEGCHAT_PROVIDER", "gemini"),
		Model:            os.Getenv("SEGCHAT_MODEL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		DeepSeekAPIKey:   os.Getenv("DEEPSEEK_API_KEY"),
		GroundingDINOURL: getenv("GDINO_URL", "http://localhost:8001"),
		SAMURL:           getenv("SAM_URL", "http://localhost:8002"),
	}

	var err error
	if cfg.BoxThreshold, err = getenvFloat("SEGCHAT_BOX_THRESHOLD", DefaultBoxThreshold); err != nil {
		return nil, err
	}
	if cfg.TextThreshold, err = getenvFloat("SEGCHAT_TEXT_THRESHOLD", DefaultTextThreshold); err != nil {
		return nil, err
	}
	if cfg.MaxIterations, err = getenvInt("SEGCHAT_MAX_ITERATIONS", DefaultMaxIterations); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "gemini", "deepseek":
	default:
		return nil, fmt.Errorf("config: unknown provider %q", cfg.Provider)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
