// Package service is the application façade: it owns session lifecycle,
// runs chat turns through the agent loop, and packages rendered results
// for transport.
package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fwojciec/segchat"
	"github.com/fwojciec/segchat/agent"
	"github.com/fwojciec/segchat/store"
	"github.com/fwojciec/segchat/vision"
)

const systemPromptFormat = `You are an image segmentation assistant. The user has uploaded an image stored at: %s.

Workflow (two-step by default):
1. detect - detect target objects and produce a bounding-box preview.
   - When the user asks to segment something, call this tool first to show what was found.
   - After detection, ask the user to confirm before running precise segmentation.

2. segment_confirmed - precisely segment previously detected objects (run after the user confirms).
   - Optionally pass object_indices to segment a subset (for example [0, 2] for the first and third object).
   - Omit object_indices to segment everything that was detected.

3. detect_and_segment - detect and segment in one shot, skipping the preview.
   - Use only when the user explicitly asks to skip confirmation.

Default to the two-step flow: detect first, then segment_confirmed once the user confirms. When the user asks to segment an object, call detect immediately with the object description as the prompt. Do not ask for the image path.`

// ChatResponse is the outcome of one user turn, ready for transport.
type ChatResponse struct {
	Answer string          `json:"answer"`
	State  agent.TurnState `json:"state"`
	// Images holds every rendered result of the turn as base64 data
	// URLs, in production order. Clients that only want the latest
	// result take the last element.
	Images []string      `json:"images,omitempty"`
	Usage  segchat.Usage `json:"-"`
}

// Health reports service liveness.
type Health struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
}

// Service wires the session store, detection cache, agent loop and
// artifact store into the operations the transport layer exposes.
type Service struct {
	sessions  *store.SessionStore
	cache     *store.DetectionCache
	loop      *agent.Loop
	artifacts segchat.ArtifactStore
	uploadDir string
	logger    *zap.Logger
}

// Option configures a [Service].
type Option func(*Service)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Service. uploadDir is created if missing.
func New(sessions *store.SessionStore, cache *store.DetectionCache, loop *agent.Loop, artifacts segchat.ArtifactStore, uploadDir string, opts ...Option) (*Service, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	s := &Service{
		sessions:  sessions,
		cache:     cache,
		loop:      loop,
		artifacts: artifacts,
		uploadDir: uploadDir,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateSession validates and stores the uploaded image, then creates a
// session whose system prompt binds the conversation to that image.
// filename is only consulted for its extension.
func (s *Service) CreateSession(_ context.Context, imageData []byte, filename string) (string, error) {
	if len(imageData) == 0 {
		return "", fmt.Errorf("%w: empty image upload", segchat.ErrUserInput)
	}
	if _, err := vision.Decode(imageData); err != nil {
		return "", err
	}

	id := uuid.NewString()
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	imagePath := filepath.Join(s.uploadDir, id+ext)
	if err := os.WriteFile(imagePath, imageData, 0o644); err != nil {
		return "", fmt.Errorf("saving upload: %w", err)
	}

	s.sessions.Create(id, imagePath, fmt.Sprintf(systemPromptFormat, imagePath))
	s.logger.Info("session created",
		zap.String("session_id", id),
		zap.String("image_path", imagePath),
	)
	return id, nil
}

// Chat runs one user turn against the session and converts any rendered
// results into base64 data URLs.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (*ChatResponse, error) {
	if sessionID == "" || message == "" {
		return nil, fmt.Errorf("%w: session_id and message are required", segchat.ErrUserInput)
	}

	start := time.Now()
	result, err := s.loop.Run(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}

	resp := &ChatResponse{
		Answer: result.Answer,
		State:  result.State,
		Usage:  result.Usage,
	}
	for _, name := range result.Artifacts {
		ref, err := segchat.ParseArtifactRef(name)
		if err != nil {
			return nil, err
		}
		data, err := s.artifacts.Load(ref)
		if err != nil {
			return nil, err
		}
		resp.Images = append(resp.Images, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(data))
	}

	s.logger.Info("turn completed",
		zap.String("session_id", sessionID),
		zap.String("state", string(result.State)),
		zap.Int("images", len(resp.Images)),
		zap.Int("input_tokens", result.Usage.InputTokens),
		zap.Int("output_tokens", result.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// DeleteSession removes the session and its cached detection. The
// uploaded image and rendered results stay on disk.
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.cache.Clear(sessionID)
	s.logger.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

// Healthz reports liveness and the number of active sessions.
func (s *Service) Healthz() Health {
	return Health{
		Status:         "ok",
		ActiveSessions: s.sessions.Len(),
	}
}
