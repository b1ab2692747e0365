// Package mock provides test doubles for segchat interfaces using
// function fields.
package mock

import (
	"context"
	"encoding/json"
	"image"

	"github.com/fwojciec/segchat"
)

// Interface compliance checks.
var (
	_ segchat.Provider      = (*Provider)(nil)
	_ segchat.ToolExecutor  = (*ToolExecutor)(nil)
	_ segchat.Detector      = (*Detector)(nil)
	_ segchat.Segmenter     = (*Segmenter)(nil)
	_ segchat.ArtifactStore = (*ArtifactStore)(nil)
)

// Provider is a test double for segchat.Provider.
// Set CompleteFn before calling Complete.
type Provider struct {
	CompleteFn func(ctx context.Context, req segchat.Request) (segchat.AssistantMessage, error)
}

// Complete delegates to CompleteFn.
func (p *Provider) Complete(ctx context.Context, req segchat.Request) (segchat.AssistantMessage, error) {
	return p.CompleteFn(ctx, req)
}

// ToolExecutor is a test double for segchat.ToolExecutor.
// Set ExecuteFn before calling Execute.
type ToolExecutor struct {
	ExecuteFn func(ctx context.Context, sess *segchat.Session, name string, args json.RawMessage) (*segchat.ToolResult, error)
}

// Execute delegates to ExecuteFn.
func (e *ToolExecutor) Execute(ctx context.Context, sess *segchat.Session, name string, args json.RawMessage) (*segchat.ToolResult, error) {
	return e.ExecuteFn(ctx, sess, name, args)
}

// Detector is a test double for segchat.Detector.
// Set DetectFn before calling Detect.
type Detector struct {
	DetectFn func(ctx context.Context, img image.Image, prompt string, boxThreshold, textThreshold float64) (segchat.Detection, error)
}

// Detect delegates to DetectFn.
func (d *Detector) Detect(ctx context.Context, img image.Image, prompt string, boxThreshold, textThreshold float64) (segchat.Detection, error) {
	return d.DetectFn(ctx, img, prompt, boxThreshold, textThreshold)
}

// Segmenter is a test double for segchat.Segmenter.
// Set SegmentFn before calling Segment.
type Segmenter struct {
	SegmentFn func(ctx context.Context, img image.Image, x1, y1, x2, y2 float64) (segchat.Mask, error)
}

// Segment delegates to SegmentFn.
func (s *Segmenter) Segment(ctx context.Context, img image.Image, x1, y1, x2, y2 float64) (segchat.Mask, error) {
	return s.SegmentFn(ctx, img, x1, y1, x2, y2)
}

// ArtifactStore is a test double for segchat.ArtifactStore.
// Set the function fields for the methods you need.
type ArtifactStore struct {
	SaveFn func(data []byte, sessionID string, seq int) (segchat.ArtifactRef, error)
	LoadFn func(ref segchat.ArtifactRef) ([]byte, error)
}

// Save delegates to SaveFn.
func (s *ArtifactStore) Save(data []byte, sessionID string, seq int) (segchat.ArtifactRef, error) {
	return s.SaveFn(data, sessionID, seq)
}

// Load delegates to LoadFn.
func (s *ArtifactStore) Load(ref segchat.ArtifactRef) ([]byte, error) {
	return s.LoadFn(ref)
}
