package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/fwojciec/segchat"
	"github.com/fwojciec/segchat/store"
	"github.com/fwojciec/segchat/vision"
)

// Detection thresholds passed to the detector unless overridden.
const (
	DefaultBoxThreshold  = 0.35
	DefaultTextThreshold = 0.25
)

// Compile-time interface check.
var _ segchat.ToolExecutor = (*Executor)(nil)

// Executor dispatches tool calls to the vision pipeline, consulting and
// updating the detection cache as the two-step flow requires.
type Executor struct {
	pipeline      *vision.Pipeline
	cache         *store.DetectionCache
	artifacts     segchat.ArtifactStore
	boxThreshold  float64
	textThreshold float64
}

// Option configures an [Executor].
type Option func(*Executor)

// WithThresholds overrides the detector confidence thresholds.
func WithThresholds(box, text float64) Option {
	return func(e *Executor) {
		e.boxThreshold = box
		e.textThreshold = text
	}
}

// NewExecutor creates an Executor over the given pipeline, cache and
// artifact store.
func NewExecutor(pipeline *vision.Pipeline, cache *store.DetectionCache, artifacts segchat.ArtifactStore, opts ...Option) *Executor {
	e := &Executor{
		pipeline:      pipeline,
		cache:         cache,
		artifacts:     artifacts,
		boxThreshold:  DefaultBoxThreshold,
		textThreshold: DefaultTextThreshold,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute dispatches a tool call by name. Malformed arguments come back
// as failure results so the engine can self-correct; execution failures
// (unreadable image, upstream model error, cache miss) return an error
// for the orchestrator's per-call failure boundary to convert.
func (e *Executor) Execute(ctx context.Context, sess *segchat.Session, name string, args json.RawMessage) (*segchat.ToolResult, error) {
	switch name {
	case ToolDetect:
		return e.executeDetect(ctx, sess, args)
	case ToolSegmentConfirmed:
		return e.executeSegmentConfirmed(ctx, sess, args)
	case ToolDetectAndSegment:
		return e.executeDetectAndSegment(ctx, sess, args)
	default:
		return segchat.FailedToolResult(fmt.Sprintf("unknown tool: %s", name)), nil
	}
}

type detectArgs struct {
	Prompt string `json:"prompt"`
}

type segmentArgs struct {
	ObjectIndices []int `json:"object_indices"`
}

// executeDetect runs step one: detect, cache, render a box-only preview.
func (e *Executor) executeDetect(ctx context.Context, sess *segchat.Session, args json.RawMessage) (*segchat.ToolResult, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return segchat.FailedToolResult(fmt.Sprintf("invalid arguments: %s", err)), nil
	}
	if a.Prompt == "" {
		return segchat.FailedToolResult("prompt is required"), nil
	}

	img, err := vision.Open(sess.ImagePath)
	if err != nil {
		return nil, err
	}

	det, err := e.pipeline.Detect(ctx, img, a.Prompt, e.boxThreshold, e.textThreshold)
	if err != nil {
		return nil, err
	}

	preview := e.pipeline.Render(img, det, nil, vision.RenderOptions{DrawBoxes: true})
	ref, err := e.saveArtifact(sess, preview)
	if err != nil {
		return nil, err
	}

	// Cached even when empty: a later confirmation on an empty cache
	// yields zero masks, not a cache miss.
	e.cache.Store(sess.ID, det, sess.ImagePath)

	msg := fmt.Sprintf("Detected %d objects and rendered a bounding-box preview. Ask the user to confirm before running segment_confirmed.", det.Len())
	if det.Len() == 0 {
		msg = fmt.Sprintf("No objects matching %q were detected.", a.Prompt)
	}
	return successResult(det, ref.Name(), msg), nil
}

// executeSegmentConfirmed runs step two against the cached detection.
func (e *Executor) executeSegmentConfirmed(ctx context.Context, sess *segchat.Session, args json.RawMessage) (*segchat.ToolResult, error) {
	var a segmentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return segchat.FailedToolResult(fmt.Sprintf("invalid arguments: %s", err)), nil
	}

	det, imagePath, err := e.cache.Select(sess.ID, a.ObjectIndices)
	if err != nil {
		return nil, err
	}
	if det.Len() == 0 {
		return successResult(det, "", "No objects selected."), nil
	}

	img, err := vision.Open(imagePath)
	if err != nil {
		return nil, err
	}

	masks, err := e.pipeline.Segment(ctx, img, det.Boxes)
	if err != nil {
		return nil, err
	}

	rendered := e.pipeline.Render(img, det, masks, vision.DefaultRenderOptions())
	ref, err := e.saveArtifact(sess, rendered)
	if err != nil {
		return nil, err
	}

	// The cache is retained so the user can confirm a different subset
	// without re-detecting.
	return successResult(det, ref.Name(), fmt.Sprintf("Segmented %d objects.", det.Len())), nil
}

// executeDetectAndSegment runs both stages in one call without touching
// the confirmation cache.
func (e *Executor) executeDetectAndSegment(ctx context.Context, sess *segchat.Session, args json.RawMessage) (*segchat.ToolResult, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return segchat.FailedToolResult(fmt.Sprintf("invalid arguments: %s", err)), nil
	}
	if a.Prompt == "" {
		return segchat.FailedToolResult("prompt is required"), nil
	}

	img, err := vision.Open(sess.ImagePath)
	if err != nil {
		return nil, err
	}

	det, masks, err := e.pipeline.DetectAndSegment(ctx, img, a.Prompt, e.boxThreshold, e.textThreshold)
	if err != nil {
		return nil, err
	}
	if det.Len() == 0 {
		return successResult(det, "", fmt.Sprintf("No objects matching %q were detected.", a.Prompt)), nil
	}

	rendered := e.pipeline.Render(img, det, masks, vision.DefaultRenderOptions())
	ref, err := e.saveArtifact(sess, rendered)
	if err != nil {
		return nil, err
	}

	return successResult(det, ref.Name(), fmt.Sprintf("Detected and segmented %d objects.", det.Len())), nil
}

// saveArtifact encodes the rendered image and stores it under the
// session's next sequence number.
func (e *Executor) saveArtifact(sess *segchat.Session, img image.Image) (segchat.ArtifactRef, error) {
	data, err := vision.EncodeJPEG(img)
	if err != nil {
		return segchat.ArtifactRef{}, err
	}
	return e.artifacts.Save(data, sess.ID, sess.NextResultSeq())
}

func successResult(det segchat.Detection, artifact, msg string) *segchat.ToolResult {
	phrases := det.Phrases
	if phrases == nil {
		phrases = []string{}
	}
	return &segchat.ToolResult{
		Success:    true,
		Detected:   phrases,
		NumObjects: det.Len(),
		Artifact:   artifact,
		Message:    msg,
	}
}
