// Package segchat defines the domain types for a conversational
// detect-then-segment vision service: conversation turns, normalized
// detection boxes, binary masks, tool contracts, and the interfaces to
// the external detector, segmenter and reasoning engine.
package segchat

import (
	"context"
	"image"
)

// Detector is a text-conditioned object detector. Detect runs the
// external model once and returns boxes in normalized center form with
// parallel scores and phrase labels. Zero matches is a successful result
// with empty slices, never an error.
type Detector interface {
	Detect(ctx context.Context, img image.Image, prompt string, boxThreshold, textThreshold float64) (Detection, error)
}

// Segmenter is a promptable segmentation model. Segment is invoked once
// per object with a pixel-space corner box and returns a mask aligned to
// the source image's dimensions.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image, x1, y1, x2, y2 float64) (Mask, error)
}
