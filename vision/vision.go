// Package vision wraps the external detector and segmenter behind one
// pipeline and owns the coordinate transforms and image compositing
// between the two stages. The pipeline is a pure function of its inputs;
// it has no session awareness.
package vision

import (
	"context"
	"image"

	"github.com/fwojciec/segchat"
)

// Pipeline composes a text-conditioned detector with a promptable
// segmenter.
type Pipeline struct {
	detector  segchat.Detector
	segmenter segchat.Segmenter
}

// New creates a Pipeline over the given model clients.
func New(detector segchat.Detector, segmenter segchat.Segmenter) *Pipeline {
	return &Pipeline{detector: detector, segmenter: segmenter}
}

// Detect runs the external detector once. Zero matches is a successful
// result with empty slices.
func (p *Pipeline) Detect(ctx context.Context, img image.Image, prompt string, boxThreshold, textThreshold float64) (segchat.Detection, error) {
	return p.detector.Detect(ctx, img, prompt, boxThreshold, textThreshold)
}

// Segment produces one mask per input box, order-preserving. Each
// normalized center box is converted to pixel-space corners and the
// segmenter is invoked once per box.
func (p *Pipeline) Segment(ctx context.Context, img image.Image, boxes []segchat.Box) ([]segchat.Mask, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	masks := make([]segchat.Mask, 0, len(boxes))
	for _, box := range boxes {
		x1, y1, x2, y2 := box.PixelCorners(w, h)
		mask, err := p.segmenter.Segment(ctx, img, x1, y1, x2, y2)
		if err != nil {
			return nil, err
		}
		masks = append(masks, mask)
	}
	return masks, nil
}

// DetectAndSegment runs detection and segmentation in one call, skipping
// the intermediate caching step.
func (p *Pipeline) DetectAndSegment(ctx context.Context, img image.Image, prompt string, boxThreshold, textThreshold float64) (segchat.Detection, []segchat.Mask, error) {
	det, err := p.Detect(ctx, img, prompt, boxThreshold, textThreshold)
	if err != nil {
		return segchat.Detection{}, nil, err
	}
	masks, err := p.Segment(ctx, img, det.Boxes)
	if err != nil {
		return segchat.Detection{}, nil, err
	}
	return det, masks, nil
}
