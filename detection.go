package segchat

import "fmt"

// Box is a detection box in normalized center form: center x/y and
// width/height as fractions of the image's corresponding dimension,
// independent of pixel resolution.
type Box struct {
	CX float64
	CY float64
	W  float64
	H  float64
}

// PixelCorners converts the normalized center box to pixel-space corners
// (x1, y1, x2, y2) for a source image of w×h pixels.
func (b Box) PixelCorners(w, h int) (x1, y1, x2, y2 float64) {
	fw, fh := float64(w), float64(h)
	x1 = (b.CX - b.W/2) * fw
	y1 = (b.CY - b.H/2) * fh
	x2 = (b.CX + b.W/2) * fw
	y2 = (b.CY + b.H/2) * fh
	return x1, y1, x2, y2
}

// BoxFromPixelCorners is the inverse of PixelCorners.
func BoxFromPixelCorners(x1, y1, x2, y2 float64, w, h int) Box {
	fw, fh := float64(w), float64(h)
	return Box{
		CX: (x1 + x2) / 2 / fw,
		CY: (y1 + y2) / 2 / fh,
		W:  (x2 - x1) / fw,
		H:  (y2 - y1) / fh,
	}
}

// Detection is the result of one detector call: parallel slices of boxes,
// confidence scores and phrase labels sharing index correspondence.
// Immutable once produced; Select returns a new Detection.
type Detection struct {
	Boxes   []Box
	Scores  []float64
	Phrases []string
}

// Len returns the number of detected objects.
func (d Detection) Len() int { return len(d.Boxes) }

// Select returns the subset of the detection at the given indices,
// order-preserving by the order the indices were given. A nil index list
// selects everything. An index list at least as long as the detection
// also selects everything regardless of which indices it contains: the
// selection branch only runs when fewer indices than objects are given.
// A caller that enumerates all indices out of order therefore gets the
// cached order back, not its own. Out-of-range indices in the selection
// branch are an error.
func (d Detection) Select(indices []int) (Detection, error) {
	if indices == nil || len(indices) >= len(d.Boxes) {
		return d, nil
	}
	out := Detection{
		Boxes:   make([]Box, 0, len(indices)),
		Scores:  make([]float64, 0, len(indices)),
		Phrases: make([]string, 0, len(indices)),
	}
	for _, i := range indices {
		if i < 0 || i >= len(d.Boxes) {
			return Detection{}, fmt.Errorf("object index %d out of range [0, %d)", i, len(d.Boxes))
		}
		out.Boxes = append(out.Boxes, d.Boxes[i])
		out.Scores = append(out.Scores, d.Scores[i])
		out.Phrases = append(out.Phrases, d.Phrases[i])
	}
	return out, nil
}
