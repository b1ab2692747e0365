package segchat

// Mask is a binary per-pixel grid aligned 1:1 with the source image's
// pixel dimensions. Pix is row-major, Width*Height entries.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask creates an all-false mask of the given dimensions.
func NewMask(width, height int) Mask {
	return Mask{Width: width, Height: height, Pix: make([]bool, width*height)}
}

// At reports whether the pixel at (x, y) belongs to the mask.
// Out-of-bounds coordinates report false.
func (m Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks the pixel at (x, y). Out-of-bounds coordinates are ignored.
func (m Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}
