package vision

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/fwojciec/segchat"
)

// maskAlpha is the translucency of the mask fill layer.
const maskAlpha = 0.3

// outlineThickness is the contour stroke width in pixels.
const outlineThickness = 2

var maskGreen = color.NRGBA{G: 255, A: 255}

// palette supplies distinct per-mask colors when RandomColor is set.
// Fixed so the same inputs always composite to the same output.
var palette = []color.NRGBA{
	{R: 255, G: 99, B: 71, A: 255},
	{R: 65, G: 105, B: 225, A: 255},
	{R: 255, G: 215, B: 0, A: 255},
	{R: 186, G: 85, B: 211, A: 255},
	{R: 0, G: 206, B: 209, A: 255},
	{R: 255, G: 140, B: 0, A: 255},
	{R: 50, G: 205, B: 50, A: 255},
	{R: 220, G: 20, B: 60, A: 255},
}

// RenderOptions controls what Render draws.
type RenderOptions struct {
	DrawBoxes   bool
	DrawMasks   bool
	RandomColor bool
}

// DefaultRenderOptions returns the defaults: boxes and masks drawn, a
// single green used for every mask.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{DrawBoxes: true, DrawMasks: true}
}

// Render composites detections and masks onto a copy of the source
// image. The order is fixed and significant: each mask's translucent
// fill is painted first with its outline contour on top of the fill;
// after all masks, bounding boxes and labels go on top of everything so
// annotations stay legible over filled regions.
func (p *Pipeline) Render(img image.Image, det segchat.Detection, masks []segchat.Mask, opts RenderOptions) *image.NRGBA {
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()

	if opts.DrawMasks {
		for i, mask := range masks {
			c := maskColor(i, opts)
			fillMask(out, mask, c)
			outlineMask(out, mask, c)
		}
	}

	if opts.DrawBoxes {
		for i, box := range det.Boxes {
			c := palette[i%len(palette)]
			x1, y1, x2, y2 := box.PixelCorners(w, h)
			rect := image.Rect(int(x1), int(y1), int(x2), int(y2))
			drawRect(out, rect, c, outlineThickness)

			label := det.Phrases[i]
			if i < len(det.Scores) {
				label = fmt.Sprintf("%s %.2f", det.Phrases[i], det.Scores[i])
			}
			drawLabel(out, rect.Min.X, rect.Min.Y, label, c)
		}
	}

	return out
}

func maskColor(i int, opts RenderOptions) color.NRGBA {
	if opts.RandomColor {
		return palette[i%len(palette)]
	}
	return maskGreen
}

// fillMask blends the mask color into every masked pixel at maskAlpha.
func fillMask(dst *image.NRGBA, mask segchat.Mask, c color.NRGBA) {
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.At(x, y) {
				continue
			}
			i := dst.PixOffset(x, y)
			if i < 0 || i+2 >= len(dst.Pix) {
				continue
			}
			dst.Pix[i] = blend(dst.Pix[i], c.R)
			dst.Pix[i+1] = blend(dst.Pix[i+1], c.G)
			dst.Pix[i+2] = blend(dst.Pix[i+2], c.B)
		}
	}
}

func blend(base, overlay uint8) uint8 {
	return uint8((1-maskAlpha)*float64(base) + maskAlpha*float64(overlay))
}

// outlineMask strokes the mask's border: pixels inside the mask with at
// least one 4-neighbor outside it.
func outlineMask(dst *image.NRGBA, mask segchat.Mask, c color.NRGBA) {
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.At(x, y) {
				continue
			}
			if mask.At(x-1, y) && mask.At(x+1, y) && mask.At(x, y-1) && mask.At(x, y+1) {
				continue
			}
			// Thicken the stroke by painting the pixel's neighborhood.
			for dy := 0; dy < outlineThickness; dy++ {
				for dx := 0; dx < outlineThickness; dx++ {
					setPixel(dst, x+dx, y+dy, c)
				}
			}
		}
	}
}

// drawRect strokes an axis-aligned rectangle of the given thickness.
func drawRect(dst *image.NRGBA, r image.Rectangle, c color.NRGBA, thickness int) {
	r = r.Intersect(dst.Bounds())
	for t := 0; t < thickness; t++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			setPixel(dst, x, r.Min.Y+t, c)
			setPixel(dst, x, r.Max.Y-1-t, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			setPixel(dst, r.Min.X+t, y, c)
			setPixel(dst, r.Max.X-1-t, y, c)
		}
	}
}

// drawLabel paints the label text on a filled background anchored to the
// box's top-left corner, inside the image.
func drawLabel(dst *image.NRGBA, x, y int, label string, bg color.NRGBA) {
	if label == "" {
		return
	}
	face := basicfont.Face7x13
	const pad = 2

	width := font.MeasureString(face, label).Ceil() + 2*pad
	height := face.Height + 2*pad

	top := y - height
	if top < dst.Bounds().Min.Y {
		top = y
	}

	bgRect := image.Rect(x, top, x+width, top+height)
	fillRect(dst, bgRect.Intersect(dst.Bounds()), bg)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: face,
		Dot:  fixed.P(x+pad, top+pad+face.Ascent),
	}
	d.DrawString(label)
}

func fillRect(dst *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			setPixel(dst, x, y, c)
		}
	}
}

func setPixel(dst *image.NRGBA, x, y int, c color.NRGBA) {
	if !image.Pt(x, y).In(dst.Bounds()) {
		return
	}
	i := dst.PixOffset(x, y)
	dst.Pix[i] = c.R
	dst.Pix[i+1] = c.G
	dst.Pix[i+2] = c.B
	dst.Pix[i+3] = 255
}
