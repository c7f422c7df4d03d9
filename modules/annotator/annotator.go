// Package annotator draws detection outlines directly into frame pixels.
package annotator

import (
	"fmt"
	"image/color"

	"github.com/e7canasta/orion-annotate/modules/detector"
	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

// Style is the outline appearance.
type Style struct {
	Color     color.RGBA
	Thickness int
}

// DefaultStyle is a 2-pixel green outline.
func DefaultStyle() Style {
	return Style{Color: color.RGBA{R: 0, G: 255, B: 0, A: 255}, Thickness: 2}
}

// Annotator draws bounding box outlines onto frames in place.
//
// Boxes are clamped to the frame first; boxes entirely outside are skipped.
// Strokes grow inward from the box edges and overwrite pixels (no blending),
// so drawing order does not matter.
type Annotator struct {
	style Style
}

// New creates an Annotator with fail-fast validation of the style.
func New(style Style) (*Annotator, error) {
	if style.Thickness <= 0 {
		return nil, fmt.Errorf("annotator: thickness must be positive, got %d", style.Thickness)
	}
	return &Annotator{style: style}, nil
}

// Style returns the configured style.
func (a *Annotator) Style() Style {
	return a.style
}

// Draw outlines every box on frame and returns how many were drawn.
func (a *Annotator) Draw(frame *videoio.Frame, boxes []detector.BoundingBox) int {
	drawn := 0
	for _, b := range boxes {
		clamped, ok := b.Clamp(frame.Width, frame.Height)
		if !ok {
			continue
		}
		drawBox(frame, clamped, a.style)
		drawn++
	}
	return drawn
}

func drawBox(frame *videoio.Frame, b detector.BoundingBox, style Style) {
	x0, y0 := b.X, b.Y
	x1, y1 := b.X+b.Width, b.Y+b.Height
	// strokes thicker than half the box collapse into a filled box
	for s := 0; s < style.Thickness; s++ {
		if y0+s < y1 {
			drawHLine(frame, y0+s, x0, x1, style.Color)
			drawHLine(frame, y1-1-s, x0, x1, style.Color)
		}
		if x0+s < x1 {
			drawVLine(frame, x0+s, y0, y1, style.Color)
			drawVLine(frame, x1-1-s, y0, y1, style.Color)
		}
	}
}

// drawHLine paints [x0, x1) on row y. Columns must already be clamped.
func drawHLine(frame *videoio.Frame, y, x0, x1 int, c color.RGBA) {
	if y < 0 || y >= frame.Height {
		return
	}
	i := y*frame.Stride() + x0*videoio.BytesPerPixel
	for x := x0; x < x1; x++ {
		frame.Data[i+0] = c.R
		frame.Data[i+1] = c.G
		frame.Data[i+2] = c.B
		i += videoio.BytesPerPixel
	}
}

func drawVLine(frame *videoio.Frame, x, y0, y1 int, c color.RGBA) {
	if x < 0 || x >= frame.Width {
		return
	}
	stride := frame.Stride()
	i := y0*stride + x*videoio.BytesPerPixel
	for y := y0; y < y1; y++ {
		frame.Data[i+0] = c.R
		frame.Data[i+1] = c.G
		frame.Data[i+2] = c.B
		i += stride
	}
}
