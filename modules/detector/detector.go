package detector

import (
	"errors"
	"fmt"
	"image"

	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

var (
	// ErrDetect is returned when detection cannot be evaluated on a frame.
	ErrDetect = errors.New("detector: detect failed")
	// ErrClassifier is returned at construction when the classifier cannot be loaded.
	ErrClassifier = errors.New("detector: classifier unavailable")
)

// Detector finds human figures in a single frame.
//
// Implementations must be deterministic: the same frame always yields the
// same set of boxes. A Detector is owned by one goroutine at a time.
type Detector interface {
	// Detect returns axis-aligned boxes in frame pixel coordinates.
	// The frame is read-only. Order of the returned boxes is not significant.
	Detect(frame *videoio.Frame) ([]BoundingBox, error)
}

// BoundingBox is an axis-aligned rectangle in frame pixel coordinates.
type BoundingBox struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Clamp intersects the box with a width x height frame.
// ok is false when nothing of the box remains inside the frame.
func (b BoundingBox) Clamp(width, height int) (clamped BoundingBox, ok bool) {
	r := b.Rect().Intersect(image.Rect(0, 0, width, height))
	if r.Empty() {
		return BoundingBox{}, false
	}
	return FromRect(r), true
}

// String returns "WxH+X+Y".
func (b BoundingBox) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", b.Width, b.Height, b.X, b.Y)
}

// FromRect converts an image.Rectangle to a BoundingBox.
func FromRect(r image.Rectangle) BoundingBox {
	r = r.Canon()
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Params controls the multi-scale sliding-window procedure.
type Params struct {
	// ScaleFactor is the shrink ratio between pyramid levels (> 1)
	ScaleFactor float64
	// MaxLevels caps the number of pyramid levels
	MaxLevels int
	// WinStride is the window step in pixels on each level
	WinStride image.Point
	// Padding extends the scanned area beyond each level's borders
	Padding image.Point
	// HitThreshold is the minimum classifier score for a candidate window
	HitThreshold float64
	// GroupThreshold is the minimum cluster size minus one kept by suppression;
	// clusters with <= GroupThreshold members are dropped, 0 disables grouping
	GroupThreshold int
	// GroupEps is the relative edge tolerance for two boxes to be clustered
	GroupEps float64
}

// DefaultParams returns the parameters of the reference people detector:
// scale 1.05, 8x8 stride, no padding, hit threshold 0, group threshold 2,
// eps 0.2, up to 64 levels.
func DefaultParams() Params {
	return Params{
		ScaleFactor:    1.05,
		MaxLevels:      64,
		WinStride:      image.Pt(8, 8),
		Padding:        image.Pt(0, 0),
		HitThreshold:   0,
		GroupThreshold: 2,
		GroupEps:       0.2,
	}
}

// Validate checks the parameters and fills zero values with defaults.
func (p *Params) Validate() error {
	def := DefaultParams()
	if p.ScaleFactor == 0 {
		p.ScaleFactor = def.ScaleFactor
	}
	if p.MaxLevels == 0 {
		p.MaxLevels = def.MaxLevels
	}
	if p.WinStride == (image.Point{}) {
		p.WinStride = def.WinStride
	}
	if p.GroupEps == 0 {
		p.GroupEps = def.GroupEps
	}

	if p.ScaleFactor <= 1 {
		return fmt.Errorf("detector: scale factor must be > 1, got %.3f", p.ScaleFactor)
	}
	if p.MaxLevels < 1 {
		return fmt.Errorf("detector: max levels must be >= 1, got %d", p.MaxLevels)
	}
	if p.WinStride.X <= 0 || p.WinStride.Y <= 0 {
		return fmt.Errorf("detector: window stride must be positive, got %v", p.WinStride)
	}
	if p.Padding.X < 0 || p.Padding.Y < 0 {
		return fmt.Errorf("detector: padding must not be negative, got %v", p.Padding)
	}
	if p.GroupThreshold < 0 {
		return fmt.Errorf("detector: group threshold must not be negative, got %d", p.GroupThreshold)
	}
	if p.GroupEps < 0 {
		return fmt.Errorf("detector: group eps must not be negative, got %.3f", p.GroupEps)
	}
	return nil
}

// CheckFrame validates a frame before detection.
// Returns an error wrapping ErrDetect for malformed frames.
func CheckFrame(frame *videoio.Frame) error {
	if frame == nil {
		return fmt.Errorf("%w: nil frame", ErrDetect)
	}
	if err := frame.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrDetect, err)
	}
	return nil
}
