package detector

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

// WindowClassifier scores one fixed-size window of a grayscale image.
//
// The feature descriptor and its trained weights live behind this
// interface; Scanner only drives the pyramid, stride and suppression.
type WindowClassifier interface {
	// WindowSize returns the trained window size (e.g. 64x128 for people).
	WindowSize() image.Point
	// Score evaluates the window with top-left corner at pt. Windows may
	// extend beyond img when padding is used.
	Score(img *image.Gray, pt image.Point) float64
}

// Scanner implements Detector by sliding a WindowClassifier over a scale
// pyramid and grouping the hits.
//
// Steps per frame:
//  1. Convert to grayscale
//  2. Build pyramid levels (native size, shrinking by ScaleFactor)
//  3. Score every window at WinStride steps on each level
//  4. Keep windows scoring >= HitThreshold, mapped back to native scale
//  5. Group candidates with GroupRectangles
type Scanner struct {
	classifier WindowClassifier
	params     Params
	window     image.Point
}

// NewScanner creates a Scanner with fail-fast validation of params and
// classifier window size.
func NewScanner(classifier WindowClassifier, params Params) (*Scanner, error) {
	if classifier == nil {
		return nil, fmt.Errorf("%w: nil classifier", ErrClassifier)
	}
	window := classifier.WindowSize()
	if window.X <= 0 || window.Y <= 0 {
		return nil, fmt.Errorf("%w: invalid window size %v", ErrClassifier, window)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Scanner{classifier: classifier, params: params, window: window}, nil
}

// Params returns the validated parameters.
func (s *Scanner) Params() Params {
	return s.params
}

// Detect implements Detector.
func (s *Scanner) Detect(frame *videoio.Frame) ([]BoundingBox, error) {
	if err := CheckFrame(frame); err != nil {
		return nil, err
	}
	return s.DetectGray(Grayscale(frame)), nil
}

// DetectGray runs detection on an already converted image.
func (s *Scanner) DetectGray(gray *image.Gray) []BoundingBox {
	candidates := s.Candidates(gray)
	return GroupRectangles(candidates, s.params.GroupThreshold, s.params.GroupEps)
}

// Candidates returns every window scoring >= HitThreshold on every level,
// in native coordinates, before grouping.
func (s *Scanner) Candidates(gray *image.Gray) []BoundingBox {
	var candidates []BoundingBox

	for _, level := range Pyramid(gray.Bounds().Size(), s.window, s.params) {
		img := gray
		if level.Index > 0 {
			img = resize(gray, level.Size)
		}
		for _, pt := range Windows(level, s.window, s.params) {
			if s.classifier.Score(img, pt) >= s.params.HitThreshold {
				candidates = append(candidates, ToNative(level, pt, s.window))
			}
		}
	}

	return candidates
}

// resize scales src to size with bilinear interpolation.
func resize(src *image.Gray, size image.Point) *image.Gray {
	dst := image.NewGray(image.Rectangle{Max: size})
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
