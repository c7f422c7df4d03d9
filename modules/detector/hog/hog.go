// Package hog provides the production people detector backed by OpenCV's
// histogram-of-oriented-gradients descriptor and its built-in linear SVM.
//
// OpenCV evaluates the scale pyramid and sliding windows; candidates are
// requested ungrouped (final threshold 0) and suppressed with
// detector.GroupRectangles so grouping behaves the same as the pure-Go
// Scanner.
package hog

import (
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/e7canasta/orion-annotate/modules/detector"
	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

// WindowSize is the training window of the default people detector.
var WindowSize = image.Pt(64, 128)

// Detector implements detector.Detector using gocv.HOGDescriptor.
type Detector struct {
	hog    gocv.HOGDescriptor
	params detector.Params
	closed atomic.Bool

	frames     atomic.Uint64
	candidates atomic.Uint64
}

var _ detector.Detector = (*Detector)(nil)

// New loads the built-in people classifier.
//
// Returns an error wrapping detector.ErrClassifier when the classifier
// coefficients are empty; there is no fallback detector.
func New(params detector.Params) (*Detector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	people := gocv.HOGDefaultPeopleDetector()
	defer people.Close()
	if people.Empty() {
		return nil, fmt.Errorf("%w: default people detector has no coefficients", detector.ErrClassifier)
	}

	hog := gocv.NewHOGDescriptor()
	if err := installSVM(&hog, people); err != nil {
		hog.Close()
		return nil, err
	}

	slog.Info("detector: HOG people detector loaded",
		"window", fmt.Sprintf("%dx%d", WindowSize.X, WindowSize.Y),
		"scale_factor", params.ScaleFactor,
		"win_stride", fmt.Sprintf("%dx%d", params.WinStride.X, params.WinStride.Y),
		"group_threshold", params.GroupThreshold,
	)

	return &Detector{hog: hog, params: params}, nil
}

type svmSetter interface {
	SetSVMDetector(det gocv.Mat) error
}

// installSVM loads the linear SVM coefficients into the descriptor.
func installSVM(h svmSetter, coefficients gocv.Mat) error {
	if err := h.SetSVMDetector(coefficients); err != nil {
		return fmt.Errorf("%w: %v", detector.ErrClassifier, err)
	}
	return nil
}

// Detect implements detector.Detector.
func (d *Detector) Detect(frame *videoio.Frame) ([]detector.BoundingBox, error) {
	if d.closed.Load() {
		return nil, fmt.Errorf("%w: detector closed", detector.ErrDetect)
	}
	if err := detector.CheckFrame(frame); err != nil {
		return nil, err
	}

	rgb, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", detector.ErrDetect, frame.Seq, err)
	}
	defer rgb.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)
	if gray.Empty() {
		return nil, fmt.Errorf("%w: frame %d: grayscale conversion produced no data", detector.ErrDetect, frame.Seq)
	}

	rects := d.hog.DetectMultiScaleWithParams(
		gray,
		d.params.HitThreshold,
		d.params.WinStride,
		d.params.Padding,
		d.params.ScaleFactor,
		0, // ungrouped; suppression below
		false,
	)

	candidates := make([]detector.BoundingBox, 0, len(rects))
	for _, r := range rects {
		candidates = append(candidates, detector.FromRect(r))
	}

	d.frames.Add(1)
	d.candidates.Add(uint64(len(candidates)))

	boxes := detector.GroupRectangles(candidates, d.params.GroupThreshold, d.params.GroupEps)

	slog.Debug("detector: frame evaluated",
		"seq", frame.Seq,
		"trace_id", frame.TraceID,
		"candidates", len(candidates),
		"boxes", len(boxes),
	)

	return boxes, nil
}

// Stats returns the number of frames evaluated and raw candidates found.
func (d *Detector) Stats() (frames, candidates uint64) {
	return d.frames.Load(), d.candidates.Load()
}

// Close releases the OpenCV descriptor. Safe to call multiple times.
func (d *Detector) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	return d.hog.Close()
}
