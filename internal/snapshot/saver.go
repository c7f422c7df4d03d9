// Package snapshot saves a sample of annotated frames as still images.
package snapshot

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/e7canasta/orion-annotate/internal/config"
	"github.com/e7canasta/orion-annotate/modules/detector"
	"github.com/e7canasta/orion-annotate/modules/pipeline"
	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

// FrameSaver writes every Nth annotated frame to disk.
//
// Formats: png, jpeg (via imaging) and webp. Save failures are logged and
// counted but never fail the run. It is a pipeline.Observer.
type FrameSaver struct {
	outputDir      string
	format         string
	every          uint64
	quality        int
	thumbnailWidth int

	framesSaved   atomic.Uint64
	framesDropped atomic.Uint64
}

var _ pipeline.Observer = (*FrameSaver)(nil)

// NewFrameSaver creates a frame saver from the snapshot config.
func NewFrameSaver(cfg config.SnapshotConfig) (*FrameSaver, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: failed to create output directory: %w", err)
	}

	switch cfg.Format {
	case "png", "jpeg", "webp":
	default:
		return nil, fmt.Errorf("snapshot: unsupported format: %s (must be png, jpeg or webp)", cfg.Format)
	}
	if cfg.Every < 1 {
		return nil, fmt.Errorf("snapshot: every must be >= 1, got %d", cfg.Every)
	}

	return &FrameSaver{
		outputDir:      cfg.Dir,
		format:         cfg.Format,
		every:          uint64(cfg.Every),
		quality:        cfg.Quality,
		thumbnailWidth: cfg.ThumbnailWidth,
	}, nil
}

// RunStarted implements pipeline.Observer.
func (fs *FrameSaver) RunStarted(run *pipeline.Run) {}

// FrameProcessed implements pipeline.Observer.
func (fs *FrameSaver) FrameProcessed(run *pipeline.Run, frame *videoio.Frame, boxes []detector.BoundingBox, timing pipeline.Timing) {
	if frame.Seq%fs.every != 0 {
		return
	}
	if _, err := fs.SaveFrame(run.ID, frame); err != nil {
		slog.Warn("snapshot: frame not saved", "run_id", run.ID, "seq", frame.Seq, "error", err)
	}
}

// RunFinished implements pipeline.Observer.
func (fs *FrameSaver) RunFinished(run *pipeline.Run, err error) {
	saved, dropped := fs.Stats()
	slog.Debug("snapshot: run finished", "run_id", run.ID, "saved", saved, "dropped", dropped)
}

// SaveFrame saves frame and returns the written path.
//
// Filename format: {run}_frame_{seq:06d}.{ext}
// Example: 3f2a9c1e_frame_000042.jpeg
func (fs *FrameSaver) SaveFrame(runID string, frame *videoio.Frame) (string, error) {
	img, err := ToNRGBA(frame)
	if err != nil {
		fs.framesDropped.Add(1)
		return "", fmt.Errorf("RGB conversion failed: %w", err)
	}

	if fs.thumbnailWidth > 0 && fs.thumbnailWidth < frame.Width {
		img = imaging.Resize(img, fs.thumbnailWidth, 0, imaging.Lanczos)
	}

	prefix := runID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	path := filepath.Join(fs.outputDir, fmt.Sprintf("%s_frame_%06d.%s", prefix, frame.Seq, fs.format))

	if err := fs.encode(img, path); err != nil {
		fs.framesDropped.Add(1)
		return "", err
	}

	fs.framesSaved.Add(1)
	return path, nil
}

func (fs *FrameSaver) encode(img image.Image, path string) error {
	switch fs.format {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer f.Close()
		if err := webp.Encode(f, img, &webp.Options{Quality: float32(fs.quality)}); err != nil {
			return fmt.Errorf("WebP encode failed: %w", err)
		}
		return nil
	case "png":
		return imaging.Save(img, path)
	default:
		return imaging.Save(img, path, imaging.JPEGQuality(fs.quality))
	}
}

// ToNRGBA converts packed RGB frame data to an opaque image.NRGBA.
func ToNRGBA(frame *videoio.Frame) (*image.NRGBA, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for i := 0; i < frame.Width*frame.Height; i++ {
		img.Pix[i*4+0] = frame.Data[i*3+0]
		img.Pix[i*4+1] = frame.Data[i*3+1]
		img.Pix[i*4+2] = frame.Data[i*3+2]
		img.Pix[i*4+3] = 255
	}
	return img, nil
}

// Stats returns current save statistics.
func (fs *FrameSaver) Stats() (saved, dropped uint64) {
	return fs.framesSaved.Load(), fs.framesDropped.Load()
}
