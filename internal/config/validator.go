package config

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/e7canasta/orion-annotate/modules/annotator"
	"github.com/e7canasta/orion-annotate/modules/detector"
	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

// Validate checks if the configuration is valid and fills defaults left
// empty by a hand-built Config
func Validate(cfg *Config) error {
	switch cfg.LogLevel = strings.ToLower(cfg.LogLevel); cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.ChannelCapacity == 0 {
		cfg.ChannelCapacity = 10
	}
	if cfg.ChannelCapacity < 1 {
		return fmt.Errorf("channel_capacity must be >= 1")
	}
	if cfg.TickIntervalMS == 0 {
		cfg.TickIntervalMS = 100
	}
	if cfg.TickIntervalMS < 1 {
		return fmt.Errorf("tick_interval_ms must be > 0")
	}

	// Video
	if cfg.Video.Fourcc == "" {
		cfg.Video.Fourcc = videoio.DefaultFourcc
	}
	if len(cfg.Video.Fourcc) != 4 {
		return fmt.Errorf("video.fourcc must have 4 characters, got %q", cfg.Video.Fourcc)
	}
	if cfg.Video.BitrateKbps < 0 {
		return fmt.Errorf("video.bitrate_kbps must be >= 0")
	}

	// Detector
	if _, err := cfg.DetectorParams(); err != nil {
		return err
	}

	// Annotation
	if cfg.Annotation.Color == "" {
		cfg.Annotation.Color = "#00ff00"
	}
	if cfg.Annotation.Thickness == 0 {
		cfg.Annotation.Thickness = 2
	}
	if _, err := cfg.Style(); err != nil {
		return err
	}

	// Snapshot
	if cfg.Snapshot.Enabled {
		if cfg.Snapshot.Dir == "" {
			return fmt.Errorf("snapshot.dir is required when snapshots are enabled")
		}
		if cfg.Snapshot.Format == "" {
			cfg.Snapshot.Format = "jpeg"
		}
		switch cfg.Snapshot.Format {
		case "png", "jpeg", "webp":
		default:
			return fmt.Errorf("snapshot.format must be png, jpeg or webp, got %q", cfg.Snapshot.Format)
		}
		if cfg.Snapshot.Every <= 0 {
			cfg.Snapshot.Every = 30
		}
		if cfg.Snapshot.Quality <= 0 {
			cfg.Snapshot.Quality = 90
		}
		if cfg.Snapshot.Quality > 100 {
			return fmt.Errorf("snapshot.quality must be in 1-100")
		}
		if cfg.Snapshot.ThumbnailWidth < 0 {
			return fmt.Errorf("snapshot.thumbnail_width must be >= 0")
		}
	}

	// Metrics
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}

	// MQTT (optional)
	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "orion-annotate"
		}
		if cfg.MQTT.Topics.Status == "" {
			cfg.MQTT.Topics.Status = fmt.Sprintf("annotate/status/%s", cfg.MQTT.ClientID)
		}
		if cfg.MQTT.Topics.Control == "" {
			cfg.MQTT.Topics.Control = fmt.Sprintf("annotate/control/%s", cfg.MQTT.ClientID)
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
		if cfg.MQTT.Codec == "" {
			cfg.MQTT.Codec = "json"
		}
		if cfg.MQTT.Codec != "json" && cfg.MQTT.Codec != "msgpack" {
			return fmt.Errorf("mqtt.codec must be json or msgpack, got %q", cfg.MQTT.Codec)
		}
	}

	return nil
}

// DetectorParams converts the detector section to detector.Params.
func (c *Config) DetectorParams() (detector.Params, error) {
	d := c.Detector
	p := detector.Params{
		ScaleFactor:    d.ScaleFactor,
		MaxLevels:      d.MaxLevels,
		WinStride:      image.Pt(d.WinStride, d.WinStride),
		Padding:        image.Pt(d.Padding, d.Padding),
		HitThreshold:   d.HitThreshold,
		GroupThreshold: d.GroupThreshold,
		GroupEps:       d.GroupEps,
	}
	if err := p.Validate(); err != nil {
		return detector.Params{}, err
	}
	return p, nil
}

// Style converts the annotation section to annotator.Style.
func (c *Config) Style() (annotator.Style, error) {
	col, err := colorful.Hex(c.Annotation.Color)
	if err != nil {
		return annotator.Style{}, fmt.Errorf("annotation.color: %w", err)
	}
	if c.Annotation.Thickness < 1 {
		return annotator.Style{}, fmt.Errorf("annotation.thickness must be > 0")
	}
	r, g, b := col.RGB255()
	return annotator.Style{
		Color:     color.RGBA{R: r, G: g, B: b, A: 255},
		Thickness: c.Annotation.Thickness,
	}, nil
}

// SinkConfig returns the output encoding settings.
func (c *Config) SinkConfig() videoio.SinkConfig {
	return videoio.SinkConfig{Fourcc: c.Video.Fourcc, Bitrate: c.Video.BitrateKbps}
}

// TickInterval returns the control surface refresh period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}
