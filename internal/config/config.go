package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/e7canasta/orion-annotate/modules/detector"
	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

// EnvPrefix prefixes every environment override, e.g. ANNOTATE_VIDEO_FOURCC.
const EnvPrefix = "ANNOTATE_"

// Config represents the complete annotator configuration
type Config struct {
	Input           string `yaml:"input"            env:"INPUT"`
	Output          string `yaml:"output"           env:"OUTPUT"`
	LogLevel        string `yaml:"log_level"        env:"LOG_LEVEL"`        // debug, info, warn, error
	LogFormat       string `yaml:"log_format"       env:"LOG_FORMAT"`       // text, json
	ChannelCapacity int    `yaml:"channel_capacity" env:"CHANNEL_CAPACITY"` // progress events buffered (default: 10)
	TickIntervalMS  int    `yaml:"tick_interval_ms" env:"TICK_INTERVAL_MS"` // control surface refresh (default: 100)

	Video      VideoConfig      `yaml:"video"      envPrefix:"VIDEO_"`
	Detector   DetectorConfig   `yaml:"detector"   envPrefix:"DETECTOR_"`
	Annotation AnnotationConfig `yaml:"annotation" envPrefix:"ANNOTATION_"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"   envPrefix:"SNAPSHOT_"`
	Metrics    MetricsConfig    `yaml:"metrics"    envPrefix:"METRICS_"`
	MQTT       MQTTConfig       `yaml:"mqtt"       envPrefix:"MQTT_"`
}

// VideoConfig contains output encoding settings
type VideoConfig struct {
	Fourcc      string `yaml:"fourcc"       env:"FOURCC"`       // mp4v, avc1, mjpg
	BitrateKbps int    `yaml:"bitrate_kbps" env:"BITRATE_KBPS"` // 0 = encoder default
}

// DetectorConfig contains sliding-window detector settings
type DetectorConfig struct {
	ScaleFactor    float64 `yaml:"scale_factor"    env:"SCALE_FACTOR"`
	MaxLevels      int     `yaml:"max_levels"      env:"MAX_LEVELS"`
	WinStride      int     `yaml:"win_stride"      env:"WIN_STRIDE"`
	Padding        int     `yaml:"padding"         env:"PADDING"`
	HitThreshold   float64 `yaml:"hit_threshold"   env:"HIT_THRESHOLD"`
	GroupThreshold int     `yaml:"group_threshold" env:"GROUP_THRESHOLD"` // 0 disables grouping
	GroupEps       float64 `yaml:"group_eps"       env:"GROUP_EPS"`
}

// AnnotationConfig contains outline style settings
type AnnotationConfig struct {
	Color     string `yaml:"color"     env:"COLOR"` // hex, e.g. "#00ff00"
	Thickness int    `yaml:"thickness" env:"THICKNESS"`
}

// SnapshotConfig contains annotated-frame snapshot settings
type SnapshotConfig struct {
	Enabled        bool   `yaml:"enabled"         env:"ENABLED"`
	Dir            string `yaml:"dir"             env:"DIR"`
	Format         string `yaml:"format"          env:"FORMAT"` // png, jpeg, webp
	Every          int    `yaml:"every"           env:"EVERY"`  // save one frame out of N
	Quality        int    `yaml:"quality"         env:"QUALITY"`
	ThumbnailWidth int    `yaml:"thumbnail_width" env:"THUMBNAIL_WIDTH"` // 0 keeps full size
}

// MetricsConfig contains the health/metrics HTTP server settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr"    env:"ADDR"`
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Broker   string     `yaml:"broker"    env:"BROKER"` // empty disables MQTT
	ClientID string     `yaml:"client_id" env:"CLIENT_ID"`
	Topics   MQTTTopics `yaml:"topics"    envPrefix:"TOPIC_"`
	QoS      byte       `yaml:"qos"       env:"QOS"`
	Codec    string     `yaml:"codec"     env:"CODEC"` // json, msgpack
}

// MQTTTopics contains topic names
type MQTTTopics struct {
	Status  string `yaml:"status"  env:"STATUS"`
	Control string `yaml:"control" env:"CONTROL"`
}

// Default returns the configuration used when neither the file nor the
// environment set a key. Keys present in YAML replace these values, so an
// explicit zero (e.g. group_threshold: 0) is kept.
func Default() Config {
	p := detector.DefaultParams()
	return Config{
		LogLevel:        "info",
		LogFormat:       "text",
		ChannelCapacity: 10,
		TickIntervalMS:  100,
		Video: VideoConfig{
			Fourcc: videoio.DefaultFourcc,
		},
		Detector: DetectorConfig{
			ScaleFactor:    p.ScaleFactor,
			MaxLevels:      p.MaxLevels,
			WinStride:      p.WinStride.X,
			Padding:        p.Padding.X,
			HitThreshold:   p.HitThreshold,
			GroupThreshold: p.GroupThreshold,
			GroupEps:       p.GroupEps,
		},
		Annotation: AnnotationConfig{
			Color:     "#00ff00",
			Thickness: 2,
		},
		Snapshot: SnapshotConfig{
			Format:  "jpeg",
			Every:   30,
			Quality: 90,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		MQTT: MQTTConfig{
			ClientID: "orion-annotate",
			Codec:    "json",
		},
	}
}

// Load reads a YAML configuration file, applies ANNOTATE_* environment
// overrides and validates the result. An empty path or a missing file
// yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
