package gstreamer

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	framerateField = regexp.MustCompile(`framerate=(?:\(fraction\))?(\d+)/(\d+)`)
	fractionValue  = regexp.MustCompile(`^\D*(\d+)\D+(\d+)\D*$`)
	intField       = func(name string) *regexp.Regexp {
		return regexp.MustCompile(name + `=(?:\(int\))?(\d+)`)
	}
	widthField  = intField("width")
	heightField = intField("height")
)

// VideoCaps holds the negotiated raw video format.
type VideoCaps struct {
	Width  int
	Height int
	FPSNum int
	FPSDen int
}

// FPS returns the frame rate as a float, or 0 when unknown.
func (c VideoCaps) FPS() float64 {
	if c.FPSNum <= 0 || c.FPSDen <= 0 {
		return 0
	}
	return float64(c.FPSNum) / float64(c.FPSDen)
}

// ParseVideoCaps extracts width, height and framerate from a caps string
// such as "video/x-raw, format=(string)RGB, width=(int)640, height=(int)480, framerate=(fraction)30/1".
func ParseVideoCaps(caps string) (VideoCaps, error) {
	var vc VideoCaps

	if m := widthField.FindStringSubmatch(caps); m != nil {
		vc.Width, _ = strconv.Atoi(m[1])
	}
	if m := heightField.FindStringSubmatch(caps); m != nil {
		vc.Height, _ = strconv.Atoi(m[1])
	}
	if m := framerateField.FindStringSubmatch(caps); m != nil {
		vc.FPSNum, _ = strconv.Atoi(m[1])
		vc.FPSDen, _ = strconv.Atoi(m[2])
	}

	if vc.Width <= 0 || vc.Height <= 0 {
		return vc, fmt.Errorf("could not find video dimensions in caps %q", caps)
	}
	return vc, nil
}

// ParseFraction parses a framerate value formatted as "N/D" (or any two
// integers separated by non-digits, as printed for fraction values).
// Examples: "30/1" → (30, 1), "30000/1001" → (30000, 1001).
func ParseFraction(s string) (num, den int, ok bool) {
	m := fractionValue.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	num, _ = strconv.Atoi(m[1])
	den, _ = strconv.Atoi(m[2])
	if den == 0 {
		return 0, 0, false
	}
	return num, den, true
}

// FramerateFraction converts a float frame rate to a caps fraction.
//
// NTSC-style rates are mapped to their exact 1001 denominators
// (29.97 → 30000/1001); integer rates map to N/1; anything else is rounded
// to millihertz and reduced.
func FramerateFraction(fps float64) (num, den int) {
	if fps <= 0 {
		return 0, 1
	}
	if r := math.Round(fps); math.Abs(fps-r) < 1e-6 {
		return int(r), 1
	}
	if n := math.Round(fps * 1001); math.Mod(n, 1000) == 0 && math.Abs(fps*1001-n) < 0.5 {
		return int(n), 1001
	}
	num = int(math.Round(fps * 1000))
	den = 1000
	g := gcd(num, den)
	return num / g, den / g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// PackedRGB returns data with row padding removed.
//
// GStreamer aligns RGB rows to 4 bytes, so for widths where width*3 is not a
// multiple of 4 the mapped buffer is larger than width*height*3.
func PackedRGB(data []byte, width, height int) ([]byte, error) {
	row := width * 3
	if len(data) == row*height {
		return data, nil
	}
	stride := (row + 3) &^ 3
	if len(data) < stride*(height-1)+row {
		return nil, fmt.Errorf("buffer too small: got %d bytes for %dx%d RGB (stride %d)",
			len(data), width, height, stride)
	}
	packed := make([]byte, row*height)
	for y := 0; y < height; y++ {
		copy(packed[y*row:(y+1)*row], data[y*stride:y*stride+row])
	}
	return packed, nil
}

// EncoderFor returns the gst-launch fragment of the encoder for a fourcc.
//
// Supported codes:
//   - mp4v, fmp4, xvid, divx: MPEG-4 Part 2 (avenc_mpeg4)
//   - avc1, h264, x264:       H.264 (x264enc)
//   - mjpg:                   Motion JPEG (jpegenc)
func EncoderFor(fourcc string, bitrate int) (string, error) {
	switch strings.ToLower(fourcc) {
	case "mp4v", "fmp4", "xvid", "divx":
		if bitrate > 0 {
			return fmt.Sprintf("avenc_mpeg4 bitrate=%d", bitrate*1000), nil
		}
		return "avenc_mpeg4", nil
	case "avc1", "h264", "x264":
		if bitrate > 0 {
			return fmt.Sprintf("x264enc bitrate=%d ! h264parse", bitrate), nil
		}
		return "x264enc ! h264parse", nil
	case "mjpg":
		return "jpegenc", nil
	default:
		return "", fmt.Errorf("unsupported fourcc %q", fourcc)
	}
}

// MuxerFor returns the container muxer for an output path, chosen by extension.
// Unknown extensions fall back to mp4mux.
func MuxerFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".avi":
		return "avimux"
	case ".mkv":
		return "matroskamux"
	case ".mov":
		return "qtmux"
	default:
		return "mp4mux"
	}
}
