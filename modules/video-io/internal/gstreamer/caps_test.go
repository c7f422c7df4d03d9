package gstreamer

import (
	"bytes"
	"testing"
	"time"
)

func TestParseVideoCaps(t *testing.T) {
	tests := []struct {
		name    string
		caps    string
		want    VideoCaps
		wantErr bool
	}{
		{
			name: "typed caps string",
			caps: "video/x-raw, format=(string)RGB, width=(int)640, height=(int)480, framerate=(fraction)30/1",
			want: VideoCaps{Width: 640, Height: 480, FPSNum: 30, FPSDen: 1},
		},
		{
			name: "ntsc framerate",
			caps: "video/x-raw, format=(string)RGB, width=(int)1920, height=(int)1080, framerate=(fraction)30000/1001",
			want: VideoCaps{Width: 1920, Height: 1080, FPSNum: 30000, FPSDen: 1001},
		},
		{
			name: "untyped caps string",
			caps: "video/x-raw,format=RGB,width=320,height=240,framerate=5/1",
			want: VideoCaps{Width: 320, Height: 240, FPSNum: 5, FPSDen: 1},
		},
		{
			name: "no framerate",
			caps: "video/x-raw, width=(int)320, height=(int)240",
			want: VideoCaps{Width: 320, Height: 240},
		},
		{
			name:    "no dimensions",
			caps:    "audio/x-raw, rate=(int)44100",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVideoCaps(tt.caps)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %+v", tt.caps, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseVideoCaps() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestVideoCaps_FPS(t *testing.T) {
	if fps := (VideoCaps{FPSNum: 30000, FPSDen: 1001}).FPS(); fps < 29.97 || fps > 29.98 {
		t.Errorf("expected ~29.97, got %f", fps)
	}
	if fps := (VideoCaps{}).FPS(); fps != 0 {
		t.Errorf("expected 0 for unknown framerate, got %f", fps)
	}
}

func TestParseFraction(t *testing.T) {
	tests := []struct {
		in     string
		num    int
		den    int
		wantOK bool
	}{
		{"30/1", 30, 1, true},
		{"30000/1001", 30000, 1001, true},
		{"{25 1}", 25, 1, true},
		{"0/1", 0, 1, true},
		{"5/0", 0, 0, false},
		{"", 0, 0, false},
		{"abc", 0, 0, false},
	}

	for _, tt := range tests {
		num, den, ok := ParseFraction(tt.in)
		if ok != tt.wantOK || num != tt.num || den != tt.den {
			t.Errorf("ParseFraction(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tt.in, num, den, ok, tt.num, tt.den, tt.wantOK)
		}
	}
}

func TestFramerateFraction(t *testing.T) {
	tests := []struct {
		fps float64
		num int
		den int
	}{
		{30, 30, 1},
		{25, 25, 1},
		{29.97002997, 30000, 1001},
		{23.976, 24000, 1001},
		{12.5, 25, 2},
		{0, 0, 1},
	}

	for _, tt := range tests {
		num, den := FramerateFraction(tt.fps)
		if num != tt.num || den != tt.den {
			t.Errorf("FramerateFraction(%v) = %d/%d, want %d/%d", tt.fps, num, den, tt.num, tt.den)
		}
	}
}

func TestSourceInfo_FrameCount(t *testing.T) {
	info := SourceInfo{
		Caps:     VideoCaps{Width: 640, Height: 480, FPSNum: 30, FPSDen: 1},
		Duration: 10 * time.Second,
	}
	if got := info.FrameCount(); got != 300 {
		t.Errorf("expected 300 frames, got %d", got)
	}

	info.Duration = 0
	if got := info.FrameCount(); got != 0 {
		t.Errorf("expected 0 (unknown) without duration, got %d", got)
	}
}

func TestPackedRGB(t *testing.T) {
	t.Run("already packed", func(t *testing.T) {
		data := make([]byte, 4*2*3)
		got, err := PackedRGB(data, 4, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != len(data) {
			t.Errorf("expected %d bytes, got %d", len(data), len(got))
		}
	})

	t.Run("row padding removed", func(t *testing.T) {
		// width 3 → 9 bytes per row, stride 12
		padded := []byte{
			1, 2, 3, 4, 5, 6, 7, 8, 9, 0, 0, 0,
			10, 11, 12, 13, 14, 15, 16, 17, 18, 0, 0, 0,
		}
		want := []byte{
			1, 2, 3, 4, 5, 6, 7, 8, 9,
			10, 11, 12, 13, 14, 15, 16, 17, 18,
		}
		got, err := PackedRGB(padded, 3, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("PackedRGB() = %v, want %v", got, want)
		}
	})

	t.Run("short buffer", func(t *testing.T) {
		if _, err := PackedRGB(make([]byte, 10), 3, 2); err == nil {
			t.Fatal("expected error for short buffer")
		}
	})
}

func TestEncoderFor(t *testing.T) {
	tests := []struct {
		fourcc  string
		bitrate int
		want    string
		wantErr bool
	}{
		{"mp4v", 0, "avenc_mpeg4", false},
		{"MP4V", 0, "avenc_mpeg4", false},
		{"mp4v", 2000, "avenc_mpeg4 bitrate=2000000", false},
		{"avc1", 0, "x264enc ! h264parse", false},
		{"h264", 4000, "x264enc bitrate=4000 ! h264parse", false},
		{"mjpg", 0, "jpegenc", false},
		{"wmv3", 0, "", true},
	}

	for _, tt := range tests {
		got, err := EncoderFor(tt.fourcc, tt.bitrate)
		if (err != nil) != tt.wantErr {
			t.Errorf("EncoderFor(%q) error = %v, wantErr %v", tt.fourcc, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("EncoderFor(%q) = %q, want %q", tt.fourcc, got, tt.want)
		}
	}
}

func TestMuxerFor(t *testing.T) {
	tests := map[string]string{
		"out.mp4":      "mp4mux",
		"out.MP4":      "mp4mux",
		"/tmp/out.avi": "avimux",
		"clip.mkv":     "matroskamux",
		"clip.mov":     "qtmux",
		"no-extension": "mp4mux",
	}
	for path, want := range tests {
		if got := MuxerFor(path); got != want {
			t.Errorf("MuxerFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestBuildSinkPipeline(t *testing.T) {
	desc, err := BuildSinkPipeline(SinkConfig{Path: "out.avi", Fourcc: "mjpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "appsrc name=src format=time block=true ! videoconvert ! jpegenc ! avimux ! filesink name=out"
	if desc != want {
		t.Errorf("BuildSinkPipeline() = %q, want %q", desc, want)
	}

	if _, err := BuildSinkPipeline(SinkConfig{Path: "out.mp4", Fourcc: "nope"}); err == nil {
		t.Error("expected error for unsupported fourcc")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msg   string
		debug string
		want  ErrorCategory
	}{
		{"Resource not found.", "gstfilesrc.c: No such file \"/x.mp4\"", ErrCategoryResource},
		{"Could not open file \"/ro/out.mp4\" for writing.", "Permission denied", ErrCategoryResource},
		{"Could not decode stream.", "", ErrCategoryCodec},
		{"Internal data stream error.", "streaming stopped, reason not-negotiated", ErrCategoryFormat},
		{"Could not determine type of stream.", "", ErrCategoryFormat},
		{"Something odd", "", ErrCategoryUnknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.msg, tt.debug); got != tt.want {
			t.Errorf("Classify(%q, %q) = %s, want %s", tt.msg, tt.debug, got, tt.want)
		}
	}
}
