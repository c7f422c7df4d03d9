package detector

import (
	"errors"
	"image"
	"testing"

	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

func TestBoundingBox_Clamp(t *testing.T) {
	tests := []struct {
		name   string
		box    BoundingBox
		want   BoundingBox
		wantOK bool
	}{
		{"inside", BoundingBox{10, 10, 20, 30}, BoundingBox{10, 10, 20, 30}, true},
		{"overflows right and bottom", BoundingBox{90, 40, 20, 30}, BoundingBox{90, 40, 10, 10}, true},
		{"negative origin", BoundingBox{-5, -5, 20, 20}, BoundingBox{0, 0, 15, 15}, true},
		{"fully outside", BoundingBox{200, 10, 20, 20}, BoundingBox{}, false},
		{"empty", BoundingBox{10, 10, 0, 5}, BoundingBox{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.box.Clamp(100, 50)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Clamp() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFromRect(t *testing.T) {
	b := FromRect(image.Rect(30, 40, 10, 20))
	want := BoundingBox{X: 10, Y: 20, Width: 20, Height: 20}
	if b != want {
		t.Errorf("FromRect() = %v, want %v", b, want)
	}
	if b.Rect() != image.Rect(10, 20, 30, 40) {
		t.Errorf("Rect() = %v", b.Rect())
	}
	if b.String() != "20x20+10+20" {
		t.Errorf("String() = %q", b.String())
	}
}

// TestParams_Validate tests fail-fast validation and default filling
func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"zero value filled", func(p *Params) { *p = Params{} }, false},
		{"scale factor 1", func(p *Params) { p.ScaleFactor = 1 }, true},
		{"scale factor below 1", func(p *Params) { p.ScaleFactor = 0.95 }, true},
		{"negative stride", func(p *Params) { p.WinStride = image.Pt(-8, 8) }, true},
		{"negative padding", func(p *Params) { p.Padding = image.Pt(0, -1) }, true},
		{"negative group threshold", func(p *Params) { p.GroupThreshold = -1 }, true},
		{"negative max levels", func(p *Params) { p.MaxLevels = -3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("zero value gets defaults", func(t *testing.T) {
		p := Params{}
		if err := p.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		def := DefaultParams()
		if p.ScaleFactor != def.ScaleFactor || p.WinStride != def.WinStride ||
			p.MaxLevels != def.MaxLevels || p.GroupEps != def.GroupEps {
			t.Errorf("expected defaults, got %+v", p)
		}
	})
}

func TestCheckFrame(t *testing.T) {
	if err := CheckFrame(nil); !errors.Is(err, ErrDetect) {
		t.Errorf("nil frame: expected ErrDetect, got %v", err)
	}
	bad := &videoio.Frame{Width: 2, Height: 2, Data: make([]byte, 3)}
	if err := CheckFrame(bad); !errors.Is(err, ErrDetect) {
		t.Errorf("short data: expected ErrDetect, got %v", err)
	}
	good := &videoio.Frame{Width: 2, Height: 2, Data: make([]byte, 12)}
	if err := CheckFrame(good); err != nil {
		t.Errorf("valid frame: unexpected error %v", err)
	}
}

func TestGrayscale(t *testing.T) {
	frame := &videoio.Frame{
		Width:  4,
		Height: 1,
		Data: []byte{
			255, 255, 255,
			255, 0, 0,
			0, 255, 0,
			0, 0, 255,
		},
	}
	gray := Grayscale(frame)
	want := []uint8{255, 76, 150, 29}
	for x, w := range want {
		if got := gray.GrayAt(x, 0).Y; got != w {
			t.Errorf("pixel %d: got %d, want %d", x, got, w)
		}
	}
}
