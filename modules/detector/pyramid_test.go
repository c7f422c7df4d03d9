package detector

import (
	"image"
	"testing"
)

func TestPyramid(t *testing.T) {
	window := image.Pt(64, 128)

	t.Run("vga levels", func(t *testing.T) {
		levels := Pyramid(image.Pt(640, 480), window, DefaultParams())
		// 480/1.05^27 ≈ 128.6 is the last level tall enough for the window
		if len(levels) != 28 {
			t.Fatalf("expected 28 levels, got %d", len(levels))
		}
		if levels[0].Scale != 1 || levels[0].Size != image.Pt(640, 480) {
			t.Errorf("level 0 should be native, got %+v", levels[0])
		}
		for i := 1; i < len(levels); i++ {
			if levels[i].Scale <= levels[i-1].Scale {
				t.Fatalf("level %d scale %.4f not increasing", i, levels[i].Scale)
			}
			if levels[i].Size.X > levels[i-1].Size.X || levels[i].Size.Y > levels[i-1].Size.Y {
				t.Fatalf("level %d size %v larger than previous %v", i, levels[i].Size, levels[i-1].Size)
			}
			if levels[i].Size.X < window.X || levels[i].Size.Y < window.Y {
				t.Fatalf("level %d size %v smaller than window", i, levels[i].Size)
			}
		}
	})

	t.Run("smaller than window", func(t *testing.T) {
		if levels := Pyramid(image.Pt(32, 64), window, DefaultParams()); len(levels) != 0 {
			t.Errorf("expected no levels, got %d", len(levels))
		}
	})

	t.Run("exactly window size", func(t *testing.T) {
		levels := Pyramid(window, window, DefaultParams())
		if len(levels) != 1 {
			t.Errorf("expected 1 level, got %d", len(levels))
		}
	})

	t.Run("max levels", func(t *testing.T) {
		p := DefaultParams()
		p.MaxLevels = 3
		if levels := Pyramid(image.Pt(640, 480), window, p); len(levels) != 3 {
			t.Errorf("expected 3 levels, got %d", len(levels))
		}
	})
}

func TestWindows(t *testing.T) {
	window := image.Pt(64, 128)
	level := Level{Scale: 1, Size: image.Pt(80, 144)}

	t.Run("no padding", func(t *testing.T) {
		pts := Windows(level, window, DefaultParams())
		if len(pts) != 9 {
			t.Fatalf("expected 3x3 windows, got %d", len(pts))
		}
		if pts[0] != image.Pt(0, 0) || pts[len(pts)-1] != image.Pt(16, 16) {
			t.Errorf("unexpected corners: first %v last %v", pts[0], pts[len(pts)-1])
		}
		// row-major order
		if pts[1] != image.Pt(8, 0) || pts[3] != image.Pt(0, 8) {
			t.Errorf("expected row-major order, got %v", pts[:4])
		}
	})

	t.Run("padding", func(t *testing.T) {
		p := DefaultParams()
		p.Padding = image.Pt(8, 8)
		pts := Windows(level, window, p)
		if len(pts) != 25 {
			t.Fatalf("expected 5x5 windows, got %d", len(pts))
		}
		if pts[0] != image.Pt(-8, -8) {
			t.Errorf("expected first window at (-8,-8), got %v", pts[0])
		}
	})

	t.Run("level smaller than window", func(t *testing.T) {
		small := Level{Scale: 1, Size: image.Pt(32, 32)}
		if pts := Windows(small, window, DefaultParams()); pts != nil {
			t.Errorf("expected no windows, got %d", len(pts))
		}
	})
}

func TestToNative(t *testing.T) {
	level := Level{Index: 14, Scale: 2, Size: image.Pt(320, 240)}
	got := ToNative(level, image.Pt(8, 16), image.Pt(64, 128))
	want := BoundingBox{X: 16, Y: 32, Width: 128, Height: 256}
	if got != want {
		t.Errorf("ToNative() = %v, want %v", got, want)
	}
}
