package detector

import (
	"image"
	"math"
)

// Level is one step of the scale pyramid.
type Level struct {
	// Index is 0 for the native resolution
	Index int
	// Scale maps level coordinates back to the native frame (native = level * Scale)
	Scale float64
	// Size is the level image size
	Size image.Point
}

// Pyramid returns the scale levels for an image of the given size.
//
// Level 0 is the native resolution; each next level shrinks by
// p.ScaleFactor. Generation stops before the scaled image becomes smaller
// than the window, or after p.MaxLevels levels. An image smaller than the
// window yields no levels.
func Pyramid(size, window image.Point, p Params) []Level {
	var levels []Level
	scale := 1.0

	for i := 0; i < p.MaxLevels; i++ {
		sz := image.Pt(roundInt(float64(size.X)/scale), roundInt(float64(size.Y)/scale))
		if sz.X < window.X || sz.Y < window.Y {
			break
		}
		levels = append(levels, Level{Index: i, Scale: scale, Size: sz})
		scale *= p.ScaleFactor
	}

	return levels
}

// Windows returns the top-left corners of every window position on a level,
// row by row, stepping by p.WinStride and extending p.Padding beyond the
// borders.
func Windows(level Level, window image.Point, p Params) []image.Point {
	minX, minY := -p.Padding.X, -p.Padding.Y
	maxX := level.Size.X + p.Padding.X - window.X
	maxY := level.Size.Y + p.Padding.Y - window.Y
	if maxX < minX || maxY < minY {
		return nil
	}

	nx := (maxX-minX)/p.WinStride.X + 1
	ny := (maxY-minY)/p.WinStride.Y + 1
	points := make([]image.Point, 0, nx*ny)

	for y := minY; y <= maxY; y += p.WinStride.Y {
		for x := minX; x <= maxX; x += p.WinStride.X {
			points = append(points, image.Pt(x, y))
		}
	}
	return points
}

// ToNative maps a window at pt on level back to native frame coordinates.
func ToNative(level Level, pt, window image.Point) BoundingBox {
	return BoundingBox{
		X:      roundInt(float64(pt.X) * level.Scale),
		Y:      roundInt(float64(pt.Y) * level.Scale),
		Width:  roundInt(float64(window.X) * level.Scale),
		Height: roundInt(float64(window.Y) * level.Scale),
	}
}

func roundInt(v float64) int {
	return int(math.RoundToEven(v))
}
