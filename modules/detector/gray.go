package detector

import (
	"image"

	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

// Fixed-point BT.601 luma weights (scaled by 1<<14), as used by OpenCV's
// RGB→GRAY conversion.
const (
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
	lumaShift = 14
	lumaRound = 1 << (lumaShift - 1)
)

// Grayscale converts a packed RGB frame to an 8-bit luma image.
// The frame must already be validated.
func Grayscale(frame *videoio.Frame) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, frame.Width, frame.Height))
	stride := frame.Stride()

	for y := 0; y < frame.Height; y++ {
		row := frame.Data[y*stride : (y+1)*stride]
		out := gray.Pix[y*gray.Stride : y*gray.Stride+frame.Width]
		for x := range out {
			r := uint32(row[x*3+0])
			g := uint32(row[x*3+1])
			b := uint32(row[x*3+2])
			out[x] = uint8((r*lumaR + g*lumaG + b*lumaB + lumaRound) >> lumaShift)
		}
	}

	return gray
}
