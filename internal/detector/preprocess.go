package detector

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/roomlens/roomlens-go/internal/geometry"
)

// buildFeeds letterboxes the image onto a black square canvas of the model
// input size and converts it to a CHW float32 tensor in [0,1]. The returned
// letterbox parameters invert the transform for decoded boxes.
func buildFeeds(img image.Image, inputSize int) (Feeds, geometry.Letterbox) {
	bounds := img.Bounds()
	imageSize := geometry.Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}
	lb := geometry.ComputeLetterbox(imageSize, float64(inputSize))

	// Scale and placement come from the same Letterbox that inverts decoded
	// boxes. imaging.Fit is not usable here: it never upscales, so a small
	// image would land on the canvas at a different scale than the one the
	// inversion assumes.
	scaledW := int(math.Round(imageSize.Width * lb.Scale))
	scaledH := int(math.Round(imageSize.Height * lb.Scale))
	scaled := imaging.Resize(img, scaledW, scaledH, imaging.Lanczos)
	canvas := imaging.New(inputSize, inputSize, color.NRGBA{0, 0, 0, 255})
	canvas = imaging.Paste(canvas, scaled, image.Pt(int(math.Round(lb.PadX)), int(math.Round(lb.PadY))))

	n := inputSize * inputSize
	pixels := make([]float32, 3*n)
	for y := 0; y < inputSize; y++ {
		row := y * canvas.Stride
		for x := 0; x < inputSize; x++ {
			off := row + x*4
			idx := y*inputSize + x
			pixels[idx] = float32(canvas.Pix[off]) / 255.0
			pixels[n+idx] = float32(canvas.Pix[off+1]) / 255.0
			pixels[2*n+idx] = float32(canvas.Pix[off+2]) / 255.0
		}
	}

	size := int64(inputSize)
	return Feeds{
		Images:           pixels,
		ImagesShape:      []int64{1, 3, size, size},
		TargetSizes:      []int64{size, size},
		TargetSizesShape: []int64{1, 2},
	}, lb
}
