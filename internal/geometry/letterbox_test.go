package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLetterbox(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		imageSize Size
		target    float64
		wantScale float64
		wantPadX  float64
		wantPadY  float64
	}{
		{
			name:      "landscape_pads_vertically",
			imageSize: Size{Width: 1280, Height: 720},
			target:    640,
			wantScale: 0.5,
			wantPadX:  0,
			wantPadY:  140,
		},
		{
			name:      "portrait_pads_horizontally",
			imageSize: Size{Width: 720, Height: 1280},
			target:    640,
			wantScale: 0.5,
			wantPadX:  140,
			wantPadY:  0,
		},
		{
			name:      "square_no_padding",
			imageSize: Size{Width: 320, Height: 320},
			target:    640,
			wantScale: 2,
			wantPadX:  0,
			wantPadY:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lb := ComputeLetterbox(tt.imageSize, tt.target)
			assert.InDelta(t, tt.wantScale, lb.Scale, 1e-9)
			assert.InDelta(t, tt.wantPadX, lb.PadX, 1e-9)
			assert.InDelta(t, tt.wantPadY, lb.PadY, 1e-9)
		})
	}
}

func TestLetterboxScalePositive(t *testing.T) {
	t.Parallel()

	for _, size := range []Size{
		{Width: 1, Height: 1},
		{Width: 10000, Height: 1},
		{Width: 33, Height: 77},
	} {
		lb := ComputeLetterbox(size, 640)
		require.Positive(t, lb.Scale)
		// Scaled image fits entirely within the target square on both axes.
		assert.LessOrEqual(t, size.Width*lb.Scale, 640.0+1e-9)
		assert.LessOrEqual(t, size.Height*lb.Scale, 640.0+1e-9)
	}
}

func TestLetterboxRoundTrip(t *testing.T) {
	t.Parallel()

	imageSize := Size{Width: 1920, Height: 1080}
	lb := ComputeLetterbox(imageSize, 640)

	boxes := []ImageRect{
		{X: 100, Y: 100, W: 50, H: 50},
		{X: 0, Y: 0, W: 10, H: 10},
		{X: 1800, Y: 900, W: 100, H: 150},
		{X: 960, Y: 540, W: 1, H: 1},
	}

	for _, box := range boxes {
		got := ModelToImage(ImageToModel(box, lb), lb, imageSize)
		assert.InDelta(t, box.X, got.X, 1e-6)
		assert.InDelta(t, box.Y, got.Y, 1e-6)
		assert.InDelta(t, box.W, got.W, 1e-6)
		assert.InDelta(t, box.H, got.H, 1e-6)
	}
}

func TestModelToImageEdgePolicy(t *testing.T) {
	t.Parallel()

	imageSize := Size{Width: 1280, Height: 720}
	lb := ComputeLetterbox(imageSize, 640) // scale 0.5, padY 140

	t.Run("box_straddling_top_padding_is_clamped_not_dropped", func(t *testing.T) {
		t.Parallel()
		// Starts 20 model px inside the top padding band.
		box := ModelRect{X: 100, Y: 120, W: 60, H: 60}
		got := ModelToImage(box, lb, imageSize)
		assert.InDelta(t, 0.0, got.Y, 1e-9)
		// 20 px of the 60 px height fell in the padding: 40 model px left, /0.5 = 80.
		assert.InDelta(t, 80.0, got.H, 1e-9)
		assert.InDelta(t, 200.0, got.X, 1e-9)
	})

	t.Run("box_never_exceeds_image_bounds", func(t *testing.T) {
		t.Parallel()
		box := ModelRect{X: 600, Y: 400, W: 100, H: 200}
		got := ModelToImage(box, lb, imageSize)
		assert.LessOrEqual(t, got.X+got.W, imageSize.Width+1e-9)
		assert.LessOrEqual(t, got.Y+got.H, imageSize.Height+1e-9)
	})

	t.Run("degenerate_box_keeps_one_pixel_floor", func(t *testing.T) {
		t.Parallel()
		box := ModelRect{X: 10, Y: 141, W: 0.1, H: 0.1}
		got := ModelToImage(box, lb, imageSize)
		assert.GreaterOrEqual(t, got.W, 1.0)
		assert.GreaterOrEqual(t, got.H, 1.0)
	})
}
