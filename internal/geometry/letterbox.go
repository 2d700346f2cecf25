package geometry

// Letterbox describes the aspect-preserving fit of an image into a fixed
// square model input: the image is scaled by Scale and centered with PadX and
// PadY of background padding. The same parameters are used to build the model
// input and to invert model-space boxes back to image pixel space; using
// different formulas on both sides makes box positions drift.
type Letterbox struct {
	Scale float64
	PadX  float64
	PadY  float64
}

// ComputeLetterbox returns the letterbox fit of imageSize into a targetSize
// square. Scale is min(target/imgW, target/imgH) so the scaled image fits
// entirely within [0, targetSize] on both axes; padding centers it.
func ComputeLetterbox(imageSize Size, targetSize float64) Letterbox {
	scale := min(targetSize/imageSize.Width, targetSize/imageSize.Height)
	return Letterbox{
		Scale: scale,
		PadX:  (targetSize - imageSize.Width*scale) / 2,
		PadY:  (targetSize - imageSize.Height*scale) / 2,
	}
}

// ImageToModel maps an image-space box into model input space. This is the
// forward transform implicit in preprocessing.
func ImageToModel(box ImageRect, lb Letterbox) ModelRect {
	return ModelRect{
		X: box.X*lb.Scale + lb.PadX,
		Y: box.Y*lb.Scale + lb.PadY,
		W: box.W * lb.Scale,
		H: box.H * lb.Scale,
	}
}

// ModelToImage maps a model-space box back to image pixel space.
//
// Boxes that straddle the letterbox padding edge are kept, not discarded:
// a negative origin is clamped to zero with the width/height reduced by the
// clamped amount, then the box is clamped so it never exceeds the image
// bounds, with a floor of one pixel per dimension.
func ModelToImage(box ModelRect, lb Letterbox, imageSize Size) ImageRect {
	x := (box.X - lb.PadX) / lb.Scale
	y := (box.Y - lb.PadY) / lb.Scale
	w := box.W / lb.Scale
	h := box.H / lb.Scale

	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	x = clamp(x, 0, imageSize.Width)
	y = clamp(y, 0, imageSize.Height)
	w = clamp(w, 1, imageSize.Width-x)
	h = clamp(h, 1, imageSize.Height-y)

	return ImageRect{X: x, Y: y, W: w, H: h}
}
