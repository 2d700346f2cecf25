package geometry

// Cover describes the aspect-preserving "cover" fit of an image into a
// display container: the image is scaled by Scale to fully fill the
// container and the overflow is cropped symmetrically, CropX and CropY being
// the per-axis crop offsets. Derived solely from (imageSize, containerSize);
// recompute whenever either changes, e.g. on container resize.
type Cover struct {
	Scale float64
	CropX float64
	CropY float64
}

// ComputeCover returns the cover fit of imageSize into containerSize.
// Scale is max(containerW/imgW, containerH/imgH); crop offsets center the
// overflow.
func ComputeCover(imageSize, containerSize Size) Cover {
	scale := max(containerSize.Width/imageSize.Width, containerSize.Height/imageSize.Height)
	return Cover{
		Scale: scale,
		CropX: (imageSize.Width*scale - containerSize.Width) / 2,
		CropY: (imageSize.Height*scale - containerSize.Height) / 2,
	}
}

// ProjectPoint maps an image-space point into display container space using
// the cover fit. When mirrored is set the X axis is reflected, matching a
// horizontally flipped rendering. The result is always clamped into
// [0, containerWidth] x [0, containerHeight].
func ProjectPoint(p ImagePoint, cover Cover, containerSize Size, mirrored bool) DisplayPoint {
	x := p.X*cover.Scale - cover.CropX
	y := p.Y*cover.Scale - cover.CropY
	if mirrored {
		x = containerSize.Width - x
	}
	return DisplayPoint{
		X: clamp(x, 0, containerSize.Width),
		Y: clamp(y, 0, containerSize.Height),
	}
}
