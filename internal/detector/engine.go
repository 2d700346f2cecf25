package detector

import "context"

// Feeds is the model input contract: a CHW float32 image tensor plus the
// original target size pair, both with explicit shapes.
type Feeds struct {
	Images      []float32 // len = 1*3*InputSize*InputSize, values in [0,1]
	ImagesShape []int64   // [1, 3, InputSize, InputSize]

	TargetSizes      []int64 // [InputSize, InputSize]
	TargetSizesShape []int64 // [1, 2]
}

// RawOutput is the model output contract: flat per-detection arrays of equal
// logical length. Labels are raw 1-based model class indices; boxes are
// corner coordinates (x1, y1, x2, y2) in model input space, four values per
// detection.
type RawOutput struct {
	Labels []int64
	Boxes  []float32
	Scores []float32
}

// NumDetections returns the number of complete detections present in the
// output, tolerating ragged arrays from a misbehaving model.
func (r RawOutput) NumDetections() int {
	n := len(r.Scores)
	if len(r.Labels) < n {
		n = len(r.Labels)
	}
	if len(r.Boxes)/4 < n {
		n = len(r.Boxes) / 4
	}
	return n
}

// Engine abstracts the inference runtime. Implementations are treated as a
// black box: feeds in, raw arrays out. The production engine wraps
// onnxruntime; tests substitute a fake.
type Engine interface {
	Run(ctx context.Context, feeds Feeds) (RawOutput, error)
	Close() error
}
