package detector

import (
	"github.com/roomlens/roomlens-go/internal/geometry"
	"github.com/roomlens/roomlens-go/internal/taxonomy"
)

// decodeRawOutput turns flat model arrays into normalized furniture
// detections in image pixel space.
//
// Per detection: the score must exceed the cutoff strictly, the raw 1-based
// label is normalized to an internal class exactly once, non-furniture
// classes are dropped, and the corner box is inverted through the letterbox
// into original image coordinates.
func decodeRawOutput(raw RawOutput, lb geometry.Letterbox, imageSize geometry.Size, cutoff float64) []Detection {
	n := raw.NumDetections()
	detections := make([]Detection, 0, n)

	for i := 0; i < n; i++ {
		score := float64(raw.Scores[i])
		if score <= cutoff {
			continue
		}

		class, ok := taxonomy.NormalizeLabel(int(raw.Labels[i]))
		if !ok || !taxonomy.IsFurniture(class) {
			continue
		}

		x1 := float64(raw.Boxes[i*4])
		y1 := float64(raw.Boxes[i*4+1])
		x2 := float64(raw.Boxes[i*4+2])
		y2 := float64(raw.Boxes[i*4+3])

		modelBox := geometry.ModelRect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
		detections = append(detections, Detection{
			Box:   geometry.ModelToImage(modelBox, lb, imageSize),
			Score: score,
			Class: class,
		})
	}
	return detections
}
