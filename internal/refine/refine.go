// Package refine sub-classifies generic cabinet/shelf detections into
// concrete storage furniture subtypes.
//
// The detector's vocabulary collapses all storage furniture into one coarse
// class; recommendations need the finer distinction. Refinement attaches a
// subtype and its own confidence to each candidate, one-to-one with the
// input. It never drops or merges candidates; whether a refined item
// survives is decided downstream by the hotspot resolver's threshold policy.
//
// Scoring is a deterministic shape/context heuristic over the candidate box:
// aspect ratio, size relative to the image, and vertical position. The
// weights and subtype profiles are tuned empirically and exposed as
// parameters; only determinism and one-to-one output are contractual.
package refine

import (
	"math"

	"github.com/roomlens/roomlens-go/internal/detector"
	"github.com/roomlens/roomlens-go/internal/geometry"
)

// Subtype is one of the closed set of storage furniture subtypes.
type Subtype int

const (
	SubtypeBookshelf Subtype = iota
	SubtypeTVStand
	SubtypeStorageCabinet
	SubtypeDrawerChest
	SubtypeDisplayCabinet
	SubtypeShoeCabinet
)

var subtypeCodes = [...]string{
	SubtypeBookshelf:      "BOOKSHELF",
	SubtypeTVStand:        "TV_STAND",
	SubtypeStorageCabinet: "STORAGE_CABINET",
	SubtypeDrawerChest:    "DRAWER_CHEST",
	SubtypeDisplayCabinet: "DISPLAY_CABINET",
	SubtypeShoeCabinet:    "SHOE_CABINET",
}

var subtypeKoreanLabels = [...]string{
	SubtypeBookshelf:      "책장",
	SubtypeTVStand:        "거실장",
	SubtypeStorageCabinet: "수납장",
	SubtypeDrawerChest:    "서랍장",
	SubtypeDisplayCabinet: "장식장",
	SubtypeShoeCabinet:    "신발장",
}

// Code returns the subtype's catalog code.
func (s Subtype) Code() string {
	if s < 0 || int(s) >= len(subtypeCodes) {
		return "UNKNOWN"
	}
	return subtypeCodes[s]
}

// KoreanLabel returns the subtype's display label.
func (s Subtype) KoreanLabel() string {
	if s < 0 || int(s) >= len(subtypeKoreanLabels) {
		return ""
	}
	return subtypeKoreanLabels[s]
}

// Refined is a detection with its storage subtype attached. Confidence is
// the refinement heuristic's own score in [0,1]; it is not on the same scale
// as the raw detection score.
type Refined struct {
	Detection  detector.Detection
	Subtype    Subtype
	KoLabel    string
	Confidence float64
}

// Weights balances the three heuristic features. Zero-value weights are
// replaced by DefaultWeights.
type Weights struct {
	Aspect   float64
	Size     float64
	Position float64
}

// DefaultWeights is the empirically tuned balance: aspect ratio is the
// strongest subtype signal, vertical position the weakest.
var DefaultWeights = Weights{
	Aspect:   0.5,
	Size:     0.3,
	Position: 0.2,
}

func (w Weights) total() float64 { return w.Aspect + w.Size + w.Position }

// profile is the ideal feature vector of one subtype, with per-feature
// tolerances controlling how quickly a mismatch decays the score.
type profile struct {
	subtype Subtype

	aspect    float64 // ideal width/height
	aspectTol float64

	relHeight    float64 // ideal box height as a fraction of image height
	relHeightTol float64

	posY    float64 // ideal vertical center as a fraction of image height
	posYTol float64
}

// Profiles for the storage sub-taxonomy. Bookshelves read as tall and
// narrow, TV stands as wide and low near the floor, shoe cabinets as short
// and close to the bottom edge. Order matters only for tie-breaking: earlier
// wins on an exact score tie, keeping output deterministic.
var profiles = []profile{
	{SubtypeBookshelf, 0.60, 0.50, 0.55, 0.35, 0.45, 0.40},
	{SubtypeTVStand, 2.80, 1.40, 0.20, 0.20, 0.70, 0.30},
	{SubtypeStorageCabinet, 1.10, 0.70, 0.35, 0.30, 0.55, 0.45},
	{SubtypeDrawerChest, 1.30, 0.70, 0.25, 0.20, 0.65, 0.35},
	{SubtypeDisplayCabinet, 0.80, 0.50, 0.45, 0.30, 0.45, 0.40},
	{SubtypeShoeCabinet, 1.60, 0.90, 0.15, 0.15, 0.82, 0.25},
}

// Engine scores refinement candidates against the subtype profiles.
type Engine struct {
	weights Weights
}

// New builds an Engine with the given weights, falling back to
// DefaultWeights when none are set.
func New(weights Weights) *Engine {
	if weights.total() <= 0 {
		weights = DefaultWeights
	}
	return &Engine{weights: weights}
}

// Refine attaches a subtype and confidence to every candidate. Output is
// one-to-one and index-aligned with the input, and deterministic for a given
// input box set and image size.
func (e *Engine) Refine(candidates []detector.Detection, imageSize geometry.Size) []Refined {
	refined := make([]Refined, 0, len(candidates))
	for _, c := range candidates {
		subtype, confidence := e.classify(c.Box, imageSize)
		refined = append(refined, Refined{
			Detection:  c,
			Subtype:    subtype,
			KoLabel:    subtype.KoreanLabel(),
			Confidence: confidence,
		})
	}
	return refined
}

func (e *Engine) classify(box geometry.ImageRect, imageSize geometry.Size) (Subtype, float64) {
	if box.W <= 0 || box.H <= 0 || !imageSize.IsValid() {
		return SubtypeStorageCabinet, 0
	}

	aspect := box.W / box.H
	relHeight := box.H / imageSize.Height
	posY := (box.Y + box.H/2) / imageSize.Height

	best := profiles[0]
	bestScore := -1.0
	for _, p := range profiles {
		score := e.weights.Aspect*closeness(aspect, p.aspect, p.aspectTol) +
			e.weights.Size*closeness(relHeight, p.relHeight, p.relHeightTol) +
			e.weights.Position*closeness(posY, p.posY, p.posYTol)
		if score > bestScore {
			best = p
			bestScore = score
		}
	}

	confidence := bestScore / e.weights.total()
	return best.subtype, clamp01(confidence)
}

// closeness maps the distance between a feature value and its ideal onto
// [0,1], reaching zero at the tolerance bound.
func closeness(value, ideal, tolerance float64) float64 {
	if tolerance <= 0 {
		if value == ideal {
			return 1
		}
		return 0
	}
	d := math.Abs(value-ideal) / tolerance
	if d >= 1 {
		return 0
	}
	return 1 - d
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
