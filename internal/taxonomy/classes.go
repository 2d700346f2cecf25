// Package taxonomy maps raw detector output onto the furniture vocabulary
// used by the rest of the pipeline, and resolves detected classes against the
// commerce category catalog served by the backend.
//
// Two taxonomies live here. The class vocabulary is fixed at build time and
// mirrors the detection model: raw model labels are 1-based with index 0
// reserved for background, and are converted exactly once, at the inference
// decode boundary, into the 0-based internal indices below. The category
// catalog is dynamic, fetched per session from the recommendation backend,
// and matched by canonical key.
package taxonomy

// Class is an internal, 0-based index into the detector vocabulary.
type Class int

// Detector vocabulary, internal 0-based indices. Order is fixed by the
// trained model and must not be rearranged.
const (
	ClassPerson Class = iota
	ClassSofa
	ClassArmchair
	ClassChair
	ClassStool
	ClassBench
	ClassBed
	ClassDiningTable
	ClassCoffeeTable
	ClassSideTable
	ClassDesk
	ClassCabinetShelf
	ClassWardrobe
	ClassFloorLamp
	ClassTableLamp
	ClassCeilingLight
	ClassMirror
	ClassRug
	ClassCurtain
	ClassPictureFrame
	ClassPlantPot
	ClassCushion
	ClassTV
	ClassWindow
	ClassDoor
)

var classNames = []string{
	"person",
	"sofa",
	"armchair",
	"chair",
	"stool",
	"bench",
	"bed",
	"dining table",
	"coffee table",
	"side table",
	"desk",
	"cabinet/shelf",
	"wardrobe",
	"floor lamp",
	"table lamp",
	"ceiling light",
	"mirror",
	"rug",
	"curtain",
	"picture frame",
	"plant pot",
	"cushion",
	"tv",
	"window",
	"door",
}

// furnitureClasses is the curated allowlist of classes the product surfaces
// as hotspots: seating, tables, storage, lighting and decor. Structural
// classes (person, window, door) and electronics stay out.
var furnitureClasses = map[Class]struct{}{
	ClassSofa:         {},
	ClassArmchair:     {},
	ClassChair:        {},
	ClassStool:        {},
	ClassBench:        {},
	ClassBed:          {},
	ClassDiningTable:  {},
	ClassCoffeeTable:  {},
	ClassSideTable:    {},
	ClassDesk:         {},
	ClassCabinetShelf: {},
	ClassWardrobe:     {},
	ClassFloorLamp:    {},
	ClassTableLamp:    {},
	ClassCeilingLight: {},
	ClassMirror:       {},
	ClassRug:          {},
	ClassCurtain:      {},
	ClassPictureFrame: {},
	ClassPlantPot:     {},
	ClassCushion:      {},
}

// NumClasses returns the size of the detector vocabulary.
func NumClasses() int {
	return len(classNames)
}

// NormalizeLabel converts a raw model label to the internal 0-based Class.
// The model family emits 1-based labels with 0 reserved for background, so
// the conversion is a single subtraction. It returns false for background
// and for labels outside the vocabulary.
func NormalizeLabel(raw int) (Class, bool) {
	idx := raw - 1
	if idx < 0 || idx >= len(classNames) {
		return 0, false
	}
	return Class(idx), true
}

// Name returns the display name of a class, or empty for an out-of-range
// index.
func (c Class) Name() string {
	if c < 0 || int(c) >= len(classNames) {
		return ""
	}
	return classNames[c]
}

// IsFurniture reports whether the class is in the furniture allowlist.
func IsFurniture(c Class) bool {
	_, ok := furnitureClasses[c]
	return ok
}

// IsRefinementCandidate reports whether the class is too coarse for direct
// category resolution and must go through the refinement pass. Candidates
// are always furniture, never the reverse.
func IsRefinementCandidate(c Class) bool {
	return c == ClassCabinetShelf
}
