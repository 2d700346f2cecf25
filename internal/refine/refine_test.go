package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomlens/roomlens-go/internal/detector"
	"github.com/roomlens/roomlens-go/internal/geometry"
	"github.com/roomlens/roomlens-go/internal/taxonomy"
)

var livingRoom = geometry.Size{Width: 1920, Height: 1080}

func candidate(box geometry.ImageRect, score float64) detector.Detection {
	return detector.Detection{
		Box:   box,
		Score: score,
		Class: taxonomy.ClassCabinetShelf,
	}
}

func TestRefineOneToOne(t *testing.T) {
	t.Parallel()

	candidates := []detector.Detection{
		candidate(geometry.ImageRect{X: 100, Y: 200, W: 300, H: 600}, 0.8),
		candidate(geometry.ImageRect{X: 600, Y: 700, W: 900, H: 250}, 0.6),
		candidate(geometry.ImageRect{X: 0, Y: 0, W: 50, H: 50}, 0.51),
	}

	refined := New(DefaultWeights).Refine(candidates, livingRoom)
	require.Len(t, refined, len(candidates))
	for i := range refined {
		// Index-aligned with input, original detection untouched.
		assert.Equal(t, candidates[i], refined[i].Detection)
		assert.Equal(t, refined[i].Subtype.KoreanLabel(), refined[i].KoLabel)
		assert.GreaterOrEqual(t, refined[i].Confidence, 0.0)
		assert.LessOrEqual(t, refined[i].Confidence, 1.0)
	}
}

func TestRefineDeterministic(t *testing.T) {
	t.Parallel()

	candidates := []detector.Detection{
		candidate(geometry.ImageRect{X: 120, Y: 180, W: 420, H: 640}, 0.77),
		candidate(geometry.ImageRect{X: 900, Y: 650, W: 700, H: 280}, 0.62),
	}

	engine := New(DefaultWeights)
	first := engine.Refine(candidates, livingRoom)
	for i := 0; i < 10; i++ {
		again := engine.Refine(candidates, livingRoom)
		assert.Equal(t, first, again)
	}
}

func TestRefineShapeHeuristics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		box  geometry.ImageRect
		want Subtype
	}{
		{
			// Tall and narrow, spanning half the image height.
			name: "bookshelf",
			box:  geometry.ImageRect{X: 200, Y: 250, W: 350, H: 600},
			want: SubtypeBookshelf,
		},
		{
			// Wide and low, sitting in the lower part of the room.
			name: "tv stand",
			box:  geometry.ImageRect{X: 500, Y: 650, W: 850, H: 220},
			want: SubtypeTVStand,
		},
		{
			// Short and shallow, hugging the bottom edge.
			name: "shoe cabinet",
			box:  geometry.ImageRect{X: 100, Y: 820, W: 260, H: 160},
			want: SubtypeShoeCabinet,
		},
	}

	engine := New(DefaultWeights)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			refined := engine.Refine([]detector.Detection{candidate(tt.box, 0.8)}, livingRoom)
			require.Len(t, refined, 1)
			assert.Equal(t, tt.want, refined[0].Subtype)
			assert.Positive(t, refined[0].Confidence)
		})
	}
}

func TestRefineDegenerateBox(t *testing.T) {
	t.Parallel()

	refined := New(DefaultWeights).Refine(
		[]detector.Detection{candidate(geometry.ImageRect{X: 10, Y: 10, W: 0, H: 0}, 0.9)},
		livingRoom)
	require.Len(t, refined, 1)
	assert.Zero(t, refined[0].Confidence)
}

func TestRefineEmptyInput(t *testing.T) {
	t.Parallel()

	refined := New(DefaultWeights).Refine(nil, livingRoom)
	assert.Empty(t, refined)
}

func TestNewFallsBackToDefaultWeights(t *testing.T) {
	t.Parallel()

	engine := New(Weights{})
	assert.Equal(t, DefaultWeights, engine.weights)
}

func TestSubtypeLabels(t *testing.T) {
	t.Parallel()

	for s := SubtypeBookshelf; s <= SubtypeShoeCabinet; s++ {
		assert.NotEmpty(t, s.Code())
		assert.NotEmpty(t, s.KoreanLabel())
	}
	assert.Equal(t, "UNKNOWN", Subtype(99).Code())
}
