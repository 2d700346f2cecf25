package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    int
		want   Class
		wantOK bool
	}{
		{name: "background_rejected", raw: 0, wantOK: false},
		{name: "first_class", raw: 1, want: ClassPerson, wantOK: true},
		{name: "raw_three_is_armchair", raw: 3, want: ClassArmchair, wantOK: true},
		{name: "last_class", raw: NumClasses(), want: ClassDoor, wantOK: true},
		{name: "out_of_vocabulary", raw: NumClasses() + 1, wantOK: false},
		{name: "negative", raw: -4, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeLabel(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFurnitureFilter(t *testing.T) {
	t.Parallel()

	assert.True(t, IsFurniture(ClassSofa))
	assert.True(t, IsFurniture(ClassCabinetShelf))
	assert.True(t, IsFurniture(ClassPlantPot))
	assert.False(t, IsFurniture(ClassPerson))
	assert.False(t, IsFurniture(ClassWindow))
	assert.False(t, IsFurniture(ClassDoor))
	assert.False(t, IsFurniture(ClassTV))
}

func TestRefinementCandidatesAreFurniture(t *testing.T) {
	t.Parallel()

	for i := range NumClasses() {
		c := Class(i)
		if IsRefinementCandidate(c) {
			assert.True(t, IsFurniture(c), "refinement candidate %q must be furniture", c.Name())
		}
	}
	assert.True(t, IsRefinementCandidate(ClassCabinetShelf))
	assert.False(t, IsRefinementCandidate(ClassSofa))
}

func TestFilterPurity(t *testing.T) {
	t.Parallel()

	// Pure functions of the normalized index: repeated calls agree.
	for i := range NumClasses() {
		c := Class(i)
		assert.Equal(t, IsFurniture(c), IsFurniture(c))
		assert.Equal(t, IsRefinementCandidate(c), IsRefinementCandidate(c))
	}
}

func TestClassName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cabinet/shelf", ClassCabinetShelf.Name())
	assert.Equal(t, "sofa", ClassSofa.Name())
	assert.Empty(t, Class(-1).Name())
	assert.Empty(t, Class(NumClasses()).Name())
}
