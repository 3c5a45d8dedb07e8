package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewColorScale_Validation(t *testing.T) {
	_, err := NewColorScale([]float64{0}, []string{"#000000"})
	require.ErrorIs(t, err, ErrInvalidScale)

	_, err = NewColorScale([]float64{0, 1}, []string{"#000000"})
	require.ErrorIs(t, err, ErrInvalidScale)

	_, err = NewColorScale([]float64{1, 0}, []string{"#000000", "#ffffff"})
	require.ErrorIs(t, err, ErrInvalidScale)

	_, err = NewColorScale([]float64{0, 1}, []string{"#000000", "not-a-color"})
	require.ErrorIs(t, err, ErrInvalidScale)
}

func TestColorScale_StopsAreExact(t *testing.T) {
	s := Polar()

	assert.Equal(t, "#2c7bb6", s.Hex(-1.5))
	assert.Equal(t, "#ffff8c", s.Hex(-0.125))
	assert.Equal(t, "#d7191c", s.Hex(1.25))
}

func TestColorScale_Clamps(t *testing.T) {
	s := MapLegend()

	assert.Equal(t, "#ffffff", s.Hex(-10))
	assert.Equal(t, "#4682b4", s.Hex(10))
}

func TestColorScale_InterpolatesBetweenStops(t *testing.T) {
	s := MapLegend()

	mid := s.Hex(0)
	assert.NotEqual(t, "#ffffff", mid)
	assert.NotEqual(t, "#4682b4", mid)

	// Lightness decreases monotonically from white to steel blue.
	_, _, l1 := s.At(-2).Hcl()
	_, _, l2 := s.At(0).Hcl()
	_, _, l3 := s.At(2).Hcl()
	assert.Greater(t, l1, l2)
	assert.Greater(t, l2, l3)
}
