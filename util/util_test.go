package util

// Copyright (c) 2025 Colin McRae

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplyFloatFloat(t *testing.T) {
	x := []float64{1, 2, 0, 1}
	y := []float64{3, 4, 5, 6}

	xy, err := MultiplyFloatFloat(x, y, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{13, 16, 5, 6}, xy)
}

func TestMultiplyFloatFloatRectangular(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6} // 2x3
	y := []float64{1, 0, 0, 1, 1, 1} // 3x2

	xy, err := MultiplyFloatFloat(x, y, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 10, 11}, xy)
}

func TestMultiplyFloatFloatBadDimensions(t *testing.T) {
	_, err := MultiplyFloatFloat([]float64{1, 2, 3}, []float64{1, 2}, 2)
	assert.Error(t, err)
}

func TestMultiplyFloatVec(t *testing.T) {
	x := []float64{2, 0, 1, 3}
	v := []float64{1, 2}

	xv, err := MultiplyFloatVec(x, v, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 7}, xv)
}

func TestMultiplyFloatVecBadLength(t *testing.T) {
	_, err := MultiplyFloatVec([]float64{2, 0, 1, 3}, []float64{1}, 2)
	assert.Error(t, err)
}

func TestMaxAbsDiff(t *testing.T) {
	diff, err := MaxAbsDiff([]float64{1, 2, 3}, []float64{1, 2.5, 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, diff)

	_, err = MaxAbsDiff([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestTranspose(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6} // 2x3

	xt, err := Transpose(x, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, xt)
}
