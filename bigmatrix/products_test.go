package bigmatrix

// Copyright (c) 2025 Colin McRae

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predrag3141/RUGMAT/util"
)

func TestMulKnownAnswer(t *testing.T) {
	a, err := NewFromFloat64Array([]float64{1, 2, 0, 1}, 2, 2, testPrecision)
	require.NoError(t, err)
	b, err := NewFromFloat64Array([]float64{3, 4, 5, 6}, 2, 2, testPrecision)
	require.NoError(t, err)

	ab, err := a.Mul(b)
	require.NoError(t, err)
	assertEntry(t, ab, 0, 0, 13)
	assertEntry(t, ab, 0, 1, 16)
	assertEntry(t, ab, 1, 0, 5)
	assertEntry(t, ab, 1, 1, 6)
}

func TestMulRectangular(t *testing.T) {
	a, err := NewFromFloat64Array([]float64{1, 2, 3, 4, 5, 6}, 2, 3, testPrecision)
	require.NoError(t, err)
	b, err := NewFromFloat64Array([]float64{1, 0, 0, 1, 1, 1}, 3, 2, testPrecision)
	require.NoError(t, err)

	ab, err := a.Mul(b)
	require.NoError(t, err)
	require.Equal(t, 2, ab.NumRows())
	require.Equal(t, 2, ab.NumCols())
	assertEntry(t, ab, 0, 0, 4)
	assertEntry(t, ab, 0, 1, 5)
	assertEntry(t, ab, 1, 0, 10)
	assertEntry(t, ab, 1, 1, 11)
}

func TestMulIdentity(t *testing.T) {
	a, err := NewFromFloat64Array([]float64{1, 2, 3, 4}, 2, 2, testPrecision)
	require.NoError(t, err)
	identity, err := Identity(2, testPrecision)
	require.NoError(t, err)

	product, err := a.Mul(identity)
	require.NoError(t, err)
	assert.True(t, a.Equals(product, newFloat(0)))

	v := []*big.Float{newFloat(-1.5), newFloat(0.25)}
	iv, err := identity.MulVec(v)
	require.NoError(t, err)
	for i := range v {
		assert.Zero(t, iv[i].Cmp(v[i]))
	}
}

func TestMulErrors(t *testing.T) {
	a, err := New(2, 3, testPrecision)
	require.NoError(t, err)
	b, err := New(2, 3, testPrecision)
	require.NoError(t, err)
	_, err = a.Mul(b)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	c, err := New(3, 2, 64)
	require.NoError(t, err)
	_, err = a.Mul(c)
	assert.ErrorIs(t, err, ErrPrecisionMismatch)

	_, err = a.Mul(nil)
	assert.ErrorIs(t, err, ErrNilMatrix)
}

// TestMulAgainstFloat64Reference exercises the blocked parallel kernel on
// shapes around the block size and compares against plain float64 arithmetic.
// Entries are small integers so both sides are exact.
func TestMulAgainstFloat64Reference(t *testing.T) {
	rng := rand.New(rand.NewSource(377))
	shapes := []struct{ m, k, n int }{
		{1, 1, 1},
		{3, 5, 2},
		{7, 32, 4},
		{5, 33, 6},
		{10, 64, 3},
		{4, 100, 4},
	}
	for _, shape := range shapes {
		x := make([]float64, shape.m*shape.k)
		y := make([]float64, shape.k*shape.n)
		for i := range x {
			x[i] = float64(rng.Intn(21) - 10)
		}
		for i := range y {
			y[i] = float64(rng.Intn(21) - 10)
		}

		a, err := NewFromFloat64Array(x, shape.m, shape.k, testPrecision)
		require.NoError(t, err)
		b, err := NewFromFloat64Array(y, shape.k, shape.n, testPrecision)
		require.NoError(t, err)
		ab, err := a.Mul(b)
		require.NoError(t, err)

		want, err := util.MultiplyFloatFloat(x, y, shape.k)
		require.NoError(t, err)
		for i := 0; i < shape.m; i++ {
			for j := 0; j < shape.n; j++ {
				assertEntry(t, ab, i, j, want[i*shape.n+j])
			}
		}
	}
}

func TestMulVecKnownAnswer(t *testing.T) {
	a, err := NewFromFloat64Array([]float64{2, 0, 1, 3}, 2, 2, testPrecision)
	require.NoError(t, err)
	v := []*big.Float{newFloat(1), newFloat(2)}

	av, err := a.MulVec(v)
	require.NoError(t, err)
	require.Len(t, av, 2)
	assert.Zero(t, av[0].Cmp(newFloat(2)))
	assert.Zero(t, av[1].Cmp(newFloat(7)))

	_, err = a.MulVec(v[:1])
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMulVecAgainstFloat64Reference(t *testing.T) {
	rng := rand.New(rand.NewSource(653))
	const rows, cols = 17, 9

	x := make([]float64, rows*cols)
	for i := range x {
		x[i] = float64(rng.Intn(21) - 10)
	}
	vf := make([]float64, cols)
	v := make([]*big.Float, cols)
	for i := range vf {
		vf[i] = float64(rng.Intn(21) - 10)
		v[i] = newFloat(vf[i])
	}

	a, err := NewFromFloat64Array(x, rows, cols, testPrecision)
	require.NoError(t, err)
	av, err := a.MulVec(v)
	require.NoError(t, err)

	want, err := util.MultiplyFloatVec(x, vf, cols)
	require.NoError(t, err)
	for i := range want {
		assert.Zero(t, av[i].Cmp(newFloat(want[i])), "row %d", i)
	}
}

func TestMulTransposeVec(t *testing.T) {
	a, err := NewFromFloat64Array([]float64{1, 2, 3, 4, 5, 6}, 3, 2, testPrecision)
	require.NoError(t, err)
	v := []*big.Float{newFloat(1), newFloat(1), newFloat(1)}

	atv, err := a.MulTransposeVec(v)
	require.NoError(t, err)
	require.Len(t, atv, 2)
	assert.Zero(t, atv[0].Cmp(newFloat(9)))  // 1+3+5
	assert.Zero(t, atv[1].Cmp(newFloat(12))) // 2+4+6

	_, err = a.MulTransposeVec(atv)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
