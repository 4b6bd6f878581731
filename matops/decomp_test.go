package matops

// Copyright (c) 2025 Colin McRae

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predrag3141/RUGMAT/bigmatrix"
)

func assertEntryNear(t *testing.T, m *bigmatrix.BigMatrix, i, j int, want float64, tol float64) {
	t.Helper()
	entry, err := m.Get(i, j)
	require.NoError(t, err)
	assertNear(t, want, entry, tol)
}

func TestQRDecomposeReproducesInput(t *testing.T) {
	a := newTestMatrix(t, []float64{2, 1, 4, 1, 3, 2, 0, 1, 5}, 3, 3)

	q, r, err := QRDecompose(a)
	require.NoError(t, err)

	product, err := q.Mul(r)
	require.NoError(t, err)
	tolerance := new(big.Float).SetPrec(testPrecision).SetFloat64(1e-30)
	assert.True(t, a.Equals(product, tolerance), "Q·R must reproduce the input")
}

func TestQRDecomposeOrthonormalColumns(t *testing.T) {
	a := newTestMatrix(t, []float64{2, 1, 4, 1, 3, 2, 0, 1, 5}, 3, 3)

	q, _, err := QRDecompose(a)
	require.NoError(t, err)

	for j := 0; j < q.NumCols(); j++ {
		colJ, err := q.Column(j)
		require.NoError(t, err)
		for k := j; k < q.NumCols(); k++ {
			colK, err := q.Column(k)
			require.NoError(t, err)
			dot, err := bigmatrix.Dot(colJ, colK)
			require.NoError(t, err)
			want := 0.0
			if j == k {
				want = 1.0
			}
			assertNear(t, want, dot, 1e-30)
		}
	}
}

func TestQRDecomposeUpperTriangular(t *testing.T) {
	a := newTestMatrix(t, []float64{2, 1, 4, 1, 3, 2, 0, 1, 5}, 3, 3)

	_, r, err := QRDecompose(a)
	require.NoError(t, err)

	for i := 0; i < r.NumRows(); i++ {
		for j := 0; j < i; j++ {
			assertEntryNear(t, r, i, j, 0, 1e-35)
		}
	}
}

func TestQRDecomposeSingular(t *testing.T) {
	a := newTestMatrix(t, []float64{1, 2, 2, 4}, 2, 2)
	_, _, err := QRDecompose(a)
	assert.ErrorIs(t, err, ErrSingularMatrix)
}

func TestQRDecomposeNonSquare(t *testing.T) {
	a := newTestMatrix(t, []float64{1, 2, 3, 4, 5, 6}, 3, 2)
	_, _, err := QRDecompose(a)
	assert.ErrorIs(t, err, ErrNonSquare)
}

func TestBidiagonalizeStructure(t *testing.T) {
	a := newTestMatrix(t, []float64{4, 1, 2, 2, 3, 1, 1, 2, 5, 3, 1, 2, 2, 1, 4, 3}, 4, 4)

	b, err := Bidiagonalize(a)
	require.NoError(t, err)
	require.Equal(t, 4, b.NumRows())
	require.Equal(t, 4, b.NumCols())

	for i := 0; i < b.NumRows(); i++ {
		for j := 0; j < b.NumCols(); j++ {
			if j == i || j == i+1 {
				continue
			}
			assertEntryNear(t, b, i, j, 0, 1e-30)
		}
	}
}

func TestBidiagonalizePreservesFrobeniusNorm(t *testing.T) {
	// Orthogonal reflections keep the Frobenius norm.
	a := newTestMatrix(t, []float64{4, 1, 2, 2, 3, 1, 1, 2, 5}, 3, 3)

	b, err := Bidiagonalize(a)
	require.NoError(t, err)

	diff := new(big.Float).SetPrec(testPrecision).Sub(a.FrobeniusNorm(), b.FrobeniusNorm())
	diff.Abs(diff)
	tolBig := new(big.Float).SetPrec(testPrecision).SetFloat64(1e-30)
	assert.Negative(t, diff.Cmp(tolBig))
}

func TestBidiagonalizeRectangular(t *testing.T) {
	a := newTestMatrix(t, []float64{1, 2, 3, 4, 5, 6, 7, 8}, 4, 2)

	b, err := Bidiagonalize(a)
	require.NoError(t, err)
	for i := 0; i < b.NumRows(); i++ {
		for j := 0; j < b.NumCols(); j++ {
			if j == i || j == i+1 {
				continue
			}
			assertEntryNear(t, b, i, j, 0, 1e-30)
		}
	}
}

func TestSVDApproxDiagonal(t *testing.T) {
	diag, err := bigmatrix.NewDiagonal([]float64{5, 3, 1}, testPrecision)
	require.NoError(t, err)

	svd, err := SVDApprox(diag, 3, 2000, 1e-12)
	require.NoError(t, err)
	require.Len(t, svd.S, 3)
	assertNear(t, 5, svd.S[0], 1e-8)
	assertNear(t, 3, svd.S[1], 1e-8)
	assertNear(t, 1, svd.S[2], 1e-8)
}

func TestSVDApproxReconstruction(t *testing.T) {
	a := newTestMatrix(t, []float64{3, 1, 1, 3}, 2, 2)

	svd, err := SVDApprox(a, 2, 2000, 1e-12)
	require.NoError(t, err)
	require.Len(t, svd.S, 2)

	// Rebuild U·diag(S)·Vt and compare entrywise.
	s, err := bigmatrix.New(len(svd.S), len(svd.S), testPrecision)
	require.NoError(t, err)
	for i, sigma := range svd.S {
		require.NoError(t, s.Set(i, i, sigma))
	}
	us, err := svd.U.Mul(s)
	require.NoError(t, err)
	rebuilt, err := us.Mul(svd.Vt)
	require.NoError(t, err)

	tolerance := new(big.Float).SetPrec(testPrecision).SetFloat64(1e-8)
	assert.True(t, a.Equals(rebuilt, tolerance))
}

func TestSVDApproxRankClamped(t *testing.T) {
	a := newTestMatrix(t, []float64{1, 0, 0, 2, 0, 0}, 3, 2)

	svd, err := SVDApprox(a, 10, 2000, 1e-12)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(svd.S), 2)
}

func TestSVDApproxBadRank(t *testing.T) {
	a := newTestMatrix(t, []float64{1, 0, 0, 2}, 2, 2)
	_, err := SVDApprox(a, 0, 100, 1e-12)
	assert.ErrorIs(t, err, bigmatrix.ErrBadShape)
}
