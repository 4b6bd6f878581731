// Package util holds float64 reference arithmetic used to cross-check the
// arbitrary-precision kernels at machine precision.
package util

// Copyright (c) 2025 Colin McRae

import (
	"fmt"
	"math"
)

// MultiplyFloatFloat returns the matrix product, x * y, for row-major
// []float64 x and y. n must equal the number of columns in x and the
// number of rows in y.
func MultiplyFloatFloat(x, y []float64, n int) ([]float64, error) {
	// x is mxn, y is nxp and xy is mxp.
	m, p, err := getDimensions(len(x), len(y), n, "MultiplyFloatFloat")
	if err != nil {
		return nil, err
	}
	xy := make([]float64, m*p)
	for i := 0; i < m; i++ {
		for j := 0; j < p; j++ {
			xy[i*p+j] = x[i*n] * y[j] // x[i][0] * y[0][j]
			for k := 1; k < n; k++ {
				xy[i*p+j] += x[i*n+k] * y[k*p+j] // x[i][k] * y[k][j]
			}
		}
	}
	return xy, nil
}

// MultiplyFloatVec returns the matrix-vector product, x * v, for row-major
// []float64 x with n columns.
func MultiplyFloatVec(x, v []float64, n int) ([]float64, error) {
	if len(v) != n {
		return nil, fmt.Errorf(
			"MultiplyFloatVec: vector length %d does not match %d columns", len(v), n,
		)
	}
	m, _, err := getDimensions(len(x), n, n, "MultiplyFloatVec")
	if err != nil {
		return nil, err
	}
	xv := make([]float64, m)
	for i := 0; i < m; i++ {
		for k := 0; k < n; k++ {
			xv[i] += x[i*n+k] * v[k]
		}
	}
	return xv, nil
}

// MaxAbsDiff returns the largest entrywise absolute difference between x
// and y.
func MaxAbsDiff(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf(
			"MaxAbsDiff: mismatched lengths %d and %d", len(x), len(y),
		)
	}
	maxDiff := 0.0
	for i := range x {
		diff := math.Abs(x[i] - y[i])
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	return maxDiff, nil
}

// Transpose returns the transpose of a row-major m x n matrix as a
// row-major n x m matrix.
func Transpose(x []float64, n int) ([]float64, error) {
	m, _, err := getDimensions(len(x), n, n, "Transpose")
	if err != nil {
		return nil, err
	}
	xt := make([]float64, len(x))
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			xt[j*m+i] = x[i*n+j]
		}
	}
	return xt, nil
}

// getDimensions returns the dimensions m and p for a matrix multiply
// xy where x has mn entries, y has np entries, and the number of columns
// in x (= the number of rows in y) is n.
func getDimensions(mn, np, n int, caller string) (int, int, error) {
	caller = fmt.Sprintf("%s-getDimensions", caller)
	if n <= 0 {
		return 0, 0, fmt.Errorf("%s: non-positive inner dimension %d", caller, n)
	}
	if mn%n != 0 {
		return 0, 0, fmt.Errorf(
			"%s: non-integer number of rows %d / %d in x", caller, mn, n,
		)
	}
	if np%n != 0 {
		return 0, 0, fmt.Errorf(
			"%s: non-integer number of columns %d / %d in y", caller, np, n,
		)
	}
	return mn / n, np / n, nil
}
