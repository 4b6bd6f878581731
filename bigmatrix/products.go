package bigmatrix

// Copyright (c) 2025 Colin McRae

import (
	"fmt"
	"math/big"
)

// mulBlockSize is the contraction-dimension block length used by Mul. Blocking
// keeps a bounded window of both operands hot while a column accumulates.
const mulBlockSize = 32

// Mul returns bm * other as a new matrix at bm's working precision. The output
// columns are partitioned across parallel workers; within a column the
// contraction dimension is walked in blocks of mulBlockSize. Both operands
// must share one working precision.
func (bm *BigMatrix) Mul(other *BigMatrix) (*BigMatrix, error) {
	if other == nil {
		return nil, fmt.Errorf("Mul: %w", ErrNilMatrix)
	}
	if bm.numCols != other.numRows {
		return nil, fmt.Errorf(
			"Mul: %d columns vs %d rows: %w",
			bm.numCols, other.numRows, ErrDimensionMismatch,
		)
	}
	if bm.prec != other.prec {
		return nil, fmt.Errorf(
			"Mul: %d bits vs %d bits: %w", bm.prec, other.prec, ErrPrecisionMismatch,
		)
	}

	m, k, n := bm.numRows, bm.numCols, other.numCols
	prec := bm.prec
	result, err := New(m, n, prec)
	if err != nil {
		return nil, fmt.Errorf("Mul: %w", err)
	}

	err = parallelRange(n, func(lo, hi int) error {
		tmp := new(big.Float).SetPrec(prec)
		for j := lo; j < hi; j++ {
			acc := result.values[j*m : (j+1)*m] // this worker owns column j
			for lBlock := 0; lBlock < k; lBlock += mulBlockSize {
				lMax := lBlock + mulBlockSize
				if lMax > k {
					lMax = k
				}
				for l := lBlock; l < lMax; l++ {
					b := other.values[j*k+l]
					col := bm.values[l*m : (l+1)*m]
					for i := 0; i < m; i++ {
						tmp.Mul(col[i], b)
						acc[i].Add(acc[i], tmp)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Mul: %w", err)
	}
	return result, nil
}

// MulVec returns bm * v. Each output entry is one full-precision dot product;
// entries are computed in parallel with no partial-sum reuse across entries.
func (bm *BigMatrix) MulVec(v []*big.Float) ([]*big.Float, error) {
	if len(v) != bm.numCols {
		return nil, fmt.Errorf(
			"MulVec: vector length %d vs %d columns: %w",
			len(v), bm.numCols, ErrDimensionMismatch,
		)
	}

	m, k, prec := bm.numRows, bm.numCols, bm.prec
	result := make([]*big.Float, m)
	err := parallelRange(m, func(lo, hi int) error {
		tmp := new(big.Float).SetPrec(prec)
		for i := lo; i < hi; i++ {
			sum := new(big.Float).SetPrec(prec)
			for j := 0; j < k; j++ {
				tmp.Mul(bm.values[j*m+i], v[j])
				sum.Add(sum, tmp)
			}
			result[i] = sum
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("MulVec: %w", err)
	}
	return result, nil
}

// MulTransposeVec returns bmᵗ * v without materializing the transpose. The
// column-major layout makes each output entry a walk over one contiguous
// column. Used heavily by the normal-equation solvers.
func (bm *BigMatrix) MulTransposeVec(v []*big.Float) ([]*big.Float, error) {
	if len(v) != bm.numRows {
		return nil, fmt.Errorf(
			"MulTransposeVec: vector length %d vs %d rows: %w",
			len(v), bm.numRows, ErrDimensionMismatch,
		)
	}

	m, n, prec := bm.numRows, bm.numCols, bm.prec
	result := make([]*big.Float, n)
	err := parallelRange(n, func(lo, hi int) error {
		tmp := new(big.Float).SetPrec(prec)
		for j := lo; j < hi; j++ {
			col := bm.values[j*m : (j+1)*m]
			sum := new(big.Float).SetPrec(prec)
			for i := 0; i < m; i++ {
				tmp.Mul(col[i], v[i])
				sum.Add(sum, tmp)
			}
			result[j] = sum
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("MulTransposeVec: %w", err)
	}
	return result, nil
}
