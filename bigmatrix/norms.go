package bigmatrix

// Copyright (c) 2025 Colin McRae

import (
	"errors"
	"fmt"
	"math/big"
	"runtime"

	"github.com/ALTree/bigfloat"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidExponent indicates an Lp norm exponent outside (0, 2].
var ErrInvalidExponent = errors.New("bigmatrix: Lp norm exponent must be in (0, 2]")

// NormOne returns the 1-norm: the maximum absolute column sum.
func (bm *BigMatrix) NormOne() *big.Float {
	prec := bm.prec
	max := new(big.Float).SetPrec(prec)
	tmp := new(big.Float).SetPrec(prec)
	for j := 0; j < bm.numCols; j++ {
		col := bm.values[j*bm.numRows : (j+1)*bm.numRows]
		sum := new(big.Float).SetPrec(prec)
		for i := 0; i < bm.numRows; i++ {
			tmp.Abs(col[i])
			sum.Add(sum, tmp)
		}
		if sum.Cmp(max) > 0 {
			max.Set(sum)
		}
	}
	return max
}

// NormInf returns the infinity norm: the maximum absolute row sum. Column
// ranges are assigned to parallel workers, each accumulating into a private
// row-sum scratch vector; the scratches are reduced once all workers finish.
func (bm *BigMatrix) NormInf() *big.Float {
	prec := bm.prec
	rows, cols := bm.numRows, bm.numCols

	workers := runtime.NumCPU()
	if workers > cols {
		workers = cols
	}
	chunk := (cols + workers - 1) / workers
	numChunks := (cols + chunk - 1) / chunk
	locals := make([][]*big.Float, numChunks)

	var g errgroup.Group
	for lo := 0; lo < cols; lo += chunk {
		lo, ci := lo, lo/chunk
		hi := lo + chunk
		if hi > cols {
			hi = cols
		}
		g.Go(func() error {
			local := NewVector(rows, prec)
			tmp := new(big.Float).SetPrec(prec)
			for j := lo; j < hi; j++ {
				col := bm.values[j*rows : (j+1)*rows]
				for i := 0; i < rows; i++ {
					tmp.Abs(col[i])
					local[i].Add(local[i], tmp)
				}
			}
			locals[ci] = local
			return nil
		})
	}
	// Workers return no errors; Wait only synchronizes the scratches.
	_ = g.Wait()

	rowSums := NewVector(rows, prec)
	for _, local := range locals {
		for i := 0; i < rows; i++ {
			rowSums[i].Add(rowSums[i], local[i])
		}
	}
	max := new(big.Float).SetPrec(prec)
	for _, sum := range rowSums {
		if sum.Cmp(max) > 0 {
			max.Set(sum)
		}
	}
	return max
}

// FrobeniusNorm returns sqrt(sum of squared entries). The sum accumulates at
// double the working precision to bound rounding error.
func (bm *BigMatrix) FrobeniusNorm() *big.Float {
	prec := bm.prec
	acc := new(big.Float).SetPrec(2 * prec)
	tmp := new(big.Float).SetPrec(2 * prec)
	for _, v := range bm.values {
		tmp.Mul(v, v)
		acc.Add(acc, tmp)
	}
	acc.Sqrt(acc)
	return new(big.Float).SetPrec(prec).Set(acc)
}

// MaxEntryNorm returns the largest absolute entry.
func (bm *BigMatrix) MaxEntryNorm() *big.Float {
	prec := bm.prec
	max := new(big.Float).SetPrec(prec)
	tmp := new(big.Float).SetPrec(prec)
	for _, v := range bm.values {
		tmp.Abs(v)
		if tmp.Cmp(max) > 0 {
			max.Set(tmp)
		}
	}
	return max
}

// LpNorm returns (Σ|x|^p)^(1/p) over all entries for 0 < p <= 2. When
// epsilon > 0, entries with |x| < epsilon are skipped, sparsifying the sum.
// The accumulation runs at double the working precision.
func (bm *BigMatrix) LpNorm(p float64, epsilon float64) (*big.Float, error) {
	if !(p > 0.0 && p <= 2.0) {
		return nil, fmt.Errorf("LpNorm: p = %v: %w", p, ErrInvalidExponent)
	}

	prec := bm.prec
	accPrec := 2 * prec
	acc := new(big.Float).SetPrec(accPrec)
	pBig := new(big.Float).SetPrec(accPrec).SetFloat64(p)
	var eps *big.Float
	if epsilon > 0.0 {
		eps = new(big.Float).SetPrec(prec).SetFloat64(epsilon)
	}

	for _, v := range bm.values {
		if v.Sign() == 0 {
			continue // |0|^p contributes nothing; Pow requires a positive base
		}
		abs := new(big.Float).SetPrec(accPrec).Abs(v)
		if eps != nil && abs.Cmp(eps) < 0 {
			continue
		}
		acc.Add(acc, bigfloat.Pow(abs, pBig))
	}
	if acc.Sign() == 0 {
		return new(big.Float).SetPrec(prec), nil
	}

	invP := new(big.Float).SetPrec(accPrec).Quo(
		new(big.Float).SetPrec(accPrec).SetInt64(1), pBig,
	)
	root := bigfloat.Pow(acc, invP)
	return new(big.Float).SetPrec(prec).Set(root), nil
}

// L0Norm returns the number of nonzero entries.
func (bm *BigMatrix) L0Norm() int {
	count := 0
	for _, v := range bm.values {
		if v.Sign() != 0 {
			count++
		}
	}
	return count
}
