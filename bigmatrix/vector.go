package bigmatrix

// Copyright (c) 2025 Colin McRae

import (
	"fmt"
	"math/big"
)

// NewVector returns a zero vector of length n at the given precision.
func NewVector(n int, prec uint) []*big.Float {
	retVal := make([]*big.Float, n)
	for i := range retVal {
		retVal[i] = new(big.Float).SetPrec(prec)
	}
	return retVal
}

// NewConstantVector returns a length-n vector with every entry set to value.
func NewConstantVector(n int, value int64, prec uint) []*big.Float {
	retVal := make([]*big.Float, n)
	for i := range retVal {
		retVal[i] = new(big.Float).SetPrec(prec).SetInt64(value)
	}
	return retVal
}

// CloneVector returns a deep copy of v.
func CloneVector(v []*big.Float) []*big.Float {
	retVal := make([]*big.Float, len(v))
	for i, x := range v {
		retVal[i] = new(big.Float).Copy(x)
	}
	return retVal
}

// Dot returns the dot product of a and b, accumulated at the larger of the
// two leading-entry precisions.
func Dot(a, b []*big.Float) (*big.Float, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf(
			"Dot: lengths %d and %d: %w", len(a), len(b), ErrDimensionMismatch,
		)
	}
	if len(a) == 0 {
		return nil, fmt.Errorf("Dot: empty vectors: %w", ErrBadShape)
	}
	prec := a[0].Prec()
	if b[0].Prec() > prec {
		prec = b[0].Prec()
	}
	acc := new(big.Float).SetPrec(prec)
	tmp := new(big.Float).SetPrec(prec)
	for i := range a {
		tmp.Mul(a[i], b[i])
		acc.Add(acc, tmp)
	}
	return acc, nil
}

// Norm2Vec returns the Euclidean norm of v. The sum of squares accumulates at
// double the vector precision to bound rounding; the root is returned at the
// vector precision.
func Norm2Vec(v []*big.Float) (*big.Float, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("Norm2Vec: empty vector: %w", ErrBadShape)
	}
	prec := v[0].Prec()
	acc := new(big.Float).SetPrec(2 * prec)
	tmp := new(big.Float).SetPrec(2 * prec)
	for _, x := range v {
		tmp.Mul(x, x)
		acc.Add(acc, tmp)
	}
	acc.Sqrt(acc)
	return new(big.Float).SetPrec(prec).Set(acc), nil
}

// SubVectors returns a - b as a new vector at a's leading-entry precision.
func SubVectors(a, b []*big.Float) ([]*big.Float, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf(
			"SubVectors: lengths %d and %d: %w", len(a), len(b), ErrDimensionMismatch,
		)
	}
	if len(a) == 0 {
		return nil, fmt.Errorf("SubVectors: empty vectors: %w", ErrBadShape)
	}
	prec := a[0].Prec()
	retVal := make([]*big.Float, len(a))
	for i := range a {
		retVal[i] = new(big.Float).SetPrec(prec).Sub(a[i], b[i])
	}
	return retVal, nil
}
