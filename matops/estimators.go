package matops

// Copyright (c) 2025 Colin McRae

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/predrag3141/RUGMAT/bigmatrix"
)

const (
	// smallestSVInnerIters is the gradient-descent budget used as the
	// implicit inverse-apply inside inverse power iteration.
	smallestSVInnerIters = 20

	// smallestSVStepSize is the gradient-descent step size of that solve.
	smallestSVStepSize = 1e-3

	// condAutoFloorBits is the precision floor of CondEstimateAuto.
	condAutoFloorBits = 64

	// condAutoStabilityTol bounds |cond − last| for the auto-precision
	// escalation to declare the estimate stable.
	condAutoStabilityTol = "1e-10"
)

// SpectralNormEstimate estimates the largest singular value by power
// iteration: normalize-and-apply with a Rayleigh-quotient-style convergence
// check |λnew − λold| < tol. Exhausting maxIters is not an error; the last
// estimate is returned. The operand must be square.
func SpectralNormEstimate(a *bigmatrix.BigMatrix, maxIters int, tol float64) (*big.Float, error) {
	if a.NumRows() != a.NumCols() {
		return nil, fmt.Errorf(
			"SpectralNormEstimate: %d x %d: %w", a.NumRows(), a.NumCols(), ErrNonSquare,
		)
	}

	prec := a.Prec()
	x := bigmatrix.NewConstantVector(a.NumCols(), 1, prec)
	lambda := new(big.Float).SetPrec(prec)
	tolBig := new(big.Float).SetPrec(prec).SetFloat64(tol)
	diff := new(big.Float).SetPrec(prec)

	for iter := 0; iter < maxIters; iter++ {
		y, err := a.MulVec(x)
		if err != nil {
			return nil, fmt.Errorf("SpectralNormEstimate: %w", err)
		}
		normY, err := bigmatrix.Norm2Vec(y)
		if err != nil {
			return nil, fmt.Errorf("SpectralNormEstimate: %w", err)
		}
		if normY.Sign() == 0 {
			return nil, fmt.Errorf("SpectralNormEstimate: iterate vanished: %w", ErrZeroNorm)
		}
		for i := range x {
			x[i].Quo(y[i], normY)
		}
		y2, err := a.MulVec(x)
		if err != nil {
			return nil, fmt.Errorf("SpectralNormEstimate: %w", err)
		}
		lambdaNew, err := bigmatrix.Dot(x, y2)
		if err != nil {
			return nil, fmt.Errorf("SpectralNormEstimate: %w", err)
		}
		lambdaNew.Abs(lambdaNew)
		diff.Sub(lambdaNew, lambda)
		diff.Abs(diff)
		if diff.Cmp(tolBig) < 0 {
			return lambdaNew, nil
		}
		lambda.Set(lambdaNew)
	}
	return lambda, nil
}

// SmallestSingularValueEstimate estimates the smallest singular value with
// inverse power iteration, using a short gradient-descent solve as the
// implicit inverse-apply so that no factorization is ever formed. The operand
// must be square. Exhausting maxIters returns the last estimate.
func SmallestSingularValueEstimate(
	a *bigmatrix.BigMatrix, maxIters int, tol float64,
) (*big.Float, error) {
	if a.NumRows() != a.NumCols() {
		return nil, fmt.Errorf(
			"SmallestSingularValueEstimate: %d x %d: %w",
			a.NumRows(), a.NumCols(), ErrNonSquare,
		)
	}

	prec := a.Prec()
	x := bigmatrix.NewConstantVector(a.NumRows(), 1, prec)
	lambda := new(big.Float).SetPrec(prec)
	tolBig := new(big.Float).SetPrec(prec).SetFloat64(tol)
	diff := new(big.Float).SetPrec(prec)
	stepSize := new(big.Float).SetPrec(prec).SetFloat64(smallestSVStepSize)

	for iter := 0; iter < maxIters; iter++ {
		y, err := GradientDescent(a, x, smallestSVInnerIters, stepSize)
		if err != nil {
			return nil, fmt.Errorf("SmallestSingularValueEstimate: %w", err)
		}
		normY, err := bigmatrix.Norm2Vec(y)
		if err != nil {
			return nil, fmt.Errorf("SmallestSingularValueEstimate: %w", err)
		}
		if normY.Sign() == 0 {
			return nil, fmt.Errorf(
				"SmallestSingularValueEstimate: inverse iterate vanished: %w", ErrZeroNorm,
			)
		}
		for i := range x {
			x[i].Quo(y[i], normY)
		}
		ax, err := a.MulVec(x)
		if err != nil {
			return nil, fmt.Errorf("SmallestSingularValueEstimate: %w", err)
		}
		lambdaNew, err := bigmatrix.Dot(x, ax)
		if err != nil {
			return nil, fmt.Errorf("SmallestSingularValueEstimate: %w", err)
		}
		lambdaNew.Abs(lambdaNew)
		diff.Sub(lambdaNew, lambda)
		diff.Abs(diff)
		if diff.Cmp(tolBig) < 0 {
			return lambdaNew, nil
		}
		lambda.Set(lambdaNew)
	}
	return lambda, nil
}

// CondEstimate estimates the 2-norm condition number as the ratio of the
// spectral-norm and smallest-singular-value estimates. A zero smallest
// estimate is reported as ErrSingularMatrix: singular inputs are an expected
// outcome for this domain, not a programming error.
func CondEstimate(a *bigmatrix.BigMatrix, maxIters int, tol float64) (*big.Float, error) {
	sigmaMax, err := SpectralNormEstimate(a, maxIters, tol)
	if err != nil {
		return nil, fmt.Errorf("CondEstimate: %w", err)
	}
	sigmaMin, err := SmallestSingularValueEstimate(a, maxIters, tol)
	if err != nil {
		return nil, fmt.Errorf("CondEstimate: %w", err)
	}
	if sigmaMin.Sign() == 0 {
		return nil, fmt.Errorf(
			"CondEstimate: smallest singular value estimate is zero: %w", ErrSingularMatrix,
		)
	}
	return new(big.Float).SetPrec(a.Prec()).Quo(sigmaMax, sigmaMin), nil
}

// CondEstimateAuto re-quantizes the matrix at doubling precisions, starting
// from a 64-bit floor, until two consecutive condition estimates agree within
// condAutoStabilityTol or the precision would exceed maxBits. An
// ill-conditioned matrix at low precision yields unreliable ratios, so a
// singular or vanished-iterate outcome escalates the precision instead of
// failing. Returns the estimate and the precision it was computed at; on
// budget exhaustion the last estimate is returned, matching the convergence
// non-event contract of the other estimators.
func CondEstimateAuto(
	a *bigmatrix.BigMatrix, maxIters int, tol float64, maxBits uint,
) (*big.Float, uint, error) {
	var last *big.Float
	var lastBits uint

	for bits := uint(condAutoFloorBits); bits <= maxBits; bits *= 2 {
		precise, err := a.RoundedTo(bits)
		if err != nil {
			return nil, 0, fmt.Errorf("CondEstimateAuto: %w", err)
		}
		cond, err := CondEstimate(precise, maxIters, tol)
		if errors.Is(err, ErrSingularMatrix) || errors.Is(err, ErrZeroNorm) {
			continue // estimate unreliable at this precision
		}
		if err != nil {
			return nil, 0, fmt.Errorf("CondEstimateAuto: %w", err)
		}
		if last != nil {
			diff := new(big.Float).SetPrec(bits).Sub(cond, last)
			diff.Abs(diff)
			if diff.Cmp(mustParse(condAutoStabilityTol, bits)) < 0 {
				return cond, bits, nil
			}
		}
		last = cond
		lastBits = bits
	}
	if last == nil {
		return nil, 0, fmt.Errorf(
			"CondEstimateAuto: no reliable estimate below %d bits: %w",
			maxBits, ErrSingularMatrix,
		)
	}
	return last, lastBits, nil
}

// RequiredPrecisionForCond returns targetBits + ceil(log2(cond)): solving a
// linear system amplifies error by the condition number, losing up to
// log2(cond) bits, so that many extra bits are needed to deliver targetBits
// of accuracy. The ceiling is computed exactly from the exponent of cond.
func RequiredPrecisionForCond(targetBits uint, cond *big.Float) (uint, error) {
	if cond.Sign() <= 0 {
		return 0, fmt.Errorf(
			"RequiredPrecisionForCond: condition estimate must be positive: %w",
			ErrSingularMatrix,
		)
	}
	mant := new(big.Float)
	exp := cond.MantExp(mant)

	// cond = mant·2^exp with 0.5 <= mant < 1, so log2(cond) lies in
	// (exp−1, exp], hitting exp−1 exactly when mant == 0.5.
	half := new(big.Float).SetPrec(mant.Prec()).SetFloat64(0.5)
	extra := exp
	if mant.Cmp(half) == 0 {
		extra = exp - 1
	}
	if extra < 0 {
		extra = 0 // a condition estimate below 1 costs no extra bits
	}
	return targetBits + uint(extra), nil
}

// TraceNormApprox approximates the trace norm (sum of singular values) by
// repeatedly estimating the dominant singular value and deflating its rank-1
// component, up to maxSingulars times or until the dominant estimate drops
// below tol. The deflation is approximate, in keeping with the estimator
// contract of this package.
func TraceNormApprox(
	a *bigmatrix.BigMatrix, maxIters int, tol float64, maxSingulars int,
) (*big.Float, error) {
	prec := a.Prec()
	work := a.Clone()
	total := new(big.Float).SetPrec(prec)
	tolBig := new(big.Float).SetPrec(prec).SetFloat64(tol)
	tmp := new(big.Float).SetPrec(prec)

	for k := 0; k < maxSingulars; k++ {
		sigma, err := SpectralNormEstimate(work, maxIters, tol)
		if errors.Is(err, ErrZeroNorm) {
			break // deflation consumed the whole matrix
		}
		if err != nil {
			return nil, fmt.Errorf("TraceNormApprox: %w", err)
		}
		if sigma.Cmp(tolBig) < 0 {
			break
		}
		total.Add(total, sigma)

		x, err := dominantRightVector(work, maxIters, tolBig)
		if err != nil {
			return nil, fmt.Errorf("TraceNormApprox: %w", err)
		}
		y, err := work.MulVec(x)
		if err != nil {
			return nil, fmt.Errorf("TraceNormApprox: %w", err)
		}
		// Deflate: work -= y·xᵗ. With x the normalized right direction,
		// y = A·x already carries the singular value.
		for j := 0; j < work.NumCols(); j++ {
			for i := 0; i < work.NumRows(); i++ {
				entry, err := work.Get(i, j)
				if err != nil {
					return nil, fmt.Errorf("TraceNormApprox: %w", err)
				}
				tmp.Mul(y[i], x[j])
				entry.Sub(entry, tmp)
			}
		}
	}
	return total, nil
}

// dominantRightVector power-iterates v ← normalize(Aᵗ(Av)) to find the
// dominant right singular direction of a, stopping early once the iterate
// norm falls below tol (the deflated matrix has run out of signal).
func dominantRightVector(
	a *bigmatrix.BigMatrix, maxIters int, tol *big.Float,
) ([]*big.Float, error) {
	x := bigmatrix.NewConstantVector(a.NumCols(), 1, a.Prec())
	for iter := 0; iter < maxIters; iter++ {
		y, err := a.MulVec(x)
		if err != nil {
			return nil, err
		}
		y2, err := a.MulTransposeVec(y)
		if err != nil {
			return nil, err
		}
		norm, err := bigmatrix.Norm2Vec(y2)
		if err != nil {
			return nil, err
		}
		if norm.Cmp(tol) < 0 {
			break
		}
		for i := range x {
			x[i].Quo(y2[i], norm)
		}
	}
	return x, nil
}
