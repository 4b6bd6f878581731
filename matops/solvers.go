// Package matops implements the iterative kernels that operate on a
// bigmatrix.BigMatrix: gradient descent, conjugate gradient on the normal
// equations with an automatic Tikhonov-regularized restart, LSQR, the
// power-iteration spectral and condition estimators, trace-norm deflation,
// Gram-Schmidt QR and Householder bidiagonalization.
//
// The solvers and estimators consume the matrix exclusively through MulVec
// and MulTransposeVec; no explicit inverse is ever formed.
// Iteration budgets are caller-supplied upper bounds: exhausting a budget is
// not an error, the best iterate (or last estimate) is returned and callers
// needing a guarantee inspect ResidualNorm themselves.
package matops

// Copyright (c) 2025 Colin McRae

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/rs/zerolog/log"

	"github.com/predrag3141/RUGMAT/bigmatrix"
)

var (
	// ErrZeroNorm indicates an algorithm would have divided by a zero norm
	// or zero denominator. Surfaced instead of propagating non-finite values.
	ErrZeroNorm = errors.New("matops: division by zero norm")

	// ErrSingularMatrix reports a singular or numerically rank-deficient
	// operand. This is an expected outcome for condition estimation, not an
	// abort; callers distinguish it with errors.Is.
	ErrSingularMatrix = errors.New("matops: matrix is singular")

	// ErrNonSquare indicates an estimator that requires a square operand.
	ErrNonSquare = errors.New("matops: matrix must be square")
)

const (
	// cgEpsilon scales the initial residual norm to form the conjugate
	// gradient early-exit threshold.
	cgEpsilon = "1e-30"

	// cgLambda is the Tikhonov weight used when conjugate gradient restarts
	// after detecting rank deficiency.
	cgLambda = "1e-10"
)

// Algorithm selects the method used by Solve.
type Algorithm int

const (
	AlgorithmGradientDescent Algorithm = iota
	AlgorithmLSQR
	AlgorithmConjugateGradient
)

// Solve approximately solves a·x = b with the selected algorithm and
// iteration budget. alpha is the gradient-descent step size and is ignored by
// the other algorithms.
func Solve(
	a *bigmatrix.BigMatrix, b []*big.Float, iters int, alg Algorithm, alpha *big.Float,
) ([]*big.Float, error) {
	switch alg {
	case AlgorithmGradientDescent:
		return GradientDescent(a, b, iters, alpha)
	case AlgorithmLSQR:
		return LSQR(a, b, iters)
	case AlgorithmConjugateGradient:
		return ConjugateGradient(a, b, iters)
	}
	return nil, fmt.Errorf("Solve: unknown algorithm %d", alg)
}

// GradientDescent runs x ← x − α·Aᵗ(Ax − b) for exactly iters steps from the
// zero vector. There is no convergence check: the caller controls cost through
// the iteration count and may consult ResidualNorm afterwards.
func GradientDescent(
	a *bigmatrix.BigMatrix, b []*big.Float, iters int, alpha *big.Float,
) ([]*big.Float, error) {
	if len(b) != a.NumRows() {
		return nil, fmt.Errorf(
			"GradientDescent: right-hand side length %d vs %d rows: %w",
			len(b), a.NumRows(), bigmatrix.ErrDimensionMismatch,
		)
	}

	prec := a.Prec()
	x := bigmatrix.NewVector(a.NumCols(), prec)
	tmp := new(big.Float).SetPrec(prec)
	for iter := 0; iter < iters; iter++ {
		ax, err := a.MulVec(x)
		if err != nil {
			return nil, fmt.Errorf("GradientDescent: %w", err)
		}
		r, err := bigmatrix.SubVectors(ax, b)
		if err != nil {
			return nil, fmt.Errorf("GradientDescent: %w", err)
		}
		atr, err := a.MulTransposeVec(r)
		if err != nil {
			return nil, fmt.Errorf("GradientDescent: %w", err)
		}
		for j := range x {
			tmp.Mul(alpha, atr[j])
			x[j].Sub(x[j], tmp)
		}
	}
	return x, nil
}

// ConjugateGradient solves the normal equations AᵗA·x = Aᵗb with the standard
// CG recurrence, exiting early once the squared residual drops below
// cgEpsilon·‖r₀‖. A zero search-direction denominator indicates rank
// deficiency: the solve restarts once with Tikhonov-regularized normal
// equations (AᵗA + λI)x = Aᵗb, λ = cgLambda.
func ConjugateGradient(
	a *bigmatrix.BigMatrix, b []*big.Float, maxIters int,
) ([]*big.Float, error) {
	prec := a.Prec()
	x, r, p, err := cgInit(a, b, nil)
	if err != nil {
		return nil, fmt.Errorf("ConjugateGradient: %w", err)
	}

	rsOld, err := bigmatrix.Dot(r, r)
	if err != nil {
		return nil, fmt.Errorf("ConjugateGradient: %w", err)
	}
	initialNorm := new(big.Float).SetPrec(prec).Sqrt(rsOld)
	epsilon := mustParse(cgEpsilon, prec)
	threshold := new(big.Float).SetPrec(prec).Mul(epsilon, initialNorm)

	tmp := new(big.Float).SetPrec(prec)
	for iter := 0; iter < maxIters; iter++ {
		av, err := a.MulVec(p)
		if err != nil {
			return nil, fmt.Errorf("ConjugateGradient: %w", err)
		}
		ap, err := a.MulTransposeVec(av)
		if err != nil {
			return nil, fmt.Errorf("ConjugateGradient: %w", err)
		}
		denom, err := bigmatrix.Dot(p, ap)
		if err != nil {
			return nil, fmt.Errorf("ConjugateGradient: %w", err)
		}
		if denom.Sign() == 0 {
			// Likely rank deficiency: a nonzero search direction was
			// annihilated by the normal equations.
			log.Warn().
				Int("iteration", iter).
				Msg("conjugate gradient hit a zero denominator; restarting with Tikhonov regularization")
			return ConjugateGradientRegularized(a, b, maxIters, mustParse(cgLambda, prec))
		}

		alpha := new(big.Float).SetPrec(prec).Quo(rsOld, denom)
		for i := range x {
			tmp.Mul(alpha, p[i])
			x[i].Add(x[i], tmp)
			tmp.Mul(alpha, ap[i])
			r[i].Sub(r[i], tmp)
		}

		rsNew, err := bigmatrix.Dot(r, r)
		if err != nil {
			return nil, fmt.Errorf("ConjugateGradient: %w", err)
		}
		if rsNew.Cmp(threshold) < 0 {
			break
		}
		beta := new(big.Float).SetPrec(prec).Quo(rsNew, rsOld)
		for i := range p {
			tmp.Mul(beta, p[i])
			p[i].Add(r[i], tmp)
		}
		rsOld = rsNew
	}
	return x, nil
}

// ConjugateGradientRegularized solves (AᵗA + λI)x = Aᵗb. A zero denominator
// here stops the iteration and returns the best-effort iterate: the one
// permitted regularized retry has already been spent.
func ConjugateGradientRegularized(
	a *bigmatrix.BigMatrix, b []*big.Float, maxIters int, lambda *big.Float,
) ([]*big.Float, error) {
	prec := a.Prec()
	x, r, p, err := cgInit(a, b, lambda)
	if err != nil {
		return nil, fmt.Errorf("ConjugateGradientRegularized: %w", err)
	}

	rsOld, err := bigmatrix.Dot(r, r)
	if err != nil {
		return nil, fmt.Errorf("ConjugateGradientRegularized: %w", err)
	}
	epsilon := mustParse(cgEpsilon, prec)

	tmp := new(big.Float).SetPrec(prec)
	for iter := 0; iter < maxIters; iter++ {
		av, err := a.MulVec(p)
		if err != nil {
			return nil, fmt.Errorf("ConjugateGradientRegularized: %w", err)
		}
		ap, err := a.MulTransposeVec(av)
		if err != nil {
			return nil, fmt.Errorf("ConjugateGradientRegularized: %w", err)
		}
		for i := range ap {
			tmp.Mul(lambda, p[i])
			ap[i].Add(ap[i], tmp)
		}
		denom, err := bigmatrix.Dot(p, ap)
		if err != nil {
			return nil, fmt.Errorf("ConjugateGradientRegularized: %w", err)
		}
		if denom.Sign() == 0 {
			break
		}

		alpha := new(big.Float).SetPrec(prec).Quo(rsOld, denom)
		for i := range x {
			tmp.Mul(alpha, p[i])
			x[i].Add(x[i], tmp)
			tmp.Mul(alpha, ap[i])
			r[i].Sub(r[i], tmp)
		}

		rsNew, err := bigmatrix.Dot(r, r)
		if err != nil {
			return nil, fmt.Errorf("ConjugateGradientRegularized: %w", err)
		}
		if rsNew.Cmp(epsilon) < 0 {
			break
		}
		beta := new(big.Float).SetPrec(prec).Quo(rsNew, rsOld)
		for i := range p {
			tmp.Mul(beta, p[i])
			p[i].Add(r[i], tmp)
		}
		rsOld = rsNew
	}
	return x, nil
}

// cgInit builds the shared CG starting state from the zero vector: the
// normal-equation residual r = Aᵗb − AᵗAx − λx (λ nil for the unregularized
// run) and the initial search direction p = r.
func cgInit(
	a *bigmatrix.BigMatrix, b []*big.Float, lambda *big.Float,
) (x, r, p []*big.Float, err error) {
	if len(b) != a.NumRows() {
		return nil, nil, nil, fmt.Errorf(
			"right-hand side length %d vs %d rows: %w",
			len(b), a.NumRows(), bigmatrix.ErrDimensionMismatch,
		)
	}

	prec := a.Prec()
	atb, err := a.MulTransposeVec(b)
	if err != nil {
		return nil, nil, nil, err
	}
	x = bigmatrix.NewVector(a.NumCols(), prec)
	ax, err := a.MulVec(x)
	if err != nil {
		return nil, nil, nil, err
	}
	atax, err := a.MulTransposeVec(ax)
	if err != nil {
		return nil, nil, nil, err
	}
	r, err = bigmatrix.SubVectors(atb, atax)
	if err != nil {
		return nil, nil, nil, err
	}
	if lambda != nil {
		tmp := new(big.Float).SetPrec(prec)
		for i := range r {
			tmp.Mul(lambda, x[i])
			r[i].Sub(r[i], tmp)
		}
	}
	p = bigmatrix.CloneVector(r)
	return x, r, p, nil
}

// LSQR runs the Golub-Kahan bidiagonalization recurrence for exactly maxIters
// steps, accumulating the solution through the rotation coefficients
// (c, s, θ, φ, ρ). There is no convergence test; callers wanting an early stop
// watch ResidualNorm between budgets.
func LSQR(a *bigmatrix.BigMatrix, b []*big.Float, maxIters int) ([]*big.Float, error) {
	if len(b) != a.NumRows() {
		return nil, fmt.Errorf(
			"LSQR: right-hand side length %d vs %d rows: %w",
			len(b), a.NumRows(), bigmatrix.ErrDimensionMismatch,
		)
	}

	prec := a.Prec()
	x := bigmatrix.NewVector(a.NumCols(), prec)

	u := bigmatrix.CloneVector(b)
	beta, err := bigmatrix.Norm2Vec(u)
	if err != nil {
		return nil, fmt.Errorf("LSQR: %w", err)
	}
	if beta.Sign() == 0 {
		return nil, fmt.Errorf("LSQR: right-hand side: %w", ErrZeroNorm)
	}
	for i := range u {
		u[i].Quo(u[i], beta)
	}

	v, err := a.MulTransposeVec(u)
	if err != nil {
		return nil, fmt.Errorf("LSQR: %w", err)
	}
	alpha, err := bigmatrix.Norm2Vec(v)
	if err != nil {
		return nil, fmt.Errorf("LSQR: %w", err)
	}
	if alpha.Sign() == 0 {
		return nil, fmt.Errorf("LSQR: Aᵗu: %w", ErrZeroNorm)
	}
	for i := range v {
		v[i].Quo(v[i], alpha)
	}

	w := bigmatrix.CloneVector(v)
	phibar := new(big.Float).Copy(beta)
	rhobar := new(big.Float).Copy(alpha)

	tmp := new(big.Float).SetPrec(prec)
	for iter := 0; iter < maxIters; iter++ {
		uNew, err := a.MulVec(v)
		if err != nil {
			return nil, fmt.Errorf("LSQR: %w", err)
		}
		for i := range uNew {
			tmp.Mul(alpha, u[i])
			uNew[i].Sub(uNew[i], tmp)
		}
		beta, err = bigmatrix.Norm2Vec(uNew)
		if err != nil {
			return nil, fmt.Errorf("LSQR: %w", err)
		}
		if beta.Sign() == 0 {
			return nil, fmt.Errorf("LSQR: u update at iteration %d: %w", iter, ErrZeroNorm)
		}
		for i := range uNew {
			uNew[i].Quo(uNew[i], beta)
		}
		u = uNew

		vNew, err := a.MulTransposeVec(u)
		if err != nil {
			return nil, fmt.Errorf("LSQR: %w", err)
		}
		for i := range vNew {
			tmp.Mul(beta, v[i])
			vNew[i].Sub(vNew[i], tmp)
		}
		alpha, err = bigmatrix.Norm2Vec(vNew)
		if err != nil {
			return nil, fmt.Errorf("LSQR: %w", err)
		}
		if alpha.Sign() == 0 {
			return nil, fmt.Errorf("LSQR: v update at iteration %d: %w", iter, ErrZeroNorm)
		}
		for i := range vNew {
			vNew[i].Quo(vNew[i], alpha)
		}
		v = vNew

		// Plane rotation eliminating the subdiagonal element beta.
		rho := new(big.Float).SetPrec(prec)
		tmp.Mul(rhobar, rhobar)
		rho.Mul(beta, beta)
		rho.Add(rho, tmp)
		rho.Sqrt(rho)
		if rho.Sign() == 0 {
			return nil, fmt.Errorf("LSQR: rotation at iteration %d: %w", iter, ErrZeroNorm)
		}
		c := new(big.Float).SetPrec(prec).Quo(rhobar, rho)
		s := new(big.Float).SetPrec(prec).Quo(beta, rho)
		theta := new(big.Float).SetPrec(prec).Mul(s, alpha)
		rhobar = new(big.Float).SetPrec(prec).Mul(c, alpha)
		rhobar.Neg(rhobar)
		phi := new(big.Float).SetPrec(prec).Mul(c, phibar)
		phibar = new(big.Float).SetPrec(prec).Mul(s, phibar)

		t1 := new(big.Float).SetPrec(prec).Quo(phi, rho)
		t2 := new(big.Float).SetPrec(prec).Quo(theta, rho)
		for j := range x {
			tmp.Mul(t1, w[j])
			x[j].Add(x[j], tmp)
		}
		for j := range w {
			tmp.Mul(t2, w[j])
			w[j].Sub(v[j], tmp)
		}
	}
	return x, nil
}

// ResidualNorm returns ‖A·x − b‖, letting callers of the fixed-budget solvers
// implement their own stopping rules.
func ResidualNorm(a *bigmatrix.BigMatrix, x, b []*big.Float) (*big.Float, error) {
	ax, err := a.MulVec(x)
	if err != nil {
		return nil, fmt.Errorf("ResidualNorm: %w", err)
	}
	r, err := bigmatrix.SubVectors(ax, b)
	if err != nil {
		return nil, fmt.Errorf("ResidualNorm: %w", err)
	}
	norm, err := bigmatrix.Norm2Vec(r)
	if err != nil {
		return nil, fmt.Errorf("ResidualNorm: %w", err)
	}
	return norm, nil
}

// mustParse materializes a decimal constant at the given precision. Only used
// with literal constants, so a parse failure is a programmer error.
func mustParse(s string, prec uint) *big.Float {
	f, _, err := big.ParseFloat(s, 10, prec, big.ToNearestEven)
	if err != nil {
		panic(fmt.Sprintf("matops: bad constant %q: %v", s, err))
	}
	return f
}
