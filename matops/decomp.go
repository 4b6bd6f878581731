package matops

// Copyright (c) 2025 Colin McRae

import (
	"fmt"
	"math/big"

	"github.com/predrag3141/RUGMAT/bigmatrix"
)

// QRDecompose factors a square matrix as A = QR with modified Gram-Schmidt:
// Q has orthonormal columns and R is upper triangular. A zero column norm
// during orthogonalization means the columns are linearly dependent, reported
// as ErrSingularMatrix.
func QRDecompose(a *bigmatrix.BigMatrix) (*bigmatrix.BigMatrix, *bigmatrix.BigMatrix, error) {
	n := a.NumRows()
	if a.NumCols() != n {
		return nil, nil, fmt.Errorf(
			"QRDecompose: %d x %d: %w", n, a.NumCols(), ErrNonSquare,
		)
	}

	prec := a.Prec()
	qCols := make([][]*big.Float, n)
	r, err := bigmatrix.New(n, n, prec)
	if err != nil {
		return nil, nil, fmt.Errorf("QRDecompose: %w", err)
	}

	tmp := new(big.Float).SetPrec(prec)
	for j := 0; j < n; j++ {
		v, err := a.Column(j)
		if err != nil {
			return nil, nil, fmt.Errorf("QRDecompose: %w", err)
		}
		for k := 0; k < j; k++ {
			rkj, err := bigmatrix.Dot(qCols[k], v)
			if err != nil {
				return nil, nil, fmt.Errorf("QRDecompose: %w", err)
			}
			if err := r.Set(k, j, rkj); err != nil {
				return nil, nil, fmt.Errorf("QRDecompose: %w", err)
			}
			for i := range v {
				tmp.Mul(rkj, qCols[k][i])
				v[i].Sub(v[i], tmp)
			}
		}
		norm, err := bigmatrix.Norm2Vec(v)
		if err != nil {
			return nil, nil, fmt.Errorf("QRDecompose: %w", err)
		}
		if norm.Sign() == 0 {
			return nil, nil, fmt.Errorf(
				"QRDecompose: column %d is linearly dependent: %w", j, ErrSingularMatrix,
			)
		}
		if err := r.Set(j, j, norm); err != nil {
			return nil, nil, fmt.Errorf("QRDecompose: %w", err)
		}
		for i := range v {
			v[i].Quo(v[i], norm)
		}
		qCols[j] = v
	}

	q, err := bigmatrix.NewFromColumns(qCols, prec)
	if err != nil {
		return nil, nil, fmt.Errorf("QRDecompose: %w", err)
	}
	return q, r, nil
}

// householderVector builds the Householder reflection vector v for x, with
// beta = 2/(vᵗv), such that (I − beta·v·vᵗ)x annihilates every entry of x
// below the first. The reflection sign is chosen away from x[0] to avoid
// cancellation. A zero tail returns beta = 0, meaning no reflection is
// needed.
func householderVector(x []*big.Float, prec uint) ([]*big.Float, *big.Float, error) {
	v := bigmatrix.CloneVector(x)
	norm, err := bigmatrix.Norm2Vec(x)
	if err != nil {
		return nil, nil, err
	}
	beta := new(big.Float).SetPrec(prec)
	if norm.Sign() == 0 {
		return v, beta, nil
	}

	sign := new(big.Float).SetPrec(prec).SetInt64(1)
	if x[0].Sign() > 0 {
		sign.SetInt64(-1)
	}
	tmp := new(big.Float).SetPrec(prec).Mul(sign, norm)
	v[0].Sub(v[0], tmp)

	vNorm, err := bigmatrix.Norm2Vec(v)
	if err != nil {
		return nil, nil, err
	}
	if vNorm.Sign() == 0 {
		// x was already a multiple of e1 pointing the reflected way.
		return v, beta, nil
	}
	vtv := new(big.Float).SetPrec(prec).Mul(vNorm, vNorm)
	beta.Quo(new(big.Float).SetPrec(prec).SetInt64(2), vtv)
	return v, beta, nil
}

// applyHouseholderLeft overwrites m ← (I − beta·v·vᵗ)·m on the submatrix
// rows [rowLo, numRows) and columns [colLo, numCols). v indexes from rowLo.
func applyHouseholderLeft(
	m *bigmatrix.BigMatrix, v []*big.Float, beta *big.Float, rowLo, colLo int,
) error {
	if beta.Sign() == 0 {
		return nil
	}
	prec := m.Prec()
	dot := new(big.Float).SetPrec(prec)
	tmp := new(big.Float).SetPrec(prec)
	for j := colLo; j < m.NumCols(); j++ {
		dot.SetInt64(0)
		for i := rowLo; i < m.NumRows(); i++ {
			entry, err := m.Get(i, j)
			if err != nil {
				return err
			}
			tmp.Mul(v[i-rowLo], entry)
			dot.Add(dot, tmp)
		}
		dot.Mul(dot, beta)
		for i := rowLo; i < m.NumRows(); i++ {
			entry, err := m.Get(i, j)
			if err != nil {
				return err
			}
			tmp.Mul(dot, v[i-rowLo])
			entry.Sub(entry, tmp)
		}
	}
	return nil
}

// applyHouseholderRight overwrites m ← m·(I − beta·v·vᵗ) on the submatrix
// rows [rowLo, numRows) and columns [colLo, numCols). v indexes from colLo.
func applyHouseholderRight(
	m *bigmatrix.BigMatrix, v []*big.Float, beta *big.Float, rowLo, colLo int,
) error {
	if beta.Sign() == 0 {
		return nil
	}
	prec := m.Prec()
	dot := new(big.Float).SetPrec(prec)
	tmp := new(big.Float).SetPrec(prec)
	for i := rowLo; i < m.NumRows(); i++ {
		dot.SetInt64(0)
		for j := colLo; j < m.NumCols(); j++ {
			entry, err := m.Get(i, j)
			if err != nil {
				return err
			}
			tmp.Mul(v[j-colLo], entry)
			dot.Add(dot, tmp)
		}
		dot.Mul(dot, beta)
		for j := colLo; j < m.NumCols(); j++ {
			entry, err := m.Get(i, j)
			if err != nil {
				return err
			}
			tmp.Mul(dot, v[j-colLo])
			entry.Sub(entry, tmp)
		}
	}
	return nil
}

// Bidiagonalize reduces a to upper bidiagonal form with alternating left and
// right Householder reflections, returning the bidiagonal matrix. The
// orthogonal factors are applied but not accumulated; callers that need
// singular values feed the result to an iterative estimator.
func Bidiagonalize(a *bigmatrix.BigMatrix) (*bigmatrix.BigMatrix, error) {
	prec := a.Prec()
	b := a.Clone()
	m, n := b.NumRows(), b.NumCols()

	steps := n
	if m < n {
		steps = m
	}
	for k := 0; k < steps; k++ {
		// Zero column k below the diagonal.
		col := make([]*big.Float, 0, m-k)
		for i := k; i < m; i++ {
			entry, err := b.Get(i, k)
			if err != nil {
				return nil, fmt.Errorf("Bidiagonalize: %w", err)
			}
			col = append(col, entry)
		}
		v, beta, err := householderVector(col, prec)
		if err != nil {
			return nil, fmt.Errorf("Bidiagonalize: %w", err)
		}
		if err := applyHouseholderLeft(b, v, beta, k, k); err != nil {
			return nil, fmt.Errorf("Bidiagonalize: %w", err)
		}

		// Zero row k to the right of the superdiagonal.
		if k+2 <= n-1 {
			row := make([]*big.Float, 0, n-k-1)
			for j := k + 1; j < n; j++ {
				entry, err := b.Get(k, j)
				if err != nil {
					return nil, fmt.Errorf("Bidiagonalize: %w", err)
				}
				row = append(row, entry)
			}
			v, beta, err := householderVector(row, prec)
			if err != nil {
				return nil, fmt.Errorf("Bidiagonalize: %w", err)
			}
			if err := applyHouseholderRight(b, v, beta, k, k+1); err != nil {
				return nil, fmt.Errorf("Bidiagonalize: %w", err)
			}
		}
	}
	return b, nil
}

// SVD bundles the factors of an approximate singular value decomposition
// A ≈ U·diag(S)·Vt. U holds left singular vectors as columns, Vt holds right
// singular vectors as rows, and S is ordered largest first.
type SVD struct {
	U  *bigmatrix.BigMatrix
	S  []*big.Float
	Vt *bigmatrix.BigMatrix
}

// SVDApprox computes the rank leading singular triplets by power iteration
// with rank-1 deflation: each round finds the dominant right direction v of
// the deflated matrix, takes σ = ‖Av‖ and u = Av/σ, then subtracts σ·u·vᵗ
// and repeats. Rounds stop early when σ falls below tol. The accuracy of
// trailing triplets degrades with each deflation, which is acceptable for the
// estimation workloads this package serves.
func SVDApprox(a *bigmatrix.BigMatrix, rank, maxIters int, tol float64) (*SVD, error) {
	if rank < 1 {
		return nil, fmt.Errorf("SVDApprox: rank %d: %w", rank, bigmatrix.ErrBadShape)
	}
	maxRank := a.NumRows()
	if a.NumCols() < maxRank {
		maxRank = a.NumCols()
	}
	if rank > maxRank {
		rank = maxRank
	}

	prec := a.Prec()
	work := a.Clone()
	tolBig := new(big.Float).SetPrec(prec).SetFloat64(tol)
	tmp := new(big.Float).SetPrec(prec)

	uCols := make([][]*big.Float, 0, rank)
	vRows := make([][]*big.Float, 0, rank)
	sigmas := make([]*big.Float, 0, rank)

	for k := 0; k < rank; k++ {
		v, err := dominantRightVector(work, maxIters, tolBig)
		if err != nil {
			return nil, fmt.Errorf("SVDApprox: %w", err)
		}
		av, err := work.MulVec(v)
		if err != nil {
			return nil, fmt.Errorf("SVDApprox: %w", err)
		}
		sigma, err := bigmatrix.Norm2Vec(av)
		if err != nil {
			return nil, fmt.Errorf("SVDApprox: %w", err)
		}
		if sigma.Cmp(tolBig) < 0 {
			break
		}
		u := bigmatrix.CloneVector(av)
		for i := range u {
			u[i].Quo(u[i], sigma)
		}

		// Deflate: work -= σ·u·vᵗ.
		for j := 0; j < work.NumCols(); j++ {
			for i := 0; i < work.NumRows(); i++ {
				entry, err := work.Get(i, j)
				if err != nil {
					return nil, fmt.Errorf("SVDApprox: %w", err)
				}
				tmp.Mul(u[i], v[j])
				tmp.Mul(tmp, sigma)
				entry.Sub(entry, tmp)
			}
		}

		uCols = append(uCols, u)
		vRows = append(vRows, v)
		sigmas = append(sigmas, sigma)
	}

	if len(sigmas) == 0 {
		return nil, fmt.Errorf("SVDApprox: no singular value above tolerance: %w", ErrZeroNorm)
	}
	u, err := bigmatrix.NewFromColumns(uCols, prec)
	if err != nil {
		return nil, fmt.Errorf("SVDApprox: %w", err)
	}
	vt, err := bigmatrix.NewFromRows(vRows, prec)
	if err != nil {
		return nil, fmt.Errorf("SVDApprox: %w", err)
	}
	return &SVD{U: u, S: sigmas, Vt: vt}, nil
}
