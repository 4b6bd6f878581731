// Package bigmatrix provides a dense, column-major matrix of arbitrary-precision
// floats, with parallel products and the norm family built on top of it.
//
// A BigMatrix carries an explicit matrix-wide precision that every accumulating
// operation uses as its working precision. The precision is fixed at
// construction; operations that mix matrices fail fast when the operand
// precisions differ rather than silently picking one.
package bigmatrix

// Copyright (c) 2025 Colin McRae

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrBadShape indicates non-positive dimensions or input data whose
	// length does not match the requested dimensions.
	ErrBadShape = errors.New("bigmatrix: invalid shape")

	// ErrZeroPrecision indicates a requested working precision of zero bits.
	ErrZeroPrecision = errors.New("bigmatrix: precision must be positive")

	// ErrIndexOutOfRange indicates a row or column index outside the matrix.
	ErrIndexOutOfRange = errors.New("bigmatrix: index out of range")

	// ErrDimensionMismatch indicates incompatible operand dimensions, e.g.
	// a.NumCols() != b.NumRows() in Mul or a vector of the wrong length.
	ErrDimensionMismatch = errors.New("bigmatrix: dimension mismatch")

	// ErrPrecisionMismatch indicates an operation mixing matrices whose
	// working precisions differ.
	ErrPrecisionMismatch = errors.New("bigmatrix: precision mismatch")

	// ErrNilMatrix indicates a nil *BigMatrix operand.
	ErrNilMatrix = errors.New("bigmatrix: nil matrix")
)

// BigMatrix is a numRows x numCols dense matrix of *big.Float values stored
// column-major in one flat slice: element (i, j) lives at values[j*numRows+i].
// Every matrix owns its values; nothing is shared across matrices.
type BigMatrix struct {
	values  []*big.Float
	numRows int
	numCols int
	prec    uint
}

// New returns a numRows x numCols matrix of zeros at the given precision.
func New(numRows, numCols int, prec uint) (*BigMatrix, error) {
	if numRows <= 0 || numCols <= 0 {
		return nil, fmt.Errorf(
			"New: %d x %d: %w", numRows, numCols, ErrBadShape,
		)
	}
	if prec == 0 {
		return nil, fmt.Errorf("New: %w", ErrZeroPrecision)
	}
	values := make([]*big.Float, numRows*numCols)
	for i := range values {
		values[i] = new(big.Float).SetPrec(prec)
	}
	return &BigMatrix{values: values, numRows: numRows, numCols: numCols, prec: prec}, nil
}

// NewFromFloat64Array creates a matrix from a row-major float64 slice. Each
// entry is materialized at the given precision.
func NewFromFloat64Array(input []float64, numRows, numCols int, prec uint) (*BigMatrix, error) {
	retVal, err := New(numRows, numCols, prec)
	if err != nil {
		return nil, fmt.Errorf("NewFromFloat64Array: %w", err)
	}
	if len(input) != numRows*numCols {
		return nil, fmt.Errorf(
			"NewFromFloat64Array: %d values for a %d x %d matrix: %w",
			len(input), numRows, numCols, ErrBadShape,
		)
	}
	for i := 0; i < numRows; i++ {
		for j := 0; j < numCols; j++ {
			retVal.values[j*numRows+i].SetFloat64(input[i*numCols+j])
		}
	}
	return retVal, nil
}

// NewFromDecimalStringArray creates a matrix from a row-major slice of decimal
// strings, each parsed at the given precision.
func NewFromDecimalStringArray(input []string, numRows, numCols int, prec uint) (*BigMatrix, error) {
	retVal, err := New(numRows, numCols, prec)
	if err != nil {
		return nil, fmt.Errorf("NewFromDecimalStringArray: %w", err)
	}
	if len(input) != numRows*numCols {
		return nil, fmt.Errorf(
			"NewFromDecimalStringArray: %d values for a %d x %d matrix: %w",
			len(input), numRows, numCols, ErrBadShape,
		)
	}
	for i := 0; i < numRows; i++ {
		for j := 0; j < numCols; j++ {
			entry, _, parseErr := big.ParseFloat(
				input[i*numCols+j], 10, prec, big.ToNearestEven,
			)
			if parseErr != nil {
				return nil, fmt.Errorf(
					"NewFromDecimalStringArray: could not parse %q: %w",
					input[i*numCols+j], parseErr,
				)
			}
			retVal.values[j*numRows+i] = entry
		}
	}
	return retVal, nil
}

// NewFromColumns creates a matrix whose j-th column holds copies of cols[j],
// materialized at the matrix precision. No storage is shared with the input.
func NewFromColumns(cols [][]*big.Float, prec uint) (*BigMatrix, error) {
	if len(cols) == 0 || len(cols[0]) == 0 {
		return nil, fmt.Errorf("NewFromColumns: empty input: %w", ErrBadShape)
	}
	numRows := len(cols[0])
	retVal, err := New(numRows, len(cols), prec)
	if err != nil {
		return nil, fmt.Errorf("NewFromColumns: %w", err)
	}
	for j, col := range cols {
		if len(col) != numRows {
			return nil, fmt.Errorf(
				"NewFromColumns: column %d has %d entries, expected %d: %w",
				j, len(col), numRows, ErrBadShape,
			)
		}
		for i, v := range col {
			retVal.values[j*numRows+i].Set(v)
		}
	}
	return retVal, nil
}

// NewFromRows creates a matrix whose i-th row holds copies of rows[i],
// materialized at the matrix precision. No storage is shared with the input.
func NewFromRows(rows [][]*big.Float, prec uint) (*BigMatrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("NewFromRows: empty input: %w", ErrBadShape)
	}
	numRows := len(rows)
	numCols := len(rows[0])
	retVal, err := New(numRows, numCols, prec)
	if err != nil {
		return nil, fmt.Errorf("NewFromRows: %w", err)
	}
	for i, row := range rows {
		if len(row) != numCols {
			return nil, fmt.Errorf(
				"NewFromRows: row %d has %d entries, expected %d: %w",
				i, len(row), numCols, ErrBadShape,
			)
		}
		for j, v := range row {
			retVal.values[j*numRows+i].Set(v)
		}
	}
	return retVal, nil
}

// Identity returns the size x size identity matrix at the given precision.
func Identity(size int, prec uint) (*BigMatrix, error) {
	retVal, err := New(size, size, prec)
	if err != nil {
		return nil, fmt.Errorf("Identity: %w", err)
	}
	for i := 0; i < size; i++ {
		retVal.values[i*size+i].SetInt64(1)
	}
	return retVal, nil
}

// NewDiagonal returns a square matrix with diag on the main diagonal and
// zeros elsewhere.
func NewDiagonal(diag []float64, prec uint) (*BigMatrix, error) {
	size := len(diag)
	retVal, err := New(size, size, prec)
	if err != nil {
		return nil, fmt.Errorf("NewDiagonal: %w", err)
	}
	for i, v := range diag {
		retVal.values[i*size+i].SetFloat64(v)
	}
	return retVal, nil
}

// NumRows returns the number of rows.
func (bm *BigMatrix) NumRows() int { return bm.numRows }

// NumCols returns the number of columns.
func (bm *BigMatrix) NumCols() int { return bm.numCols }

// Prec returns the matrix-wide working precision in bits.
func (bm *BigMatrix) Prec() uint { return bm.prec }

func (bm *BigMatrix) index(i, j int) (int, error) {
	if i < 0 || i >= bm.numRows || j < 0 || j >= bm.numCols {
		return 0, fmt.Errorf(
			"(%d,%d) in a %d x %d matrix: %w",
			i, j, bm.numRows, bm.numCols, ErrIndexOutOfRange,
		)
	}
	return j*bm.numRows + i, nil
}

// Get returns the element at row i, column j. The returned pointer refers to
// the matrix's own value; callers that need an independent copy must clone it.
func (bm *BigMatrix) Get(i, j int) (*big.Float, error) {
	idx, err := bm.index(i, j)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return bm.values[idx], nil
}

// Set deep-copies v into the element at row i, column j. The stored copy keeps
// v's own precision; the matrix-wide precision governs accumulation only.
func (bm *BigMatrix) Set(i, j int, v *big.Float) error {
	idx, err := bm.index(i, j)
	if err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	bm.values[idx] = new(big.Float).Copy(v)
	return nil
}

// Column returns a deep copy of column j.
func (bm *BigMatrix) Column(j int) ([]*big.Float, error) {
	if j < 0 || j >= bm.numCols {
		return nil, fmt.Errorf(
			"Column: %d of %d columns: %w", j, bm.numCols, ErrIndexOutOfRange,
		)
	}
	retVal := make([]*big.Float, bm.numRows)
	for i := 0; i < bm.numRows; i++ {
		retVal[i] = new(big.Float).Copy(bm.values[j*bm.numRows+i])
	}
	return retVal, nil
}

// Clone returns a deep copy of the matrix.
func (bm *BigMatrix) Clone() *BigMatrix {
	values := make([]*big.Float, len(bm.values))
	for i, v := range bm.values {
		values[i] = new(big.Float).Copy(v)
	}
	return &BigMatrix{
		values:  values,
		numRows: bm.numRows,
		numCols: bm.numCols,
		prec:    bm.prec,
	}
}

// RoundedTo returns a deep copy with every entry re-quantized to prec, which
// becomes the copy's working precision. Used by precision-escalation loops.
func (bm *BigMatrix) RoundedTo(prec uint) (*BigMatrix, error) {
	if prec == 0 {
		return nil, fmt.Errorf("RoundedTo: %w", ErrZeroPrecision)
	}
	values := make([]*big.Float, len(bm.values))
	for i, v := range bm.values {
		values[i] = new(big.Float).SetPrec(prec).Set(v)
	}
	return &BigMatrix{
		values:  values,
		numRows: bm.numRows,
		numCols: bm.numCols,
		prec:    prec,
	}, nil
}

// Equals reports whether other has the same shape and every entry within
// tolerance of the corresponding entry of bm.
func (bm *BigMatrix) Equals(other *BigMatrix, tolerance *big.Float) bool {
	if other == nil || bm.numRows != other.numRows || bm.numCols != other.numCols {
		return false
	}
	diff := new(big.Float).SetPrec(bm.prec)
	for i, v := range bm.values {
		diff.Sub(v, other.values[i])
		diff.Abs(diff)
		if diff.Cmp(tolerance) > 0 {
			return false
		}
	}
	return true
}

// String renders the matrix row by row for diagnostics.
func (bm *BigMatrix) String() string {
	retVal := ""
	for i := 0; i < bm.numRows; i++ {
		retVal += "[ "
		for j := 0; j < bm.numCols; j++ {
			retVal += bm.values[j*bm.numRows+i].Text('g', 10) + " "
		}
		retVal += "]\n"
	}
	return retVal
}

// Transpose is a non-owning view exposing a matrix's columns as rows. It is
// valid only as long as the underlying matrix; nothing is copied.
type Transpose struct {
	mat *BigMatrix
}

// NewTranspose wraps m in a transposed view.
func NewTranspose(m *BigMatrix) Transpose { return Transpose{mat: m} }

// NumRows returns the row count of the transposed view.
func (t Transpose) NumRows() int { return t.mat.numCols }

// NumCols returns the column count of the transposed view.
func (t Transpose) NumCols() int { return t.mat.numRows }

// Get returns element (i, j) of the transpose, i.e. (j, i) of the base matrix.
func (t Transpose) Get(i, j int) (*big.Float, error) {
	return t.mat.Get(j, i)
}

// MulVec computes (base matrix)ᵗ · v without materializing the transpose.
func (t Transpose) MulVec(v []*big.Float) ([]*big.Float, error) {
	return t.mat.MulTransposeVec(v)
}
