// Package floatcodec serializes arbitrary-precision floats to a self-describing
// binary form with no precision loss. It is the only package that is allowed to
// reason about a float's internal representation (precision, sign, exponent and
// significand limbs); everything else in this module interacts with values
// through ordinary big.Float arithmetic.
//
// The encoding is little-endian throughout:
//
//	precision  uint32  - significant bits of the value
//	sign       int8    - +1 or -1
//	exponent   int64   - base-2 exponent e with value = mant * 2^e, 0.5 <= |mant| < 1
//	limbCount  uint64  - always ceil(precision/64)
//	limbs      uint64* - significand magnitude, least significant limb first,
//	                     top bit of the top limb set for nonzero values
//
// The layout deliberately avoids any decimal formatting so that a decoded value
// is bit-for-bit identical to the encoded one at every precision.
package floatcodec

// Copyright (c) 2025 Colin McRae

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
)

const (
	limbBits  = 64
	limbBytes = limbBits / 8
)

// ErrZeroPrecision is returned when encoding a float whose precision is unset.
// A zero-precision big.Float has no defined significand width and cannot be
// reproduced exactly.
var ErrZeroPrecision = errors.New("floatcodec: float has zero precision")

// ErrInvalidEncoding is returned when a decoded header is internally
// inconsistent, e.g. the stored limb count does not match the stored precision.
var ErrInvalidEncoding = errors.New("floatcodec: invalid encoding")

// limbCount returns the number of 64-bit limbs required to hold prec bits.
func limbCount(prec uint32) uint64 {
	return (uint64(prec) + limbBits - 1) / limbBits
}

// WriteFloat serializes f to w. The significand is extracted through the public
// MantExp interface: the mantissa m with 0.5 <= m < 1 is shifted left by
// limbCount*64 bits, which yields an integer whose bit pattern equals the
// normalized limb array (most significant bit set, zero padding in the low
// bits of the lowest limb when the precision is not a multiple of 64).
func WriteFloat(w io.Writer, f *big.Float) error {
	prec := uint(f.Prec())
	if prec == 0 {
		return ErrZeroPrecision
	}

	sign := int8(1)
	if f.Signbit() {
		sign = -1
	}

	mant := new(big.Float)
	exp := f.MantExp(mant)
	mant.Abs(mant)

	nLimbs := limbCount(uint32(prec))

	// Shift the mantissa into integer position. The result is exact because
	// the mantissa carries at most prec <= nLimbs*64 significant bits.
	shifted := new(big.Float).SetMantExp(mant, int(nLimbs)*limbBits)
	asInt, _ := shifted.Int(nil)

	header := make([]byte, 4+1+8+8)
	binary.LittleEndian.PutUint32(header[0:4], uint32(prec))
	header[4] = byte(sign)
	binary.LittleEndian.PutUint64(header[5:13], uint64(exp))
	binary.LittleEndian.PutUint64(header[13:21], nLimbs)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("floatcodec: could not write header: %w", err)
	}

	// FillBytes emits the magnitude big-endian; reorder into little-endian
	// 64-bit limbs, least significant limb first.
	beBytes := make([]byte, nLimbs*limbBytes)
	asInt.FillBytes(beBytes)
	limbBuf := make([]byte, nLimbs*limbBytes)
	for k := uint64(0); k < nLimbs; k++ {
		limb := binary.BigEndian.Uint64(beBytes[(nLimbs-1-k)*limbBytes:])
		binary.LittleEndian.PutUint64(limbBuf[k*limbBytes:], limb)
	}
	if _, err := w.Write(limbBuf); err != nil {
		return fmt.Errorf("floatcodec: could not write limbs: %w", err)
	}
	return nil
}

// ReadFloat deserializes one float from r. It allocates the value at the
// stored precision, installs the significand and exponent, then applies the
// sign. A stream that ends mid-field or mid-limb-array yields an error
// wrapping io.ErrUnexpectedEOF (or io.EOF when nothing was read).
func ReadFloat(r io.Reader) (*big.Float, error) {
	header := make([]byte, 4+1+8+8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("floatcodec: could not read header: %w", err)
	}

	prec := binary.LittleEndian.Uint32(header[0:4])
	sign := int8(header[4])
	exp := int64(binary.LittleEndian.Uint64(header[5:13]))
	nLimbs := binary.LittleEndian.Uint64(header[13:21])

	if prec == 0 {
		return nil, fmt.Errorf("%w: precision is zero", ErrInvalidEncoding)
	}
	if nLimbs != limbCount(prec) {
		return nil, fmt.Errorf(
			"%w: limb count %d does not match precision %d bits",
			ErrInvalidEncoding, nLimbs, prec,
		)
	}

	limbBuf := make([]byte, nLimbs*limbBytes)
	if _, err := io.ReadFull(r, limbBuf); err != nil {
		return nil, fmt.Errorf("floatcodec: could not read limbs: %w", err)
	}

	beBytes := make([]byte, nLimbs*limbBytes)
	for k := uint64(0); k < nLimbs; k++ {
		limb := binary.LittleEndian.Uint64(limbBuf[k*limbBytes:])
		binary.BigEndian.PutUint64(beBytes[(nLimbs-1-k)*limbBytes:], limb)
	}
	asInt := new(big.Int).SetBytes(beBytes)

	// The integer significand carries at most prec significant bits, so
	// SetInt is exact at the stored precision.
	f := new(big.Float).SetPrec(uint(prec)).SetInt(asInt)
	f.SetMantExp(f, int(exp)-int(nLimbs)*limbBits)
	if sign < 0 {
		f.Neg(f)
	}
	return f, nil
}

// Encode serializes f to a fresh byte slice.
func Encode(f *big.Float) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteFloat(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a float from b, which must contain one encoded value
// produced by Encode or WriteFloat.
func Decode(b []byte) (*big.Float, error) {
	return ReadFloat(bytes.NewReader(b))
}
