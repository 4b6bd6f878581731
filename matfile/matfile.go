// Package matfile reads and writes the RUGMAT container, a checksummed
// on-disk format for arbitrary-precision matrices.
//
// Layout, all integers little-endian:
//
//	magic   6 bytes "RUGMAT"
//	version u8, currently 1
//	rows    u64
//	cols    u64
//	entries rows*cols records in column-major order, each
//	        {length u64, payload bytes} with the payload produced by
//	        package floatcodec
//	trailer 32-byte BLAKE3 digest over every (length, payload) pair
//
// The digest covers the lengths as well as the payloads, so a corrupted
// length field is caught even when the payload bytes it frames happen to
// re-synchronize.
package matfile

// Copyright (c) 2025 Colin McRae

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"lukechampine.com/blake3"

	"github.com/predrag3141/RUGMAT/bigmatrix"
	"github.com/predrag3141/RUGMAT/floatcodec"
)

const (
	formatVersion  = 1
	checksumLength = 32

	// maxEntryLength bounds a single encoded entry so that a corrupted
	// length field cannot drive an enormous allocation before the checksum
	// gets the chance to reject the file.
	maxEntryLength = 1 << 30

	// maxDimension bounds the row and column counts read from a header for
	// the same reason. Keeping each dimension below 2^31 also keeps the
	// rows*cols product well inside uint64, so the entry count can never
	// wrap to a small value on crafted input.
	maxDimension = 1<<31 - 1
)

var magic = []byte("RUGMAT")

var (
	// ErrBadMagic indicates the stream does not start with the RUGMAT magic.
	ErrBadMagic = errors.New("matfile: bad magic")

	// ErrUnsupportedVersion indicates a version byte this build cannot read.
	ErrUnsupportedVersion = errors.New("matfile: unsupported version")

	// ErrChecksumMismatch indicates the trailer digest does not match the
	// digest recomputed over the entry records.
	ErrChecksumMismatch = errors.New("matfile: checksum mismatch")

	// ErrCorruptEntry indicates an entry record that cannot be framed or
	// decoded.
	ErrCorruptEntry = errors.New("matfile: corrupt entry")
)

// Write serializes m to w in the RUGMAT format.
func Write(w io.Writer, m *bigmatrix.BigMatrix) error {
	if _, err := w.Write(magic); err != nil {
		return fmt.Errorf("Write: magic: %w", err)
	}
	if _, err := w.Write([]byte{formatVersion}); err != nil {
		return fmt.Errorf("Write: version: %w", err)
	}
	var header [16]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(m.NumRows()))
	binary.LittleEndian.PutUint64(header[8:], uint64(m.NumCols()))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("Write: dimensions: %w", err)
	}

	hasher := blake3.New(checksumLength, nil)
	var lenBuf [8]byte
	for j := 0; j < m.NumCols(); j++ {
		for i := 0; i < m.NumRows(); i++ {
			entry, err := m.Get(i, j)
			if err != nil {
				return fmt.Errorf("Write: entry (%d, %d): %w", i, j, err)
			}
			encoded, err := floatcodec.Encode(entry)
			if err != nil {
				return fmt.Errorf("Write: entry (%d, %d): %w", i, j, err)
			}
			binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(encoded)))
			if err := writeHashed(w, hasher, lenBuf[:]); err != nil {
				return fmt.Errorf("Write: entry (%d, %d): %w", i, j, err)
			}
			if err := writeHashed(w, hasher, encoded); err != nil {
				return fmt.Errorf("Write: entry (%d, %d): %w", i, j, err)
			}
		}
	}

	if _, err := w.Write(hasher.Sum(nil)); err != nil {
		return fmt.Errorf("Write: checksum: %w", err)
	}
	return nil
}

// writeHashed feeds buf to the running digest and then writes it out. The
// hasher never fails; its Write signature returns an error only to satisfy
// hash.Hash.
func writeHashed(w io.Writer, hasher hash.Hash, buf []byte) error {
	hasher.Write(buf)
	_, err := w.Write(buf)
	return err
}

// Read deserializes a matrix from r. Every entry record and the trailer are
// consumed and verified before any matrix is returned, so a checksum failure
// never yields a partially decoded result. The matrix precision is taken from
// the first stored entry.
func Read(r io.Reader) (*bigmatrix.BigMatrix, error) {
	var fixed [6 + 1 + 16]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, fmt.Errorf("Read: header: %w", err)
	}
	if !bytes.Equal(fixed[:6], magic) {
		return nil, fmt.Errorf("Read: %q: %w", fixed[:6], ErrBadMagic)
	}
	if fixed[6] != formatVersion {
		return nil, fmt.Errorf("Read: version %d: %w", fixed[6], ErrUnsupportedVersion)
	}
	rows := binary.LittleEndian.Uint64(fixed[7:15])
	cols := binary.LittleEndian.Uint64(fixed[15:23])
	if rows == 0 || cols == 0 || rows > maxDimension || cols > maxDimension {
		return nil, fmt.Errorf(
			"Read: %d x %d: %w", rows, cols, bigmatrix.ErrBadShape,
		)
	}

	// Both dimensions are in [1, maxDimension], so the product cannot
	// overflow and is at least 1.
	total := rows * cols

	// The slice grows with the actual payload: a header claiming more
	// entries than the stream carries fails on the first short read
	// instead of sizing an allocation from untrusted input.
	hasher := blake3.New(checksumLength, nil)
	var entries [][]byte
	var lenBuf [8]byte
	for k := uint64(0); k < total; k++ {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("Read: entry %d length: %w", k, err)
		}
		entryLen := binary.LittleEndian.Uint64(lenBuf[:])
		if entryLen > maxEntryLength {
			return nil, fmt.Errorf(
				"Read: entry %d length %d: %w", k, entryLen, ErrCorruptEntry,
			)
		}
		payload := make([]byte, entryLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("Read: entry %d payload: %w", k, err)
		}
		hasher.Write(lenBuf[:])
		hasher.Write(payload)
		entries = append(entries, payload)
	}

	var stored [checksumLength]byte
	if _, err := io.ReadFull(r, stored[:]); err != nil {
		return nil, fmt.Errorf("Read: checksum: %w", err)
	}
	if !bytes.Equal(stored[:], hasher.Sum(nil)) {
		return nil, fmt.Errorf("Read: %w", ErrChecksumMismatch)
	}

	return decodeEntries(entries, int(rows), int(cols))
}

// decodeEntries turns verified column-major entry payloads into a matrix.
func decodeEntries(entries [][]byte, rows, cols int) (*bigmatrix.BigMatrix, error) {
	first, err := floatcodec.Decode(entries[0])
	if err != nil {
		return nil, fmt.Errorf("Read: entry 0: %w", errors.Join(ErrCorruptEntry, err))
	}
	m, err := bigmatrix.New(rows, cols, first.Prec())
	if err != nil {
		return nil, fmt.Errorf("Read: %w", err)
	}

	k := 0
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			f := first
			if k > 0 {
				f, err = floatcodec.Decode(entries[k])
				if err != nil {
					return nil, fmt.Errorf(
						"Read: entry %d: %w", k, errors.Join(ErrCorruptEntry, err),
					)
				}
			}
			if err := m.Set(i, j, f); err != nil {
				return nil, fmt.Errorf("Read: entry %d: %w", k, err)
			}
			k++
		}
	}
	return m, nil
}

// Save writes m to the named file, replacing any existing content.
func Save(path string, m *bigmatrix.BigMatrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	if err := Write(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// Load reads a matrix from the named file.
func Load(path string) (*bigmatrix.BigMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	defer f.Close()
	return Read(f)
}
