package types

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// ErrWidthMismatch is returned when comparing fingerprints of different widths
var ErrWidthMismatch = errors.New("fingerprint widths differ")

// Fingerprint is a fixed-width perceptual hash. Bits are packed into 64-bit
// words, most significant bit first; unused trailing bits are zero.
// The zero value is an empty fingerprint.
type Fingerprint struct {
	words []uint64
	width int
}

// wordsFor returns how many 64-bit words hold width bits
func wordsFor(width int) int {
	return (width + 63) / 64
}

// NewFingerprint copies words into a fingerprint of the given bit width
func NewFingerprint(words []uint64, width int) (Fingerprint, error) {
	if width <= 0 {
		return Fingerprint{}, fmt.Errorf("invalid fingerprint width %d", width)
	}
	if len(words) != wordsFor(width) {
		return Fingerprint{}, fmt.Errorf("fingerprint of %d bits needs %d words, got %d", width, wordsFor(width), len(words))
	}

	owned := make([]uint64, len(words))
	copy(owned, words)

	// Clear bits past the width so equal fingerprints compare equal
	if rem := width % 64; rem != 0 {
		owned[len(owned)-1] &^= (uint64(1) << (64 - rem)) - 1
	}

	return Fingerprint{words: owned, width: width}, nil
}

// Width returns the number of bits in the fingerprint
func (f Fingerprint) Width() int {
	return f.width
}

// IsZero reports whether the fingerprint is empty
func (f Fingerprint) IsZero() bool {
	return f.width == 0
}

// Distance returns the Hamming distance between two fingerprints
func (f Fingerprint) Distance(other Fingerprint) (int, error) {
	if f.width != other.width {
		return 0, fmt.Errorf("%w: %d vs %d", ErrWidthMismatch, f.width, other.width)
	}

	distance := 0
	for i, w := range f.words {
		distance += bits.OnesCount64(w ^ other.words[i])
	}
	return distance, nil
}

// Difference returns the Hamming distance normalized by the width, in [0,1]
func (f Fingerprint) Difference(other Fingerprint) (float64, error) {
	distance, err := f.Distance(other)
	if err != nil {
		return 0, err
	}
	if f.width == 0 {
		return 0, nil
	}
	return float64(distance) / float64(f.width), nil
}

// Key returns a string that is equal for bit-identical fingerprints
func (f Fingerprint) Key() string {
	var b strings.Builder
	b.Grow(len(f.words) * 8)
	var buf [8]byte
	for _, w := range f.words {
		binary.BigEndian.PutUint64(buf[:], w)
		b.Write(buf[:])
	}
	return b.String()
}

// Hex returns the fingerprint as a hexadecimal string
func (f Fingerprint) Hex() string {
	return hex.EncodeToString([]byte(f.Key()))
}

// String implements fmt.Stringer
func (f Fingerprint) String() string {
	return f.Hex()
}

// MarshalText encodes the fingerprint as hex
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

// ParseFingerprint decodes a fingerprint previously produced by Hex
func ParseFingerprint(s string, width int) (Fingerprint, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("cannot decode fingerprint %q: %v", s, err)
	}
	if len(raw) != wordsFor(width)*8 {
		return Fingerprint{}, fmt.Errorf("fingerprint %q has %d bytes, want %d for %d bits", s, len(raw), wordsFor(width)*8, width)
	}

	words := make([]uint64, wordsFor(width))
	for i := range words {
		words[i] = binary.BigEndian.Uint64(raw[i*8:])
	}
	return NewFingerprint(words, width)
}
