package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex digits, enough for log lines
func (h Hash) Short() string {
	if len(h) < 12 {
		return string(h)
	}
	return string(h[:12])
}

// Fingerprint accumulates float64 arrays into a deterministic input hash.
// Two runs over identical arrays produce identical fingerprints.
type Fingerprint struct {
	buf []byte
}

// Add appends a labelled float series
func (f *Fingerprint) Add(label string, values ...float64) *Fingerprint {
	f.buf = append(f.buf, label...)
	var b [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		f.buf = append(f.buf, b[:]...)
	}
	return f
}

// Sum returns the hash of everything added so far
func (f *Fingerprint) Sum() Hash {
	return NewHash(f.buf)
}
