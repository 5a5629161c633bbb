// Package hashalgo implements §4.2's row hasher and the hash-algorithm
// negotiation rule of §4.3/§8.
package hashalgo

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Algorithm is the wire tag for an incremental hash algorithm. The same
// tags are used for every protocol version: md5=0, xxh64=1,
// sha224/sha256/sha384/sha512=2-5, blake2b=6. A layout in which blake2b
// is tag 2 is not understood; tag 2 always means sha224.
type Algorithm int

const (
	MD5 Algorithm = iota
	XXH64
	SHA224
	SHA256
	SHA384
	SHA512
	Blake2b
)

func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case XXH64:
		return "xxh64"
	case SHA224:
		return "sha224"
	case SHA256:
		return "sha256"
	case SHA384:
		return "sha384"
	case SHA512:
		return "sha512"
	case Blake2b:
		return "blake2b"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// Default is the process-wide constant initial hash algorithm, taken as a
// per-connection copy at connection start per §9's "global defaults" note.
// It is never mutated at runtime; DEFAULT_HASH_ALGORITHM in the original
// spec.
const Default Algorithm = MD5

// IsWeakDefault reports whether a is one of the two algorithms the
// negotiation rule treats as not-yet-upgraded (§4.3, §8).
func IsWeakDefault(a Algorithm) bool {
	return a == MD5 || a == XXH64
}

// Negotiate implements the sticky HASH_ALGORITHM upgrade rule: once the
// current algorithm has left the weak-default set, a further request
// cannot change it.
func Negotiate(current, requested Algorithm) Algorithm {
	if IsWeakDefault(current) {
		return requested
	}
	return current
}

// newHash constructs the underlying incremental hash.Hash for a.
func newHash(a Algorithm) (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil
	case XXH64:
		return xxhash.New(), nil
	case SHA224:
		return sha256.New224(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	case Blake2b:
		return blake2b.New512(nil)
	default:
		return nil, fmt.Errorf("hashalgo: unknown algorithm %d", int(a))
	}
}

// nullMarker is absorbed in place of a length-prefixed value whenever a
// column is null, so that a NULL and an empty string never hash the same.
const nullMarker = 0xff

// RowHasher is the row-range consumer of §4.2: it absorbs rows in the
// order it receives them, producing a digest that depends on that order.
// Rows MUST arrive in primary-key order for the digest to be meaningful.
type RowHasher struct {
	h hash.Hash
}

// NewRowHasher constructs a RowHasher using the given algorithm.
func NewRowHasher(a Algorithm) (*RowHasher, error) {
	h, err := newHash(a)
	if err != nil {
		return nil, err
	}
	return &RowHasher{h: h}, nil
}

// AbsorbRow feeds one row's columns into the hash, in column order. A nil
// entry denotes SQL NULL.
func (r *RowHasher) AbsorbRow(row []*string) {
	var lenBuf [8]byte
	for _, col := range row {
		if col == nil {
			r.h.Write([]byte{nullMarker})
			continue
		}
		putUint64BigEndian(lenBuf[:], uint64(len(*col)))
		r.h.Write(lenBuf[:])
		r.h.Write([]byte(*col))
	}
}

// Finish returns the digest of every row absorbed so far.
func (r *RowHasher) Finish() []byte {
	return r.h.Sum(nil)
}

func putUint64BigEndian(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * (7 - i)))
	}
}
