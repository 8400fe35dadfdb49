// Package hash provides the transcript hash used by the FROST protocols.
package hash

import (
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// DigestLengthBytes is the size of the output of Sum.
const DigestLengthBytes = 64

// Hash is the hash function we use for proof challenges and binding factors.
//
// Internally, this is a wrapper around blake3, whose extendable output lets
// us read as many bytes as a uniform scalar requires.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash whose state is initialized with a protocol tag.
//
// Hashes created with different tags produce independent outputs.
func New(tag string) *Hash {
	hash := &Hash{h: blake3.New()}
	_ = writeWithDomain(hash.h, &BytesWithDomain{
		TheDomain: "tag",
		Bytes:     []byte(tag),
	})
	return hash
}

// Digest returns a reader for the current output of the function.
//
// This finalizes the current state of the hash, and returns what's
// essentially a stream of random bytes.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a slice of length DigestLengthBytes resulting from the current hash state.
// If a different length is required, use io.ReadFull(hash.Digest(), out) instead.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("hash.Sum: internal hash failure: %v", err))
	}
	return out
}

// WriteAny takes many different data types and writes them to the hash state.
//
// Currently supported types:
//
//   - []byte
//   - string
//   - hash.WriterToWithDomain
//
// This function will apply its own domain separation for the first two types.
// The last type already suggests which domain to use, and this function respects it.
func (hash *Hash) WriteAny(data ...interface{}) error {
	for _, d := range data {
		var err error
		switch t := d.(type) {
		case []byte:
			err = writeWithDomain(hash.h, &BytesWithDomain{
				TheDomain: "[]byte",
				Bytes:     t,
			})
		case string:
			err = writeWithDomain(hash.h, &BytesWithDomain{
				TheDomain: "string",
				Bytes:     []byte(t),
			})
		case WriterToWithDomain:
			err = writeWithDomain(hash.h, t)
		default:
			panic(fmt.Sprintf("hash.Hash: unsupported type %T", d))
		}
		if err != nil {
			return fmt.Errorf("hash.Hash: write %T: %w", d, err)
		}
	}
	return nil
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}
