package party

import (
	"encoding/binary"
	"errors"
	"io"
	"strconv"

	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
)

// ByteSize is the number of bytes required to store an ID.
const ByteSize = 2

// MAX is the largest ID value.
const MAX = (1 << (ByteSize * 8)) - 1

// ID represents the identifier of a particular participant.
//
// It doubles as the point at which the participant's share of the secret
// polynomial is evaluated, so it must never be 0.
type ID uint16

// Scalar returns the corresponding curve.Scalar.
func (p ID) Scalar() *curve.Scalar {
	return curve.NewScalarUInt32(uint32(p))
}

// Bytes returns a []byte slice of length party.ByteSize.
func (p ID) Bytes() []byte {
	bytes := make([]byte, ByteSize)
	binary.BigEndian.PutUint16(bytes, uint16(p))
	return bytes
}

// String returns a base 10 representation of ID.
func (p ID) String() string {
	return strconv.FormatUint(uint64(p), 10)
}

// Validate returns an error if p cannot be used as an evaluation point.
func (p ID) Validate() error {
	if p == 0 {
		return errors.New("party: ID must be nonzero")
	}
	return nil
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (p ID) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Bytes())
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (ID) Domain() string {
	return "ID"
}

// FromBytes reads the first party.ByteSize bytes from b and creates an ID from it.
func FromBytes(b []byte) ID {
	return ID(binary.BigEndian.Uint16(b))
}

// IDFromString reads a base 10 string and attempts to generate an ID from it.
func IDFromString(str string) (ID, error) {
	p, err := strconv.ParseUint(str, 10, 16)
	if err != nil {
		return 0, err
	}
	id := ID(p)
	if err = id.Validate(); err != nil {
		return 0, err
	}
	return id, nil
}
