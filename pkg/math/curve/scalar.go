package curve

import (
	"io"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Scalar is an element of ℤₙ, with n the order of secp256k1.
//
// The zero value is a valid Scalar equal to 0.
type Scalar struct {
	s secp256k1.ModNScalar
}

// NewScalar returns a new zero Scalar.
func NewScalar() *Scalar {
	return &Scalar{}
}

// NewScalarUInt32 returns a new Scalar set to x.
func NewScalarUInt32(x uint32) *Scalar {
	var s Scalar
	s.s.SetInt(x)
	return &s
}

// Set sets s = x, and returns s.
func (s *Scalar) Set(x *Scalar) *Scalar {
	s.s.Set(&x.s)
	return s
}

// SetUInt32 sets s = x, and returns s.
func (s *Scalar) SetUInt32(x uint32) *Scalar {
	s.s.SetInt(x)
	return s
}

// Add sets s = x + y mod n, and returns s.
func (s *Scalar) Add(x, y *Scalar) *Scalar {
	s.s.Add2(&x.s, &y.s)
	return s
}

// Subtract sets s = x - y mod n, and returns s.
func (s *Scalar) Subtract(x, y *Scalar) *Scalar {
	var yNeg secp256k1.ModNScalar
	yNeg.NegateVal(&y.s)
	s.s.Add2(&x.s, &yNeg)
	return s
}

// Multiply sets s = x * y mod n, and returns s.
func (s *Scalar) Multiply(x, y *Scalar) *Scalar {
	s.s.Mul2(&x.s, &y.s)
	return s
}

// MultiplyAdd sets s = x * y + z mod n, and returns s.
func (s *Scalar) MultiplyAdd(x, y, z *Scalar) *Scalar {
	var r secp256k1.ModNScalar
	r.Mul2(&x.s, &y.s)
	r.Add(&z.s)
	s.s.Set(&r)
	return s
}

// Negate sets s = -x mod n, and returns s.
func (s *Scalar) Negate(x *Scalar) *Scalar {
	s.s.NegateVal(&x.s)
	return s
}

// Invert sets s = 1/x mod n, and returns s.
//
// If x is zero, s is set to zero.
func (s *Scalar) Invert(x *Scalar) *Scalar {
	s.s.InverseValNonConst(&x.s)
	return s
}

// Equal returns true if s and x represent the same element.
func (s *Scalar) Equal(x *Scalar) bool {
	return s.s.Equals(&x.s)
}

// IsZero returns true if s = 0.
func (s *Scalar) IsZero() bool {
	return s.s.IsZero()
}

// SetHash sets s to a uniformly distributed element derived from a digest.
//
// The digest should be at least 48 bytes long, so that the reduction modulo n
// introduces no noticeable bias. Shorter inputs are reduced all the same.
func (s *Scalar) SetHash(digest []byte) *Scalar {
	reduced := new(saferith.Nat).SetBytes(digest)
	reduced.Mod(reduced, order)
	buf := make([]byte, BytesScalar)
	reduced.FillBytes(buf)
	// cannot overflow, since we reduced modulo n above
	s.s.SetByteSlice(buf)
	return s
}

// SetBytes interprets a 32 byte big-endian value, reducing it modulo n.
func (s *Scalar) SetBytes(data []byte) *Scalar {
	s.s.SetByteSlice(data)
	return s
}

// Bytes returns the 32 byte big-endian encoding of s.
func (s *Scalar) Bytes() []byte {
	data := s.s.Bytes()
	return data[:]
}

// Zero sets s to 0. It is used to erase secret values.
func (s *Scalar) Zero() {
	s.s.Zero()
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (s *Scalar) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.Bytes())
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (*Scalar) Domain() string {
	return "Scalar"
}
