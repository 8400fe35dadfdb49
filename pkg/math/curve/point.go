package curve

import (
	"errors"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Point is an element of the secp256k1 group, stored in Jacobian coordinates.
//
// The zero value is the identity.
type Point struct {
	p secp256k1.JacobianPoint
}

// NewIdentityPoint returns a new Point set to the identity.
func NewIdentityPoint() *Point {
	return &Point{}
}

// NewBasePoint returns a new Point set to the canonical generator G.
func NewBasePoint() *Point {
	return NewIdentityPoint().ScalarBaseMult(NewScalarUInt32(1))
}

// Set sets v = u, and returns v.
func (v *Point) Set(u *Point) *Point {
	v.p.Set(&u.p)
	return v
}

// Add sets v = p + q, and returns v.
func (v *Point) Add(p, q *Point) *Point {
	var r secp256k1.JacobianPoint
	secp256k1.AddNonConst(&p.p, &q.p, &r)
	v.p.Set(&r)
	return v
}

// Subtract sets v = p - q, and returns v.
func (v *Point) Subtract(p, q *Point) *Point {
	var qNeg Point
	qNeg.Negate(q)
	return v.Add(p, &qNeg)
}

// Negate sets v = -p, and returns v.
func (v *Point) Negate(p *Point) *Point {
	v.Set(p)
	v.p.Y.Normalize()
	v.p.Y.Negate(1)
	v.p.Y.Normalize()
	return v
}

// ScalarBaseMult sets v = x • G, and returns v.
func (v *Point) ScalarBaseMult(x *Scalar) *Point {
	var r secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&x.s, &r)
	v.p.Set(&r)
	return v
}

// ScalarMult sets v = x • q, and returns v.
func (v *Point) ScalarMult(x *Scalar, q *Point) *Point {
	var r secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&x.s, &q.p, &r)
	v.p.Set(&r)
	return v
}

// IsIdentity returns true if v is the point at infinity.
func (v *Point) IsIdentity() bool {
	return (v.p.X.IsZero() && v.p.Y.IsZero()) || v.p.Z.IsZero()
}

// Equal returns true if v and u represent the same element.
func (v *Point) Equal(u *Point) bool {
	if v.IsIdentity() || u.IsIdentity() {
		return v.IsIdentity() && u.IsIdentity()
	}
	a, b := v.affine(), u.affine()
	return a.X.Equals(&b.X) && a.Y.Equals(&b.Y)
}

// HasEvenY returns true if the affine y coordinate of v is even.
//
// The identity is considered to have an odd y coordinate, so that it never
// passes as a valid BIP-340 point.
func (v *Point) HasEvenY() bool {
	if v.IsIdentity() {
		return false
	}
	a := v.affine()
	return !a.Y.IsOdd()
}

// XBytes returns the 32 byte encoding of the affine x coordinate of v.
func (v *Point) XBytes() []byte {
	a := v.affine()
	out := make([]byte, BytesXOnly)
	a.X.PutBytesUnchecked(out)
	return out
}

// LiftX returns the point with x coordinate x and an even y coordinate.
//
// See: https://github.com/bitcoin/bips/blob/master/bip-0340.mediawiki#specification
func LiftX(data []byte) (*Point, error) {
	if len(data) != BytesXOnly {
		return nil, errors.New("curve.LiftX: x coordinate must be 32 bytes")
	}
	var x, y secp256k1.FieldVal
	if overflow := x.SetByteSlice(data); overflow {
		return nil, errors.New("curve.LiftX: x coordinate >= field prime")
	}
	if !secp256k1.DecompressY(&x, false, &y) {
		return nil, errors.New("curve.LiftX: x coordinate is not on the curve")
	}
	y.Normalize()
	var v Point
	v.p.X.Set(&x)
	v.p.Y.Set(&y)
	v.p.Z.SetInt(1)
	return &v, nil
}

// affine returns a copy of v in affine coordinates. v itself is not modified.
func (v *Point) affine() secp256k1.JacobianPoint {
	var a secp256k1.JacobianPoint
	a.Set(&v.p)
	if !a.Z.IsOne() {
		a.ToAffine()
	}
	a.X.Normalize()
	a.Y.Normalize()
	return a
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
// It writes the compressed encoding of the point, or an error for the identity.
func (v *Point) WriteTo(w io.Writer) (int64, error) {
	data, err := v.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (*Point) Domain() string {
	return "Point"
}
