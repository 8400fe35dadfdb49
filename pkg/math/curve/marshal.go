package curve

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Scalar) MarshalBinary() ([]byte, error) {
	return s.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != BytesScalar {
		return fmt.Errorf("curve.Scalar.Unmarshal: expected %d bytes, got %d", BytesScalar, len(data))
	}
	var scalar secp256k1.ModNScalar
	if scalar.SetByteSlice(data) {
		return errors.New("curve.Scalar.Unmarshal: scalar was >= n")
	}
	s.s.Set(&scalar)
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
//
// Points are encoded in compressed SEC form: 0x02 or 0x03 ∥ 32-byte x coordinate.
func (v *Point) MarshalBinary() ([]byte, error) {
	if v == nil {
		return nil, errors.New("curve.Point.MarshalBinary: point is nil")
	}
	if v.IsIdentity() {
		return nil, errors.New("curve.Point.MarshalBinary: tries to marshal identity")
	}
	a := v.affine()
	data := make([]byte, BytesPoint)
	data[0] = secp256k1.PubKeyFormatCompressedEven
	if a.Y.IsOdd() {
		data[0] = secp256k1.PubKeyFormatCompressedOdd
	}
	a.X.PutBytesUnchecked(data[1:])
	return data, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (v *Point) UnmarshalBinary(data []byte) error {
	if len(data) != BytesPoint {
		return fmt.Errorf("curve.Point.Unmarshal: expected %d bytes, got %d", BytesPoint, len(data))
	}
	format := data[0]
	if format != secp256k1.PubKeyFormatCompressedOdd && format != secp256k1.PubKeyFormatCompressedEven {
		return errors.New("curve.Point.Unmarshal: incorrect format")
	}
	var x, y secp256k1.FieldVal
	if overflow := x.SetByteSlice(data[1:]); overflow {
		return errors.New("curve.Point.Unmarshal: invalid point: x >= field prime")
	}
	wantOddY := format == secp256k1.PubKeyFormatCompressedOdd
	if !secp256k1.DecompressY(&x, wantOddY, &y) {
		return errors.New("curve.Point.Unmarshal: invalid point: x coordinate is not on the curve")
	}
	y.Normalize()
	v.p.X.Set(&x)
	v.p.Y.Set(&y)
	v.p.Z.SetInt(1)
	return nil
}

// String implements fmt.Stringer.
func (v *Point) String() string {
	if v == nil {
		return "nil"
	}
	if v.IsIdentity() {
		return "Point{Identity}"
	}
	data, _ := v.MarshalBinary()
	return fmt.Sprintf("Point{%x}", data)
}
