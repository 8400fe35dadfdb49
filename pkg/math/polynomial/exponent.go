package polynomial

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
)

// Exponent represents a polynomial whose coefficients are points on an elliptic curve.
type Exponent struct {
	coefficients []*curve.Point
}

// NewPolynomialExponent generates a Exponent polynomial F(X) = [secret + a1*X + ... + at*X^t]•G,
// with coefficients in G, and degree t.
func NewPolynomialExponent(polynomial *Polynomial) *Exponent {
	var p Exponent

	p.coefficients = make([]*curve.Point, len(polynomial.coefficients))
	for i := range p.coefficients {
		p.coefficients[i] = curve.NewIdentityPoint().ScalarBaseMult(polynomial.coefficients[i])
	}

	return &p
}

// Evaluate returns F(index), using Horner's method.
func (p *Exponent) Evaluate(index *curve.Scalar) *curve.Point {
	result := curve.NewIdentityPoint()

	for i := len(p.coefficients) - 1; i >= 0; i-- {
		// B_n-1 = [x]B_n  + A_n-1
		result.ScalarMult(index, result)
		result.Add(result, p.coefficients[i])
	}
	return result
}

// Degree is the highest power of the polynomial.
func (p *Exponent) Degree() int {
	return len(p.coefficients) - 1
}

func (p *Exponent) add(q *Exponent) error {
	if len(p.coefficients) != len(q.coefficients) {
		return errors.New("q is not the same length as p")
	}

	for i := 0; i < len(p.coefficients); i++ {
		p.coefficients[i].Add(p.coefficients[i], q.coefficients[i])
	}

	return nil
}

// Sum creates a new Polynomial in the Exponent, by summing a slice of existing ones.
func Sum(polynomials []*Exponent) (*Exponent, error) {
	if len(polynomials) == 0 {
		return nil, errors.New("polynomial.Sum: no polynomials")
	}

	// Create the new polynomial by copying the first one given
	summed := polynomials[0].Copy()

	// we assume all polynomials have the same degree as the first
	for j := 1; j < len(polynomials); j++ {
		if err := summed.add(polynomials[j]); err != nil {
			return nil, err
		}
	}
	return summed, nil
}

// Copy returns a deep copy of p.
func (p *Exponent) Copy() *Exponent {
	var q Exponent
	q.coefficients = make([]*curve.Point, len(p.coefficients))
	for i := 0; i < len(p.coefficients); i++ {
		q.coefficients[i] = curve.NewIdentityPoint().Set(p.coefficients[i])
	}
	return &q
}

// Equal returns true if both polynomials have the same coefficients.
func (p *Exponent) Equal(other *Exponent) bool {
	if len(p.coefficients) != len(other.coefficients) {
		return false
	}
	for i := 0; i < len(p.coefficients); i++ {
		if !p.coefficients[i].Equal(other.coefficients[i]) {
			return false
		}
	}
	return true
}

// Constant returns the constant coefficient of the polynomial 'in the exponent'
func (p *Exponent) Constant() *curve.Point {
	return p.coefficients[0]
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (p *Exponent) WriteTo(w io.Writer) (int64, error) {
	// write the number of coefficients
	if err := binary.Write(w, binary.BigEndian, uint32(len(p.coefficients))); err != nil {
		return 0, err
	}
	nAll := int64(4)

	// write all coefficients
	for _, c := range p.coefficients {
		n, err := c.WriteTo(w)
		nAll += n
		if err != nil {
			return nAll, err
		}
	}
	return nAll, nil
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (*Exponent) Domain() string {
	return "Exponent"
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Exponent) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(p.coefficients)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
//
// Commitments containing the identity are rejected, since the identity has no encoding.
func (p *Exponent) UnmarshalBinary(data []byte) error {
	var coefficients []*curve.Point
	if err := cbor.Unmarshal(data, &coefficients); err != nil {
		return err
	}
	if len(coefficients) == 0 {
		return errors.New("polynomial: no coefficients")
	}
	for _, c := range coefficients {
		if c == nil {
			return errors.New("polynomial: nil coefficient")
		}
	}
	p.coefficients = coefficients
	return nil
}
