// Package polynomial implements Shamir secret sharing polynomials, their
// Feldman commitments, and Lagrange interpolation at 0.
package polynomial

import (
	"errors"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/math/sample"
)

// Polynomial represents f(X) = a₀ + a₁⋅X + … + aₜ⋅Xᵗ.
type Polynomial struct {
	coefficients []*curve.Scalar
}

// NewPolynomial generates a Polynomial f(X) = secret + a₁⋅X + … + aₜ⋅Xᵗ,
// with coefficients in ℤₙ, and degree t.
func NewPolynomial(rand io.Reader, degree int, constant *curve.Scalar) *Polynomial {
	var polynomial Polynomial
	polynomial.coefficients = make([]*curve.Scalar, degree+1)

	// if the constant is nil, we interpret it as 0.
	if constant == nil {
		constant = curve.NewScalar()
	}
	polynomial.coefficients[0] = curve.NewScalar().Set(constant)

	for i := 1; i <= degree; i++ {
		polynomial.coefficients[i] = sample.Scalar(rand)
	}

	return &polynomial
}

// Evaluate evaluates a polynomial in a given variable index
// We use Horner's method: https://en.wikipedia.org/wiki/Horner%27s_method
func (p *Polynomial) Evaluate(index *curve.Scalar) *curve.Scalar {
	if index.IsZero() {
		panic("attempt to leak secret")
	}

	result := curve.NewScalar()
	// reverse order
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		// bₙ₋₁ = bₙ * x + aₙ₋₁
		result.MultiplyAdd(result, index, p.coefficients[i])
	}
	return result
}

// Constant returns a reference to the constant coefficient of the polynomial.
func (p *Polynomial) Constant() *curve.Scalar {
	return p.coefficients[0]
}

// Degree is the highest power of the Polynomial.
func (p *Polynomial) Degree() int {
	return len(p.coefficients) - 1
}

// Erase overwrites every coefficient with zero.
func (p *Polynomial) Erase() {
	for _, c := range p.coefficients {
		c.Zero()
	}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Polynomial) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(p.coefficients)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Polynomial) UnmarshalBinary(data []byte) error {
	var coefficients []*curve.Scalar
	if err := cbor.Unmarshal(data, &coefficients); err != nil {
		return err
	}
	if len(coefficients) == 0 {
		return errors.New("polynomial: no coefficients")
	}
	p.coefficients = coefficients
	return nil
}
