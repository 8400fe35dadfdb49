// Package sign implements the FROST signing protocol of Figure 3 in the Frost paper:
//
//	https://eprint.iacr.org/2020/852.pdf
//
// The signatures produced are BIP-340 Schnorr signatures, valid under the
// x-only group key produced by keygen, optionally tweaked as in BIP-341.
//
// Unlike the version of the protocol without a signature aggregator, the
// commitments of every signer are bundled by the aggregator into a
// SigningPackage, which is then given to each signer in the second round.
package sign

import (
	"fmt"

	"github.com/taurusgroup/frost-coordinator/pkg/hash"
	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
)

// protocolID separates the hashes of this protocol from any other.
const protocolID = "frost/sign-taproot"

// Nonces are the single use secrets a signer creates in round 1.
//
// They must never be used for more than one signature share.
type Nonces struct {
	// Hiding is dᵢ.
	Hiding *curve.Scalar
	// Binding is eᵢ.
	Binding *curve.Scalar
}

// Zero erases the nonces.
func (n *Nonces) Zero() {
	if n == nil {
		return
	}
	if n.Hiding != nil {
		n.Hiding.Zero()
	}
	if n.Binding != nil {
		n.Binding.Zero()
	}
}

// Commitments are the public counterpart of a signer's Nonces.
type Commitments struct {
	ID party.ID
	// Hiding is Dᵢ = dᵢ⋅G.
	Hiding *curve.Point
	// Binding is Eᵢ = eᵢ⋅G.
	Binding *curve.Point
}

func (c *Commitments) validate(id party.ID) error {
	if c == nil || c.Hiding == nil || c.Binding == nil {
		return fmt.Errorf("sign: incomplete commitments for %s", id)
	}
	if c.ID != id {
		return fmt.Errorf("sign: commitments indexed by %s belong to %s", id, c.ID)
	}
	// 3. "[...] checks Dₗ, Eₗ in Gˣ for each commitment in B, aborting if
	// either check fails."
	if c.Hiding.IsIdentity() || c.Binding.IsIdentity() {
		return fmt.Errorf("sign: nonce commitment of %s is the identity point", id)
	}
	return nil
}

// SigningPackage is the bundle B the aggregator sends to every chosen signer.
type SigningPackage struct {
	// Message is signed as is. BIP-340 allows messages of any length, though
	// most callers sign a 32 byte digest.
	Message []byte
	// Commitments of every signer in the signing set.
	Commitments map[party.ID]*Commitments
	// Tweak is the taproot tweak to apply to the group key, or nil for the untweaked key.
	Tweak []byte
}

// Signers returns the sorted signing set.
func (p *SigningPackage) Signers() party.IDSlice {
	return party.FromKeys(p.Commitments)
}

// Digest identifies the package: two packages with the same digest have the
// same message, tweak and commitments.
func (p *SigningPackage) Digest() []byte {
	h := hash.New(protocolID + "/package")
	_ = h.WriteAny(p.Message, p.Tweak)
	for _, l := range p.Signers() {
		c := p.Commitments[l]
		if c == nil || c.Hiding == nil || c.Binding == nil {
			_ = h.WriteAny(l, "incomplete")
			continue
		}
		_ = h.WriteAny(l, c.Hiding, c.Binding)
	}
	return h.Sum()
}

// SignatureShare is zᵢ, the response of a single signer.
type SignatureShare struct {
	ID party.ID
	Z  *curve.Scalar
}
