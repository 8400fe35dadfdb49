// Package keygen implements the FROST distributed key generation, as in
// Figure 1 of the Frost paper:
//
//	https://eprint.iacr.org/2020/852.pdf
//
// The resulting keys follow the BIP-340 convention: the group public key
// always has an even y coordinate, and the shares are adjusted accordingly.
//
// Each round is a pure function of the previous round's secret state and of
// the packages received from the other participants. Persisting that state
// between rounds is up to the caller.
package keygen

import (
	"fmt"

	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/math/polynomial"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
)

// protocolID separates the hashes of this protocol from any other.
const protocolID = "frost/keygen-taproot"

// Proof is a Schnorr proof of knowledge of the constant term of a polynomial.
type Proof struct {
	// R = k⋅G, the commitment of the prover.
	R *curve.Point
	// Mu = k + a₀⋅c, the response of the prover.
	Mu *curve.Scalar
}

// Round1Package is broadcast by every participant after round 1.
type Round1Package struct {
	// ID of the sender.
	ID party.ID
	// Commitment is Φᵢ = fᵢ(X)⋅G, the Feldman commitment to the sender's polynomial.
	Commitment *polynomial.Exponent
	// Proof is σᵢ, the proof of knowledge of aᵢ₀.
	Proof *Proof
	// EncryptionKey is the point to which round 2 shares for the sender are encrypted.
	EncryptionKey *curve.Point
}

// Round1Secret is the state a participant must keep between round 1 and round 2.
type Round1Secret struct {
	ID           party.ID
	Participants party.IDSlice
	Threshold    int
	// Context binds the ceremony, so that proofs can't be replayed across ceremonies.
	Context []byte
	// Polynomial is fᵢ, used to share this participant's contribution to the secret.
	Polynomial *polynomial.Polynomial
	// EncryptionKey is the secret scalar behind Round1Package.EncryptionKey.
	EncryptionKey *curve.Scalar
}

// Round2Package carries the encrypted share fᵢ(l) from participant i to participant l.
type Round2Package struct {
	From       party.ID
	To         party.ID
	Ciphertext []byte
}

// Round2Secret is the state a participant must keep between round 2 and finalization.
type Round2Secret struct {
	ID           party.ID
	Participants party.IDSlice
	Threshold    int
	Context      []byte
	// SelfShare is fᵢ(i), the share of our own polynomial we keep.
	SelfShare *curve.Scalar
	// EncryptionKey is needed to decrypt the shares sent to us.
	EncryptionKey *curve.Scalar
	// Commitments holds Φₗ for every participant l, ourselves included.
	Commitments map[party.ID]*polynomial.Exponent
	// EncryptionKeys holds the encryption point of every participant.
	EncryptionKeys map[party.ID]*curve.Point
}

// validateParameters checks that selfID belongs to a valid participant set,
// and that the threshold is achievable.
//
// threshold is the number of participants required to sign, so the
// polynomials have degree threshold - 1.
func validateParameters(selfID party.ID, participants party.IDSlice, threshold int) error {
	if err := participants.Valid(); err != nil {
		return err
	}
	if !participants.Contains(selfID) {
		return fmt.Errorf("keygen: %s is not a participant", selfID)
	}
	if threshold < 1 || threshold > len(participants) {
		return fmt.Errorf("keygen: invalid threshold %d for %d participants", threshold, len(participants))
	}
	return nil
}
