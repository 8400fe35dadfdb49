package sign

import (
	"io"

	"github.com/taurusgroup/frost-coordinator/pkg/math/sample"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
)

// Commit is the preprocessing stage of Figure 2, done for a single signature.
//
// "Each Pᵢ samples dᵢ, eᵢ <-$ Z/(q) and derives Dᵢ = dᵢ * G, Eᵢ = eᵢ * G."
//
// The nonces must be kept by the signer until its share is produced, and the
// commitments are sent to the aggregator.
func Commit(rand io.Reader, id party.ID) (*Nonces, *Commitments) {
	d_i, D_i := sample.ScalarPointPair(rand)
	e_i, E_i := sample.ScalarPointPair(rand)
	return &Nonces{Hiding: d_i, Binding: e_i}, &Commitments{ID: id, Hiding: D_i, Binding: E_i}
}
