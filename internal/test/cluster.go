// Package test provides an in-process cluster of signers and an aggregator,
// along with clients that inject faults, for use in tests.
package test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/storage"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/aggregator"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/signer"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/store"
)

// PartyIDs returns a party.IDSlice of size n, with ids 1 to n.
func PartyIDs(n int) party.IDSlice {
	ids := make(party.IDSlice, n)
	for i := range ids {
		ids[i] = party.ID(i + 1)
	}
	return ids
}

// Cluster is a set of in-memory signers, reachable through Clients.
type Cluster struct {
	Threshold int
	IDs       party.IDSlice
	Signers   map[party.ID]*signer.Signer
	// Clients starts out as the signers themselves, and may be replaced by
	// fault-injecting wrappers before calling NewAggregator.
	Clients map[party.ID]frost.SignerClient
	// Backend stores the aggregator's state.
	Backend storage.Backend
}

// NewCluster creates n signers with in-memory storage, threshold of which are needed to sign.
func NewCluster(t testing.TB, n, threshold int, opts ...signer.Option) *Cluster {
	ids := PartyIDs(n)
	c := &Cluster{
		Threshold: threshold,
		IDs:       ids,
		Signers:   make(map[party.ID]*signer.Signer, n),
		Clients:   make(map[party.ID]frost.SignerClient, n),
		Backend:   storage.NewMemory(),
	}
	for _, id := range ids {
		b := storage.NewMemory()
		s, err := signer.New(id, ids, threshold, store.NewSignerKeyStore(b), store.NewSignerSessionStore(b), opts...)
		require.NoError(t, err)
		c.Signers[id] = s
		c.Clients[id] = s
	}
	return c
}

// NewAggregator creates an aggregator talking to the cluster's current Clients.
func (c *Cluster) NewAggregator(t testing.TB, opts ...aggregator.Option) *aggregator.Aggregator {
	agg, err := aggregator.New(c.Threshold, c.Clients,
		store.NewAggregatorKeyStore(c.Backend), store.NewAggregatorSessionStore(c.Backend), opts...)
	require.NoError(t, err)
	return agg
}
