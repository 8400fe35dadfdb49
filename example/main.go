// Command example runs a 2-of-3 FROST group on loopback, creates a key and
// signs with it, with and without a taproot tweak.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/storage"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/aggregator"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/store"
)

func All(ctx context.Context) error {
	logger, err := log.New("info", log.FormatConsole)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ids := party.IDSlice{1, 2, 3}
	threshold := 2
	n, err := NewNetwork(ids, threshold, logger)
	if err != nil {
		return err
	}
	defer n.Close()

	b := storage.NewMemory()
	agg, err := aggregator.New(threshold, n.Clients(),
		store.NewAggregatorKeyStore(b), store.NewAggregatorSessionStore(b),
		aggregator.WithLogger(logger.Named("aggregator")))
	if err != nil {
		return err
	}

	entity := frost.NewEntityID()
	if _, err = FrostKeygen(ctx, agg, entity, logger); err != nil {
		return err
	}
	if err = FrostSign(ctx, agg, entity, []byte("hello"), nil, logger); err != nil {
		return err
	}

	tweak := make([]byte, 32)
	if _, err = rand.Read(tweak); err != nil {
		return err
	}
	return FrostSignTweaked(ctx, agg, entity, []byte("hello"), tweak, logger)
}

func main() {
	if err := All(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
