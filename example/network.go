package main

import (
	"fmt"
	"net"

	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/storage"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/signer"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/store"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/transport"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Network is a group of signers served over loopback gRPC.
type Network struct {
	servers []*grpc.Server
	clients map[party.ID]*transport.Client
}

// NewNetwork starts one signer per id, with in-memory storage.
func NewNetwork(ids party.IDSlice, threshold int, logger *zap.Logger) (*Network, error) {
	n := &Network{clients: make(map[party.ID]*transport.Client, len(ids))}
	for _, id := range ids {
		b := storage.NewMemory()
		s, err := signer.New(id, ids, threshold, store.NewSignerKeyStore(b), store.NewSignerSessionStore(b),
			signer.WithLogger(logger.Named("signer-"+id.String())))
		if err != nil {
			n.Close()
			return nil, err
		}

		lis, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("listen: %w", err)
		}
		server := grpc.NewServer()
		transport.NewServer(s).Register(server)
		go func() {
			_ = server.Serve(lis)
		}()
		n.servers = append(n.servers, server)

		client, err := transport.NewClient(id, []string{lis.Addr().String()})
		if err != nil {
			n.Close()
			return nil, err
		}
		n.clients[id] = client
	}
	return n, nil
}

// Clients returns a client for every signer.
func (n *Network) Clients() map[party.ID]frost.SignerClient {
	clients := make(map[party.ID]frost.SignerClient, len(n.clients))
	for id, c := range n.clients {
		clients[id] = c
	}
	return clients
}

// Close stops every signer.
func (n *Network) Close() {
	for _, c := range n.clients {
		_ = c.Close()
	}
	for _, s := range n.servers {
		s.Stop()
	}
}
