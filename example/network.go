package main

import (
	"context"
	"errors"

	"github.com/secomlib/privrec/pkg/protocol"
	"github.com/secomlib/privrec/protocols/comparison"
	"golang.org/x/sync/errgroup"
)

// Connect serves client over an in-memory pipe, sets the other end as the peer of s,
// and runs f. The pipe is closed once f returns.
func Connect(ctx context.Context, s *comparison.Server, client *comparison.Client, f func(context.Context) error) error {
	serverSide, clientSide := protocol.Pipe()
	remote := comparison.NewRemotePeer(ctx, serverSide, s.Paillier(), s.DGK(), comparison.WithLogger(s.Log))
	s.SetPeer(remote)
	defer s.SetPeer(nil)

	var g errgroup.Group
	g.Go(func() error {
		if err := comparison.Serve(ctx, clientSide, client); !errors.Is(err, protocol.ErrClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer remote.Close()
		return f(ctx)
	})
	return g.Wait()
}
