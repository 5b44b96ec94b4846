package comparison

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/secomlib/privrec/pkg/dgk"
	"github.com/secomlib/privrec/pkg/paillier"
	"github.com/secomlib/privrec/pkg/protocol"
	"golang.org/x/sync/errgroup"
)

const (
	typeUnblind   protocol.Type = "comparison/unblind"
	typeZeroCheck protocol.Type = "comparison/zero-check"
	typeError     protocol.Type = "comparison/error"
)

// errorReply reports a failed request, with the kind of the failure.
type errorReply struct {
	Request protocol.Type
	Kind    string
	Message string
}

type zeroCheckReply struct {
	DeltaC *paillier.Ciphertext
}

type pendingKey struct {
	ssid uuid.UUID
	t    protocol.Type
}

// RemotePeer is a Peer reached over a protocol.Conn, with a Client served on the other end.
// Concurrent comparisons share the connection, replies are matched by session and type.
type RemotePeer struct {
	conn protocol.Conn
	key  []byte

	mtx     sync.Mutex
	pending map[pendingKey]chan *protocol.Message
	err     error
	done    chan struct{}

	Log zerolog.Logger
}

// NewRemotePeer starts reading replies from conn until it fails or ctx is done.
func NewRemotePeer(ctx context.Context, conn protocol.Conn, pk *paillier.PublicKey, dgkPK *dgk.PublicKey, opts ...Option) *RemotePeer {
	o := newOptions(opts)
	p := &RemotePeer{
		conn:    conn,
		key:     KeyFingerprint(pk, dgkPK),
		pending: make(map[pendingKey]chan *protocol.Message),
		done:    make(chan struct{}),
		Log:     o.log.With().Str("protocol", "comparison").Str("role", "remote").Logger(),
	}
	go p.receive(ctx)
	return p
}

func (p *RemotePeer) receive(ctx context.Context) {
	for {
		msg, err := p.conn.Receive(ctx)
		if err != nil {
			p.mtx.Lock()
			p.err = err
			close(p.done)
			p.mtx.Unlock()
			p.Log.Debug().Err(err).Msg("connection done")
			return
		}
		k := pendingKey{ssid: msg.SSID, t: msg.Type}
		if msg.Type == typeError {
			var reply errorReply
			if err = msg.Decode(&reply); err == nil {
				k.t = reply.Request
			}
		}
		p.mtx.Lock()
		ch, ok := p.pending[k]
		delete(p.pending, k)
		p.mtx.Unlock()
		if !ok {
			p.Log.Warn().Stringer("session", msg.SSID).Str("type", string(msg.Type)).Msg("unexpected reply")
			continue
		}
		ch <- msg
	}
}

// Close closes the connection.
func (p *RemotePeer) Close() error {
	return p.conn.Close()
}

// call sends a request and waits for its reply.
func (p *RemotePeer) call(ctx context.Context, ssid uuid.UUID, t protocol.Type, req, reply interface{}) error {
	msg, err := protocol.NewMessage(ssid, t, p.key, req)
	if err != nil {
		return &Error{Step: string(t), Kind: ErrCryptoOperationFailed, Err: err}
	}
	k := pendingKey{ssid: ssid, t: t}
	ch := make(chan *protocol.Message, 1)

	p.mtx.Lock()
	if p.err != nil {
		err = p.err
		p.mtx.Unlock()
		return &Error{Step: string(t), Kind: ErrPeerUnavailable, Err: err}
	}
	if _, ok := p.pending[k]; ok {
		p.mtx.Unlock()
		return &Error{Step: string(t), Kind: ErrCryptoOperationFailed, Err: errors.New("duplicate request")}
	}
	p.pending[k] = ch
	p.mtx.Unlock()

	defer func() {
		p.mtx.Lock()
		delete(p.pending, k)
		p.mtx.Unlock()
	}()

	if err = p.conn.Send(ctx, msg); err != nil {
		return &Error{Step: string(t), Kind: kindOf(err, ErrPeerUnavailable), Err: err}
	}

	var resp *protocol.Message
	select {
	case resp = <-ch:
	case <-p.done:
		return &Error{Step: string(t), Kind: ErrPeerUnavailable, Err: p.err}
	case <-ctx.Done():
		return &Error{Step: string(t), Err: ctx.Err()}
	}

	if resp.Type == typeError {
		var e errorReply
		if err = resp.Decode(&e); err != nil {
			return &Error{Step: string(t), Kind: ErrPeerUnavailable, Err: err}
		}
		return &Error{Step: string(t), Kind: kindFromName(e.Kind), Err: fmt.Errorf("peer: %s", e.Message)}
	}
	if !bytes.Equal(resp.Key, p.key) {
		return &Error{Step: string(t), Kind: ErrCryptoOperationFailed, Err: errors.New("reply for different keys")}
	}
	if err = resp.Decode(reply); err != nil {
		return &Error{Step: string(t), Kind: ErrCryptoOperationFailed, Err: err}
	}
	return nil
}

// Unblind implements Peer.
func (p *RemotePeer) Unblind(ctx context.Context, m *MaskedValue) (*MaskedShares, error) {
	var shares MaskedShares
	if err := p.call(ctx, m.Session, typeUnblind, m, &shares); err != nil {
		return nil, err
	}
	return &shares, nil
}

// ZeroCheck implements ZeroChecker.
func (p *RemotePeer) ZeroCheck(ctx context.Context, b *BlindedBits) (*paillier.Ciphertext, error) {
	var reply zeroCheckReply
	if err := p.call(ctx, b.Session, typeZeroCheck, b, &reply); err != nil {
		return nil, err
	}
	return reply.DeltaC, nil
}

// Serve answers the requests arriving on conn with client, until conn fails or ctx is done.
// Requests are handled concurrently. It returns the error that stopped it.
func Serve(ctx context.Context, conn protocol.Conn, client *Client) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			msg, err := conn.Receive(ctx)
			if err != nil {
				return err
			}
			g.Go(func() error {
				reply := handle(ctx, client, msg)
				if err := conn.Send(ctx, reply); err != nil {
					client.Log.Warn().Err(err).Stringer("session", msg.SSID).Msg("failed to send reply")
				}
				return nil
			})
		}
	})
	return g.Wait()
}

func handle(ctx context.Context, client *Client, msg *protocol.Message) *protocol.Message {
	reply, err := dispatch(ctx, client, msg)
	if err == nil {
		var out *protocol.Message
		if out, err = protocol.NewMessage(msg.SSID, msg.Type, client.Key(), reply); err == nil {
			return out
		}
	}
	client.Log.Warn().Err(err).Stringer("session", msg.SSID).Str("type", string(msg.Type)).Msg("request failed")
	out, _ := protocol.NewMessage(msg.SSID, typeError, client.Key(), &errorReply{
		Request: msg.Type,
		Kind:    kindName(kindOf(err, ErrCryptoOperationFailed)),
		Message: err.Error(),
	})
	return out
}

func dispatch(ctx context.Context, client *Client, msg *protocol.Message) (interface{}, error) {
	if !bytes.Equal(msg.Key, client.Key()) {
		return nil, &Error{Step: string(msg.Type), Kind: ErrCryptoOperationFailed, Err: errors.New("request for different keys")}
	}
	switch msg.Type {
	case typeUnblind:
		var m MaskedValue
		if err := msg.Decode(&m); err != nil {
			return nil, &Error{Step: string(msg.Type), Kind: ErrCryptoOperationFailed, Err: err}
		}
		m.Session = msg.SSID
		return client.Unblind(ctx, &m)
	case typeZeroCheck:
		var b BlindedBits
		if err := msg.Decode(&b); err != nil {
			return nil, &Error{Step: string(msg.Type), Kind: ErrCryptoOperationFailed, Err: err}
		}
		b.Session = msg.SSID
		deltaC, err := client.ZeroCheck(ctx, &b)
		if err != nil {
			return nil, err
		}
		return &zeroCheckReply{DeltaC: deltaC}, nil
	}
	return nil, &Error{Step: "serve", Kind: ErrCryptoOperationFailed, Err: fmt.Errorf("unknown request type %q", msg.Type)}
}
