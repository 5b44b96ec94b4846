package comparison

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/cronokirby/saferith"
	"github.com/rs/zerolog"
	"github.com/secomlib/privrec/pkg/dgk"
	"github.com/secomlib/privrec/pkg/math/arith"
	"github.com/secomlib/privrec/pkg/paillier"
	"github.com/secomlib/privrec/pkg/pool"
)

var errClientClosed = errors.New("client closed")

// Client is the Peer holding both secret keys. It is safe for concurrent use.
type Client struct {
	paillier *paillier.SecretKey
	dgk      *dgk.SecretKey
	rand     io.Reader
	key      []byte
	closed   atomic.Bool

	Log zerolog.Logger
}

// NewClient returns a Client decrypting with the given keys.
// Only WithLogger and WithRand apply to a Client.
func NewClient(sk *paillier.SecretKey, dgkSK *dgk.SecretKey, opts ...Option) *Client {
	o := newOptions(opts)
	return &Client{
		paillier: sk,
		dgk:      dgkSK,
		rand:     pool.NewLockedReader(o.rand),
		key:      KeyFingerprint(sk.PublicKey, dgkSK.PublicKey),
		Log:      o.log.With().Str("protocol", "comparison").Str("role", "client").Logger(),
	}
}

// Close marks the client as gone. Later calls fail with ErrPeerUnavailable.
func (c *Client) Close() {
	c.closed.Store(true)
}

// Key returns the fingerprint of the client's public keys.
func (c *Client) Key() []byte {
	return c.key
}

// Unblind decrypts z and returns [⌊z / 2ˡ⌋] and the DGK encrypted bits of z mod 2ˡ.
func (c *Client) Unblind(ctx context.Context, m *MaskedValue) (*MaskedShares, error) {
	if c.closed.Load() {
		return nil, &Error{Step: "unblind", Kind: ErrPeerUnavailable, Err: errClientClosed}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Step: "unblind", Err: err}
	}
	if m == nil || m.L < 1 || uint64(3*m.L+3) >= c.dgk.U() {
		return nil, &Error{Step: "unblind", Kind: ErrConfigurationInvalid, Err: errors.New("bit length does not fit the DGK key")}
	}
	z, err := c.paillier.DecNat(m.Z)
	if err != nil {
		return nil, &Error{Step: "unblind", Kind: ErrCryptoOperationFailed, Err: err}
	}
	low, high := arith.Split(z, m.L)

	encHigh, _, err := c.paillier.EncFrom(c.rand, new(saferith.Int).SetNat(high))
	if err != nil {
		return nil, &Error{Step: "unblind", Kind: ErrCryptoOperationFailed, Err: err}
	}
	bits := arith.Bits(low, m.L)
	encBits := make([]*dgk.Ciphertext, len(bits))
	for i, b := range bits {
		if encBits[i], err = c.dgk.EncFrom(c.rand, uint64(b)); err != nil {
			return nil, &Error{Step: "unblind", Kind: ErrCryptoOperationFailed, Err: fmt.Errorf("bit %d: %w", i, err)}
		}
	}
	c.Log.Debug().Stringer("session", m.Session).Msg("unblinded")
	return &MaskedShares{High: encHigh, Bits: encBits}, nil
}

// ZeroCheck returns [1] if one of the values encrypts 0 under DGK, and [0] otherwise.
func (c *Client) ZeroCheck(ctx context.Context, b *BlindedBits) (*paillier.Ciphertext, error) {
	if c.closed.Load() {
		return nil, &Error{Step: "zero check", Kind: ErrPeerUnavailable, Err: errClientClosed}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Step: "zero check", Err: err}
	}
	if b == nil || len(b.C) == 0 {
		return nil, &Error{Step: "zero check", Kind: ErrCryptoOperationFailed, Err: errors.New("no values")}
	}
	var found uint64
	for _, ct := range b.C {
		zero, err := c.dgk.IsZero(ct)
		if err != nil {
			return nil, &Error{Step: "zero check", Kind: ErrCryptoOperationFailed, Err: err}
		}
		// every value is tested, whatever the outcome
		if zero {
			found = 1
		}
	}
	deltaC, _, err := c.paillier.EncFrom(c.rand, new(saferith.Int).SetUint64(found))
	if err != nil {
		return nil, &Error{Step: "zero check", Kind: ErrCryptoOperationFailed, Err: err}
	}
	c.Log.Debug().Stringer("session", b.Session).Int("values", len(b.C)).Msg("zero checked")
	return deltaC, nil
}
