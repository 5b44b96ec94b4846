package comparison

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/cronokirby/saferith"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/secomlib/privrec/pkg/dgk"
	"github.com/secomlib/privrec/pkg/math/arith"
	"github.com/secomlib/privrec/pkg/math/sample"
	"github.com/secomlib/privrec/pkg/paillier"
	"github.com/secomlib/privrec/pkg/pool"
	"github.com/secomlib/privrec/pkg/randomizer"
)

// Server compares values it only holds encrypted under the peer's Paillier key.
//
// Each comparison consumes one BlindingFactor from a cache refilled in the
// background, so that the interactive part only waits on the peer.
// A Server is safe for concurrent use.
type Server struct {
	cfg      Config
	paillier *paillier.PublicKey
	dgk      *dgk.PublicKey
	rand     io.Reader

	// encryptedTwoPowL = [2ˡ]
	encryptedTwoPowL *paillier.Ciphertext
	// threshold = [δ], nil unless the server was created with a threshold
	threshold *paillier.Ciphertext

	cache      *randomizer.Cache[*BlindingFactor]
	comparison *DGKComparison
	peer       atomic.Pointer[peerRef]

	Log zerolog.Logger
}

type options struct {
	log  zerolog.Logger
	pl   *pool.Pool
	rand io.Reader
}

// Option configures a Server or a Client.
type Option func(*options)

// WithLogger sets the logger, which defaults to zerolog.Nop().
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithPool generates blinding factors on pl. The pool must outlive the Server.
func WithPool(pl *pool.Pool) Option {
	return func(o *options) { o.pl = pl }
}

// WithRand replaces crypto/rand.Reader as the source of randomness.
// r is wrapped once in a pool.LockedReader shared by everything the Server draws;
// pass the same LockedReader to a Server and a Client to share one lock between them.
func WithRand(r io.Reader) Option {
	return func(o *options) { o.rand = r }
}

func newOptions(opts []Option) *options {
	o := &options{
		log:  zerolog.Nop(),
		rand: rand.Reader,
	}
	for _, opt := range opts {
		opt(o)
	}
	// every consumer of o.rand shares this lock
	o.rand = pool.NewLockedReader(o.rand)
	return o
}

// NewServer returns a Server comparing two encrypted values.
func NewServer(cfg Config, pk *paillier.PublicKey, dgkPK *dgk.PublicKey, opts ...Option) (*Server, error) {
	return newServer(cfg, pk, dgkPK, nil, newOptions(opts))
}

// NewThresholdServer returns a Server that can also compare an encrypted value with a
// fixed threshold δ ∈ [0, 2ˡ).
func NewThresholdServer(cfg Config, pk *paillier.PublicKey, dgkPK *dgk.PublicKey, threshold uint64, opts ...Option) (*Server, error) {
	if err := cfg.Validate(pk, dgkPK); err != nil {
		return nil, &Error{Step: "setup", Kind: ErrConfigurationInvalid, Err: err}
	}
	if err := cfg.validateThreshold(threshold); err != nil {
		return nil, &Error{Step: "setup", Kind: ErrConfigurationInvalid, Err: err}
	}
	o := newOptions(opts)
	encThreshold, _, err := pk.EncFrom(o.rand, new(saferith.Int).SetUint64(threshold))
	if err != nil {
		return nil, &Error{Step: "setup", Kind: ErrConfigurationInvalid, Err: err}
	}
	return newServer(cfg, pk, dgkPK, encThreshold, o)
}

// NewThresholdServerEncrypted is NewThresholdServer for a threshold given as [δ].
func NewThresholdServerEncrypted(cfg Config, pk *paillier.PublicKey, dgkPK *dgk.PublicKey, threshold *paillier.Ciphertext, opts ...Option) (*Server, error) {
	if pk == nil || !pk.ValidateCiphertexts(threshold) {
		return nil, &Error{Step: "setup", Kind: ErrConfigurationInvalid, Err: errors.New("invalid encrypted threshold")}
	}
	return newServer(cfg, pk, dgkPK, threshold, newOptions(opts))
}

func newServer(cfg Config, pk *paillier.PublicKey, dgkPK *dgk.PublicKey, threshold *paillier.Ciphertext, o *options) (*Server, error) {
	if err := cfg.Validate(pk, dgkPK); err != nil {
		return nil, &Error{Step: "setup", Kind: ErrConfigurationInvalid, Err: err}
	}

	encTwoPowL, _, err := pk.EncFrom(o.rand, new(saferith.Int).SetNat(arith.TwoPow(cfg.L)))
	if err != nil {
		return nil, &Error{Step: "setup", Kind: ErrConfigurationInvalid, Err: err}
	}

	s := &Server{
		cfg:              cfg,
		paillier:         pk,
		dgk:              dgkPK,
		rand:             o.rand,
		threshold:        threshold,
		encryptedTwoPowL: encTwoPowL,
		comparison:       newDGKComparison(cfg.L, pk, dgkPK, o.rand),
		Log:              o.log.With().Str("protocol", "comparison").Str("role", "server").Logger(),
	}
	s.comparison.Log = s.Log

	container := NewBlindingFactorContainer(cfg.L, cfg.S, pk, dgkPK, o.rand)
	s.cache, err = randomizer.New[*BlindingFactor](cfg.cache(), container, o.pl)
	if err != nil {
		return nil, &Error{Step: "setup", Kind: ErrConfigurationInvalid, Err: err}
	}
	s.Log.Debug().Int("l", cfg.L).Int("s", cfg.S).Bool("threshold", threshold != nil).Msg("server ready")
	return s, nil
}

// SetPeer installs the peer for this server and its bitwise comparison. nil detaches it.
// The server does not own the peer, and checks for it on every comparison.
func (s *Server) SetPeer(p Peer) {
	if p == nil {
		s.peer.Store(nil)
		s.comparison.SetPeer(nil)
		return
	}
	s.peer.Store(&peerRef{p})
	s.comparison.SetPeer(p)
}

// Paillier returns the key the compared values are encrypted under.
func (s *Server) Paillier() *paillier.PublicKey {
	return s.paillier
}

// DGK returns the key of the bitwise comparison.
func (s *Server) DGK() *dgk.PublicKey {
	return s.dgk
}

// ComparisonProtocol returns the bitwise comparison, so that its zero checks can
// be routed to a different peer than the one set with SetPeer.
func (s *Server) ComparisonProtocol() *DGKComparison {
	return s.comparison
}

// Close discards all blinding factors. Comparisons in flight fail with ErrRandomizerUnavailable.
func (s *Server) Close() {
	s.cache.Close()
}

// Compare returns [a ⩾ b], where a, b ∈ [0, 2ˡ).
func (s *Server) Compare(ctx context.Context, a, b *paillier.Ciphertext) (*paillier.Ciphertext, error) {
	return s.compare(ctx, a, b)
}

// CompareThreshold returns [v ⩾ δ], where v ∈ [0, 2ˡ) and δ is the threshold of the server.
func (s *Server) CompareThreshold(ctx context.Context, v *paillier.Ciphertext) (*paillier.Ciphertext, error) {
	if s.threshold == nil {
		return nil, &Error{Step: "input", Kind: ErrConfigurationInvalid, Err: errors.New("server has no threshold")}
	}
	return s.compare(ctx, v, s.threshold)
}

// compare runs one comparison of a with b.
func (s *Server) compare(ctx context.Context, a, b *paillier.Ciphertext) (*paillier.Ciphertext, error) {
	session := uuid.New()
	log := s.Log.With().Stringer("session", session).Logger()

	// both peers are resolved before anything is computed or consumed
	ref := s.peer.Load()
	checker := s.comparison.checker()
	if ref == nil || checker == nil {
		log.Warn().Msg("no peer")
		return nil, &Error{Step: "peer", Kind: ErrPeerUnavailable, Err: errors.New("no peer set")}
	}
	peer := ref.Peer

	if !s.paillier.ValidateCiphertexts(a, b) {
		return nil, &Error{Step: "input", Kind: ErrCryptoOperationFailed, Err: paillier.ErrInvalidCiphertext}
	}

	bf, err := s.cache.Pop(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("no blinding factor")
		return nil, wrap("randomizer", err, ErrRandomizerUnavailable)
	}
	// bf is dropped on every path below, it is never returned to the cache

	// [z] = [a - b + 2ˡ + r]
	z := a.Clone().Sub(s.paillier, b).Add(s.paillier, s.encryptedTwoPowL).Add(s.paillier, bf.EncryptedR)

	log.Debug().Msg("unblind")
	shares, err := peer.Unblind(ctx, &MaskedValue{Session: session, L: s.cfg.L, Z: z})
	if err != nil {
		log.Warn().Err(err).Msg("unblind failed")
		return nil, wrap("unblind", err, ErrPeerUnavailable)
	}
	if shares == nil || !s.paillier.ValidateCiphertexts(shares.High) {
		return nil, &Error{Step: "unblind", Kind: ErrCryptoOperationFailed, Err: paillier.ErrInvalidCiphertext}
	}

	// [t] = [d < r̂]
	t, err := s.comparison.compare(ctx, checker, &BitwiseInput{
		Session:        session,
		RBits:          bf.LowBits,
		EncryptedRBits: bf.EncryptedLowBits,
		DBits:          shares.Bits,
	})
	if err != nil {
		log.Warn().Err(err).Msg("bitwise comparison failed")
		return nil, err
	}

	// [⌊z / 2ˡ⌋ - ⌊r / 2ˡ⌋ - t] = [a ⩾ b]
	result := shares.High.Clone().Sub(s.paillier, bf.EncryptedHighPart).Sub(s.paillier, t)
	nonce, err := sample.TryUnitModN(s.rand, s.paillier.N())
	if err != nil {
		log.Warn().Err(err).Msg("rerandomization failed")
		return nil, &Error{Step: "result", Kind: ErrRandomizerUnavailable, Err: err}
	}
	result.Randomize(s.paillier, nonce)
	log.Debug().Msg("done")
	return result, nil
}

// String implements fmt.Stringer.
func (s *Server) String() string {
	return fmt.Sprintf("comparison server: l = %d, s = %d, threshold = %t", s.cfg.L, s.cfg.S, s.threshold != nil)
}
