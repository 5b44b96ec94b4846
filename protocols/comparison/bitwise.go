package comparison

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/cronokirby/saferith"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/secomlib/privrec/pkg/dgk"
	"github.com/secomlib/privrec/pkg/math/sample"
	"github.com/secomlib/privrec/pkg/paillier"
	"github.com/secomlib/privrec/pkg/pool"
)

// DGKComparison is the server side of the bitwise comparison of Damgård, Geisler
// and Krøigaard, in the variant of Veugen. Given the bits of r̂ and DGK encryptions
// of the bits of d held by the peer, it returns a Paillier encryption of t = (d < r̂),
// with neither party learning t.
type DGKComparison struct {
	l        int
	paillier *paillier.PublicKey
	dgk      *dgk.PublicKey
	rand     io.Reader
	peer     atomic.Pointer[checkerRef]

	Log zerolog.Logger
}

func newDGKComparison(l int, pk *paillier.PublicKey, dgkPK *dgk.PublicKey, rand io.Reader) *DGKComparison {
	return &DGKComparison{
		l:        l,
		paillier: pk,
		dgk:      dgkPK,
		rand:     pool.NewLockedReader(rand),
		Log:      zerolog.Nop(),
	}
}

// SetPeer installs the party answering zero checks. nil detaches it.
func (c *DGKComparison) SetPeer(z ZeroChecker) {
	if z == nil {
		c.peer.Store(nil)
		return
	}
	c.peer.Store(&checkerRef{z})
}

func (c *DGKComparison) checker() ZeroChecker {
	ref := c.peer.Load()
	if ref == nil {
		return nil
	}
	return ref.ZeroChecker
}

// Compare runs the bitwise comparison with the installed peer.
func (c *DGKComparison) Compare(ctx context.Context, b *BitwiseInput) (*paillier.Ciphertext, error) {
	z := c.checker()
	if z == nil {
		return nil, &Error{Step: "bitwise", Kind: ErrPeerUnavailable, Err: errors.New("no zero checker set")}
	}
	return c.compare(ctx, z, b)
}

// BitwiseInput holds the operands of one bitwise comparison.
// All slices are least significant bit first and of length l.
type BitwiseInput struct {
	Session uuid.UUID
	// RBits are the bits of r̂ in the clear and EncryptedRBits their DGK encryptions.
	RBits          []uint
	EncryptedRBits []*dgk.Ciphertext
	// DBits are the DGK encryptions of the bits of d.
	DBits []*dgk.Ciphertext
}

func (c *DGKComparison) compare(ctx context.Context, z ZeroChecker, in *BitwiseInput) (*paillier.Ciphertext, error) {
	l := c.l
	if len(in.RBits) != l || len(in.EncryptedRBits) != l || len(in.DBits) != l {
		return nil, &Error{Step: "bitwise", Kind: ErrCryptoOperationFailed, Err: fmt.Errorf("expected %d bits", l)}
	}
	if !c.dgk.ValidateCiphertexts(in.DBits...) || !c.dgk.ValidateCiphertexts(in.EncryptedRBits...) {
		return nil, &Error{Step: "bitwise", Kind: ErrCryptoOperationFailed, Err: dgk.ErrInvalidCiphertext}
	}

	deltaS, err := sample.Bit(c.rand)
	if err != nil {
		return nil, &Error{Step: "bitwise", Kind: ErrCryptoOperationFailed, Err: err}
	}
	// s = 1 - 2δ_S
	s := int64(1) - 2*int64(deltaS)

	// w_j = d_j ⊕ r_j, and suffix = Σ_{j>i} w_j while walking down from the top bit
	w := make([]*dgk.Ciphertext, l)
	for j := 0; j < l; j++ {
		w[j] = in.DBits[j].Clone()
		if in.RBits[j] == 1 {
			w[j].Negate(c.dgk).AddPlain(c.dgk, 1)
		}
	}

	blinded := make([]*dgk.Ciphertext, 0, l+1)
	var suffix *dgk.Ciphertext
	for i := l - 1; i >= 0; i-- {
		// c_i = d_i - r_i + s + 3⋅Σ_{j>i} w_j
		ci := in.DBits[i].Clone().Sub(c.dgk, in.EncryptedRBits[i]).AddPlain(c.dgk, s)
		if suffix != nil {
			ci.Add(c.dgk, suffix.Clone().Mul(c.dgk, 3))
			suffix.Add(c.dgk, w[i])
		} else {
			suffix = w[i].Clone()
		}
		blinded = append(blinded, ci)
	}
	// c₋₁ = δ'_S + Σ_j w_j with δ'_S = 1 - δ_S, zero only if d = r̂ and δ_S = 1
	blinded = append(blinded, suffix.AddPlain(c.dgk, 1-int64(deltaS)))

	for _, ci := range blinded {
		rho, err := sample.Uint64n(c.rand, c.dgk.U()-1)
		if err != nil {
			return nil, &Error{Step: "bitwise", Kind: ErrCryptoOperationFailed, Err: err}
		}
		ci.Mul(c.dgk, rho+1)
		if err = ci.Randomize(c.dgk, c.rand); err != nil {
			return nil, &Error{Step: "bitwise", Kind: ErrCryptoOperationFailed, Err: err}
		}
	}
	perm, err := sample.Permutation(c.rand, len(blinded))
	if err != nil {
		return nil, &Error{Step: "bitwise", Kind: ErrCryptoOperationFailed, Err: err}
	}
	shuffled := make([]*dgk.Ciphertext, len(blinded))
	for i, j := range perm {
		shuffled[i] = blinded[j]
	}

	c.Log.Debug().Stringer("session", in.Session).Int("values", len(shuffled)).Msg("zero check")
	deltaC, err := z.ZeroCheck(ctx, &BlindedBits{Session: in.Session, C: shuffled})
	if err != nil {
		return nil, wrap("zero check", err, ErrPeerUnavailable)
	}
	if !c.paillier.ValidateCiphertexts(deltaC) {
		return nil, &Error{Step: "zero check", Kind: ErrCryptoOperationFailed, Err: paillier.ErrInvalidCiphertext}
	}

	// t = δ_C if δ_S = 0, 1 - δ_C otherwise
	t := deltaC.Clone()
	if deltaS == 1 {
		t.Negate(c.paillier).AddPlain(c.paillier, new(saferith.Int).SetUint64(1))
	}
	return t, nil
}
