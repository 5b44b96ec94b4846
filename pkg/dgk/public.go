package dgk

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/secomlib/privrec/internal/hash"
	"github.com/secomlib/privrec/internal/params"
	"github.com/secomlib/privrec/pkg/math/sample"
)

// PublicKey is a DGK public key (n, g, h, u).
type PublicKey struct {
	n    *saferith.Modulus
	g, h *saferith.Nat
	// u is the prime plaintext modulus
	u    uint64
	uNat *saferith.Nat
	// t is the size of the secret subgroup orders, which sets the size of the random exponents
	t          int
	randomBits int
}

func newPublicKey(n, g, h *big.Int, u uint64, t int) *PublicKey {
	size := n.BitLen()
	randomBits := t * params.DGKRandomBits / params.DGKT
	return &PublicKey{
		n:          saferith.ModulusFromNat(new(saferith.Nat).SetBig(n, size)),
		g:          new(saferith.Nat).SetBig(g, size),
		h:          new(saferith.Nat).SetBig(h, size),
		u:          u,
		uNat:       new(saferith.Nat).SetUint64(u),
		t:          t,
		randomBits: randomBits,
	}
}

// N returns the public modulus.
func (pk *PublicKey) N() *saferith.Modulus {
	return pk.n
}

// U returns the size of the plaintext space.
func (pk *PublicKey) U() uint64 {
	return pk.u
}

// Enc returns an encryption of m ∈ [0, u) using crypto/rand.
func (pk *PublicKey) Enc(m uint64) (*Ciphertext, error) {
	return pk.EncFrom(rand.Reader, m)
}

// EncFrom returns gᵐ⋅hʳ (mod n), with r sampled from rand.
func (pk *PublicKey) EncFrom(rand io.Reader, m uint64) (*Ciphertext, error) {
	if m >= pk.u {
		return nil, ErrOutOfRange
	}
	r, err := sample.Bits(rand, pk.randomBits)
	if err != nil {
		return nil, err
	}
	c := new(saferith.Nat).Exp(pk.g, new(saferith.Nat).SetUint64(m), pk.n)
	hr := new(saferith.Nat).Exp(pk.h, r, pk.n)
	c.ModMul(c, hr, pk.n)
	return &Ciphertext{c: c}, nil
}

// reduce maps k ∈ ℤ to [0, u).
func (pk *PublicKey) reduce(k int64) uint64 {
	if k >= 0 {
		return uint64(k) % pk.u
	}
	neg := uint64(-k) % pk.u
	if neg == 0 {
		return 0
	}
	return pk.u - neg
}

// Equal returns true if both keys have the same modulus and generators.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	if other == nil {
		return false
	}
	_, eq, _ := pk.n.Cmp(other.n)
	return eq == 1 && pk.g.Eq(other.g) == 1 && pk.h.Eq(other.h) == 1 && pk.u == other.u
}

// ValidateCiphertexts checks that every ciphertext is a unit of ℤₙ.
func (pk *PublicKey) ValidateCiphertexts(cts ...*Ciphertext) bool {
	for _, ct := range cts {
		if ct == nil || ct.c == nil {
			return false
		}
		if _, _, lt := ct.c.CmpMod(pk.n); lt != 1 {
			return false
		}
		if ct.c.IsUnit(pk.n) != 1 {
			return false
		}
	}
	return true
}

// Fingerprint is a short digest identifying this key, used to bind messages to it.
func (pk *PublicKey) Fingerprint() []byte {
	return hash.New("dgk.PublicKey", pk.n, pk.g, pk.h, pk.u).Sum()
}
