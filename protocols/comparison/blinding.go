package comparison

import (
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/secomlib/privrec/pkg/dgk"
	"github.com/secomlib/privrec/pkg/math/arith"
	"github.com/secomlib/privrec/pkg/math/sample"
	"github.com/secomlib/privrec/pkg/paillier"
	"github.com/secomlib/privrec/pkg/pool"
)

// BlindingFactor is a single-use mask r ∈ [0, 2ˡ⁺ˢ) with everything a comparison
// needs precomputed from it.
type BlindingFactor struct {
	// R is the mask itself and EncryptedR = [r] under Paillier.
	R          *saferith.Nat
	EncryptedR *paillier.Ciphertext
	// LowPart = r mod 2ˡ, HighPart = ⌊r / 2ˡ⌋ and EncryptedHighPart = [⌊r / 2ˡ⌋] under Paillier.
	LowPart           *saferith.Nat
	HighPart          *saferith.Nat
	EncryptedHighPart *paillier.Ciphertext
	// LowBits are the l bits of LowPart, least significant first, and
	// EncryptedLowBits their encryptions under DGK.
	LowBits          []uint
	EncryptedLowBits []*dgk.Ciphertext
}

// BlindingFactorContainer generates BlindingFactors for a given l, s and pair of keys.
// It is safe for concurrent use.
type BlindingFactorContainer struct {
	l, s     int
	paillier *paillier.PublicKey
	dgk      *dgk.PublicKey
	rand     io.Reader
}

// NewBlindingFactorContainer returns a container drawing from rand, which must be
// a cryptographically secure source.
func NewBlindingFactorContainer(l, s int, pk *paillier.PublicKey, dgkPK *dgk.PublicKey, rand io.Reader) *BlindingFactorContainer {
	return &BlindingFactorContainer{
		l:        l,
		s:        s,
		paillier: pk,
		dgk:      dgkPK,
		rand:     pool.NewLockedReader(rand),
	}
}

// Generate draws r uniformly from [0, 2ˡ⁺ˢ) and returns its BlindingFactor.
func (c *BlindingFactorContainer) Generate() (*BlindingFactor, error) {
	r, err := sample.Bits(c.rand, c.l+c.s)
	if err != nil {
		return nil, fmt.Errorf("blinding: %w", err)
	}
	return c.GenerateFrom(r)
}

// GenerateFrom returns the BlindingFactor for a given r ∈ [0, 2ˡ⁺ˢ).
// Only the encryption nonces are random.
func (c *BlindingFactorContainer) GenerateFrom(r *saferith.Nat) (*BlindingFactor, error) {
	if r == nil || r.TrueLen() > c.l+c.s {
		return nil, fmt.Errorf("blinding: r outside of [0, 2^%d)", c.l+c.s)
	}
	low, high := arith.Split(r, c.l)

	encR, _, err := c.paillier.EncFrom(c.rand, new(saferith.Int).SetNat(r))
	if err != nil {
		return nil, fmt.Errorf("blinding: encrypt r: %w", err)
	}
	encHigh, _, err := c.paillier.EncFrom(c.rand, new(saferith.Int).SetNat(high))
	if err != nil {
		return nil, fmt.Errorf("blinding: encrypt high part: %w", err)
	}

	bits := arith.Bits(low, c.l)
	encBits := make([]*dgk.Ciphertext, c.l)
	for i, b := range bits {
		if encBits[i], err = c.dgk.EncFrom(c.rand, uint64(b)); err != nil {
			return nil, fmt.Errorf("blinding: encrypt bit %d: %w", i, err)
		}
	}

	return &BlindingFactor{
		R:                 r,
		EncryptedR:        encR,
		LowPart:           low,
		HighPart:          high,
		EncryptedHighPart: encHigh,
		LowBits:           bits,
		EncryptedLowBits:  encBits,
	}, nil
}
