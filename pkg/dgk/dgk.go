// Package dgk implements the Damgård–Geisler–Krøigaard cryptosystem, an
// additively homomorphic scheme over a small prime plaintext space ℤᵤ whose
// secret key allows a fast test for encryptions of zero.
package dgk

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/secomlib/privrec/internal/params"
	"github.com/secomlib/privrec/pkg/math/sample"
	"github.com/secomlib/privrec/pkg/pool"
)

var (
	ErrParams            = errors.New("dgk: invalid parameters")
	ErrOutOfRange        = errors.New("dgk: plaintext outside of [0, u)")
	ErrInvalidCiphertext = errors.New("dgk: invalid ciphertext")
	ErrTableTooLarge     = errors.New("dgk: plaintext space too large for table decryption")
)

// Params fixes the sizes of a DGK key.
type Params struct {
	// Bits is the size of the modulus n = p⋅q.
	Bits int
	// T is the size of the secret primes v_p, v_q.
	T int
	// UBits is the size of the plaintext prime u.
	UBits int
}

// DefaultParams returns the parameters used by KeyGen.
func DefaultParams() Params {
	return Params{
		Bits:  params.BitsDGK,
		T:     params.DGKT,
		UBits: params.DGKU,
	}
}

// Validate checks that a key with these parameters can be generated.
func (p Params) Validate() error {
	if p.UBits < 2 || p.UBits > 62 {
		return fmt.Errorf("%w: u must have between 2 and 62 bits, got %d", ErrParams, p.UBits)
	}
	if p.T < 16 {
		return fmt.Errorf("%w: t must be at least 16 bits, got %d", ErrParams, p.T)
	}
	// p - 1 = 2⋅u⋅v_p⋅k needs room for k
	if p.Bits/2 < p.T+p.UBits+16 {
		return fmt.Errorf("%w: modulus of %d bits too small for t = %d, u of %d bits", ErrParams, p.Bits, p.T, p.UBits)
	}
	return nil
}

// KeyGen generates a DGK key pair with the default parameters.
func KeyGen(rand io.Reader, pl *pool.Pool) (*PublicKey, *SecretKey, error) {
	return KeyGenWithParams(rand, DefaultParams(), pl)
}

// KeyGenWithParams generates a key pair.
//
//   - u is a UBits-bit prime, v_p ≠ v_q are T-bit primes.
//   - p, q are primes with u⋅v_p | p - 1 and u⋅v_q | q - 1.
//   - g has order u⋅v_p⋅v_q and h has order v_p⋅v_q in ℤₙˣ.
func KeyGenWithParams(rand io.Reader, prm Params, pl *pool.Pool) (*PublicKey, *SecretKey, error) {
	if err := prm.Validate(); err != nil {
		return nil, nil, err
	}
	u, err := randPrime(rand, prm.UBits)
	if err != nil {
		return nil, nil, err
	}
	vp, err := randPrime(rand, prm.T)
	if err != nil {
		return nil, nil, err
	}
	var vq *big.Int
	for vq == nil || vq.Cmp(vp) == 0 {
		if vq, err = randPrime(rand, prm.T); err != nil {
			return nil, nil, err
		}
	}

	half := prm.Bits / 2
	p := sample.PrimeWithFactor(rand, half, new(big.Int).Mul(u, vp), pl)
	var q *big.Int
	for q == nil || q.Cmp(p) == 0 {
		q = sample.PrimeWithFactor(rand, prm.Bits-half, new(big.Int).Mul(u, vq), pl)
	}

	gp, err := elementOfOrder(rand, p, u, vp)
	if err != nil {
		return nil, nil, err
	}
	gq, err := elementOfOrder(rand, q, u, vq)
	if err != nil {
		return nil, nil, err
	}
	hp, err := elementOfOrder(rand, p, nil, vp)
	if err != nil {
		return nil, nil, err
	}
	hq, err := elementOfOrder(rand, q, nil, vq)
	if err != nil {
		return nil, nil, err
	}

	n := new(big.Int).Mul(p, q)
	g := crt(gp, gq, p, q)
	h := crt(hp, hq, p, q)

	pk := newPublicKey(n, g, h, u.Uint64(), prm.T)
	sk := newSecretKey(pk, p, q, vp, vq)
	return pk, sk, nil
}

func randPrime(r io.Reader, bits int) (*big.Int, error) {
	p, err := rand.Prime(r, bits)
	if err != nil {
		return nil, fmt.Errorf("dgk: prime generation: %w", err)
	}
	return p, nil
}

// elementOfOrder returns x ∈ ℤₚˣ of order u⋅v, or of order v when u is nil.
// u and v must be distinct primes dividing p - 1.
func elementOfOrder(rand io.Reader, p, u, v *big.Int) (*big.Int, error) {
	order := new(big.Int).Set(v)
	if u != nil {
		order.Mul(order, u)
	}
	pMinus1 := new(big.Int).Sub(p, big.NewInt(1))
	cofactor := new(big.Int).Div(pMinus1, order)
	one := big.NewInt(1)
	two := big.NewInt(2)
	tmp := new(big.Int)
	for i := 0; i < 255; i++ {
		x := sample.BigBits(rand, p.BitLen())
		if x.Cmp(two) < 0 || x.Cmp(pMinus1) >= 0 {
			continue
		}
		x.Exp(x, cofactor, p)
		if x.Cmp(one) == 0 {
			continue
		}
		if u != nil {
			// x has order u⋅v iff neither xᵘ nor xᵛ is 1
			if tmp.Exp(x, u, p).Cmp(one) == 0 || tmp.Exp(x, v, p).Cmp(one) == 0 {
				continue
			}
		}
		return x, nil
	}
	return nil, sample.ErrMaxIterations
}

// crt returns the x mod p⋅q with x ≡ a (mod p), x ≡ b (mod q).
func crt(a, b, p, q *big.Int) *big.Int {
	// x = a + p⋅[(b - a)⋅p⁻¹ mod q]
	pInv := new(big.Int).ModInverse(p, q)
	x := new(big.Int).Sub(b, a)
	x.Mul(x, pInv)
	x.Mod(x, q)
	x.Mul(x, p)
	x.Add(x, a)
	return x
}
