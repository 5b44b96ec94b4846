package paillier

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/secomlib/privrec/pkg/math/arith"
)

var (
	ErrPrimeBadLength    = errors.New("prime factor is not the right length")
	ErrNotBlum           = errors.New("prime factor is not equivalent to 3 (mod 4)")
	ErrNotSafePrime      = errors.New("supposed prime factor is not a safe prime")
	ErrPrimeNil          = errors.New("prime is nil")
	ErrInvalidCiphertext = errors.New("paillier: failed to decrypt invalid ciphertext")
)

// SecretKey is the secret key corresponding to a Public Paillier Key.
//
// A public key is a modulus N, and the secret key contains the information
// needed to factor N into two primes, P and Q. This allows us to decrypt
// values encrypted using this modulus.
type SecretKey struct {
	*PublicKey
	// p, q such that N = p⋅q
	p, q *saferith.Nat
	// phi = ϕ = (p-1)(q-1)
	phi *saferith.Nat
	// phiInv = ϕ⁻¹ mod N
	phiInv *saferith.Nat
}

// P returns the first of the two factors composing this key.
func (sk *SecretKey) P() *saferith.Nat {
	return sk.p
}

// Q returns the second of the two factors composing this key.
func (sk *SecretKey) Q() *saferith.Nat {
	return sk.q
}

// NewSecretKeyFromPrimes generates a new SecretKey. Assumes that P and Q are distinct primes.
func NewSecretKeyFromPrimes(P, Q *saferith.Nat) *SecretKey {
	oneNat := new(saferith.Nat).SetUint64(1)

	n := arith.ModulusFromFactors(P, Q)

	nNat := n.Nat()
	nPlusOne := new(saferith.Nat).Add(nNat, oneNat, -1)
	// Tightening is fine, since n is public
	nPlusOne.Resize(nPlusOne.TrueLen())
	nHalf := new(saferith.Nat).Rsh(nNat, 1, -1)

	pMinus1 := new(saferith.Nat).Sub(P, oneNat, -1)
	qMinus1 := new(saferith.Nat).Sub(Q, oneNat, -1)
	phi := new(saferith.Nat).Mul(pMinus1, qMinus1, -1)
	// ϕ⁻¹ mod N
	phiInv := new(saferith.Nat).ModInverse(phi, n.Modulus)

	pSquared := new(saferith.Nat).Mul(P, P, -1)
	qSquared := new(saferith.Nat).Mul(Q, Q, -1)
	nSquared := arith.ModulusFromFactors(pSquared, qSquared)

	return &SecretKey{
		p:      P,
		q:      Q,
		phi:    phi,
		phiInv: phiInv,
		PublicKey: &PublicKey{
			n:        n,
			nSquared: nSquared,
			nNat:     nNat,
			nPlusOne: nPlusOne,
			nHalf:    nHalf,
		},
	}
}

// Dec decrypts c and returns the plaintext m ∈ ± (N-1)/2.
// It returns an error if gcd(c, N²) != 1 or if c is not in [1, N²-1].
func (sk *SecretKey) Dec(ct *Ciphertext) (*saferith.Int, error) {
	oneNat := new(saferith.Nat).SetUint64(1)

	n := sk.PublicKey.n.Modulus

	if !sk.PublicKey.ValidateCiphertexts(ct) {
		return nil, ErrInvalidCiphertext
	}

	// r = c^Phi 						(mod N²)
	result := sk.PublicKey.nSquared.Exp(ct.c, sk.phi)
	// r = c^Phi - 1
	result.Sub(result, oneNat, -1)
	// r = [(c^Phi - 1)/N]
	result.Div(result, n, -1)
	// r = [(c^Phi - 1)/N] • Phi^-1		(mod N)
	result.ModMul(result, sk.phiInv, n)

	// see 6.1 https://www.iacr.org/archive/crypto2001/21390136.pdf
	return new(saferith.Int).SetModSymmetric(result, n), nil
}

// DecNat decrypts ct and checks that the plaintext is non-negative.
func (sk *SecretKey) DecNat(ct *Ciphertext) (*saferith.Nat, error) {
	m, err := sk.Dec(ct)
	if err != nil {
		return nil, err
	}
	if m.IsNegative() == 1 {
		return nil, fmt.Errorf("paillier: decrypted plaintext is negative")
	}
	return m.Abs(), nil
}

// ValidatePrime checks whether p is a suitable prime for Paillier.
// Checks:
// - log₂(p) ≡ bits.
// - p ≡ 3 (mod 4).
// - q := (p-1)/2 is prime.
func ValidatePrime(p *saferith.Nat, bits int) error {
	if p == nil {
		return ErrPrimeNil
	}
	// Technically, this leaks the number of bits, but this is fine, since returning
	// an error asserts this number statically, anyways.
	if have := p.TrueLen(); have != bits {
		return fmt.Errorf("invalid prime size: have: %d, need %d: %w", have, bits, ErrPrimeBadLength)
	}
	// check == 3 (mod 4)
	if p.Byte(0)&0b11 != 3 {
		return ErrNotBlum
	}

	// check (p-1)/2 is prime
	pMinus1Div2 := new(saferith.Nat).Rsh(p, 1, -1)

	if !pMinus1Div2.Big().ProbablyPrime(1) {
		return ErrNotSafePrime
	}
	return nil
}
