package paillier

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/secomlib/privrec/internal/hash"
	"github.com/secomlib/privrec/pkg/math/arith"
	"github.com/secomlib/privrec/pkg/math/sample"
)

var (
	ErrPaillierLength = errors.New("wrong number bit length of Paillier modulus N")
	ErrPaillierEven   = errors.New("modulus N is even")
	ErrPaillierNil    = errors.New("modulus N is nil")
	ErrOutOfRange     = errors.New("paillier: plaintext outside of [-(N-1)/2, (N-1)/2]")
)

// PublicKey is a Paillier public key. It is represented by a modulus N.
type PublicKey struct {
	// n = p⋅q
	n *arith.Modulus
	// nSquared = n²
	nSquared *arith.Modulus

	// These values are cached out of convenience, and performance
	nNat *saferith.Nat
	// nPlusOne = n + 1
	nPlusOne *saferith.Nat
	// nHalf = (n-1)/2, the bound on the absolute value of plaintexts
	nHalf *saferith.Nat
}

// N is the public modulus making up this key.
func (pk *PublicKey) N() *saferith.Modulus {
	return pk.n.Modulus
}

// NewPublicKey returns an initialized paillier.PublicKey and caches N, N² and (N-1)/2.
func NewPublicKey(n *saferith.Modulus) *PublicKey {
	oneNat := new(saferith.Nat).SetUint64(1)
	nNat := n.Nat()
	nSquared := saferith.ModulusFromNat(new(saferith.Nat).Mul(nNat, nNat, -1))
	nPlusOne := new(saferith.Nat).Add(nNat, oneNat, -1)
	// Tightening is fine, since n is public
	nPlusOne.Resize(nPlusOne.TrueLen())
	nHalf := new(saferith.Nat).Rsh(nNat, 1, -1)

	return &PublicKey{
		n:        arith.ModulusFromN(n),
		nSquared: arith.ModulusFromN(nSquared),
		nNat:     nNat,
		nPlusOne: nPlusOne,
		nHalf:    nHalf,
	}
}

// ValidateN performs basic checks to make sure the modulus is valid:
// - log₂(n) = minBits or more.
// - n is odd.
func ValidateN(n *saferith.Modulus, minBits int) error {
	if n == nil {
		return ErrPaillierNil
	}
	if bits := n.BitLen(); bits < minBits {
		return fmt.Errorf("have: %d, need at least %d: %w", bits, minBits, ErrPaillierLength)
	}
	if n.Big().Bit(0) != 1 {
		return ErrPaillierEven
	}
	return nil
}

// Enc returns the encryption of m under the public key pk, using crypto/rand.
// The nonce used to encrypt is returned.
//
// ct = (1+N)ᵐρᴺ (mod N²).
func (pk *PublicKey) Enc(m *saferith.Int) (*Ciphertext, *saferith.Nat, error) {
	return pk.EncFrom(rand.Reader, m)
}

// EncFrom is Enc with the nonce sampled from rand. It fails if rand does.
func (pk *PublicKey) EncFrom(rand io.Reader, m *saferith.Int) (*Ciphertext, *saferith.Nat, error) {
	nonce, err := sample.TryUnitModN(rand, pk.n.Modulus)
	if err != nil {
		return nil, nil, err
	}
	ct, err := pk.EncWithNonce(m, nonce)
	if err != nil {
		return nil, nil, err
	}
	return ct, nonce, nil
}

// EncWithNonce returns the encryption of m under the public key pk, with the given nonce.
// An error is returned if |m| > (N-1)/2.
func (pk *PublicKey) EncWithNonce(m *saferith.Int, nonce *saferith.Nat) (*Ciphertext, error) {
	if gt, _, _ := m.Abs().Cmp(pk.nHalf); gt == 1 {
		return nil, ErrOutOfRange
	}
	// (N+1)ᵐ mod N²
	c := pk.nSquared.ExpI(pk.nPlusOne, m)
	// ρᴺ mod N²
	rhoN := pk.nSquared.Exp(nonce, pk.nNat)
	// (N+1)ᵐ ρᴺ
	c.ModMul(c, rhoN, pk.nSquared.Modulus)
	return &Ciphertext{c: c}, nil
}

// EncUint64 is a convenience wrapper around Enc for small non-negative plaintexts.
func (pk *PublicKey) EncUint64(m uint64) (*Ciphertext, error) {
	ct, _, err := pk.Enc(new(saferith.Int).SetUint64(m))
	return ct, err
}

// Equal returns true if pk ≡ other.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	if other == nil {
		return false
	}
	_, eq, _ := pk.n.Cmp(other.n.Modulus)
	return eq == 1
}

// ValidateCiphertexts checks if all ciphertexts are in the correct range and coprime to N²
// ct ∈ [1, …, N²-1] AND GCD(ct,N²) = 1.
func (pk *PublicKey) ValidateCiphertexts(cts ...*Ciphertext) bool {
	for _, ct := range cts {
		if ct == nil || ct.c == nil {
			return false
		}
		_, _, lt := ct.c.CmpMod(pk.nSquared.Modulus)
		if lt != 1 {
			return false
		}
		if ct.c.IsUnit(pk.nSquared.Modulus) != 1 {
			return false
		}
	}
	return true
}

// Fingerprint is a short digest identifying this key, used to bind messages to it.
func (pk *PublicKey) Fingerprint() []byte {
	return hash.New("paillier.PublicKey", pk.n.Modulus).Sum()
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (pk *PublicKey) WriteTo(w io.Writer) (int64, error) {
	if pk == nil {
		return 0, io.ErrUnexpectedEOF
	}
	n, err := w.Write(pk.n.Bytes())
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (*PublicKey) Domain() string {
	return "Paillier PublicKey"
}
