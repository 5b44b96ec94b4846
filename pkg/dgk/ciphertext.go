package dgk

import (
	"crypto/rand"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/secomlib/privrec/pkg/math/sample"
)

// Ciphertext is gᵐ⋅hʳ (mod n).
type Ciphertext struct {
	c *saferith.Nat
}

// Add sets ct to the encryption of m + m₂ (mod u).
func (ct *Ciphertext) Add(pk *PublicKey, ct2 *Ciphertext) *Ciphertext {
	if ct2 == nil {
		return ct
	}
	ct.c.ModMul(ct.c, ct2.c, pk.n)
	return ct
}

// Negate sets ct to the encryption of -m (mod u).
func (ct *Ciphertext) Negate(pk *PublicKey) *Ciphertext {
	ct.c = new(saferith.Nat).ModInverse(ct.c, pk.n)
	return ct
}

// Sub sets ct to the encryption of m - m₂ (mod u).
func (ct *Ciphertext) Sub(pk *PublicKey, ct2 *Ciphertext) *Ciphertext {
	if ct2 == nil {
		return ct
	}
	return ct.Add(pk, ct2.Clone().Negate(pk))
}

// Mul sets ct to the encryption of k⋅m (mod u).
func (ct *Ciphertext) Mul(pk *PublicKey, k uint64) *Ciphertext {
	ct.c = new(saferith.Nat).Exp(ct.c, new(saferith.Nat).SetUint64(k), pk.n)
	return ct
}

// AddPlain sets ct to the encryption of m + k (mod u), without changing the randomness.
func (ct *Ciphertext) AddPlain(pk *PublicKey, k int64) *Ciphertext {
	gk := new(saferith.Nat).Exp(pk.g, new(saferith.Nat).SetUint64(pk.reduce(k)), pk.n)
	ct.c.ModMul(ct.c, gk, pk.n)
	return ct
}

// Randomize multiplies ct by hʳ for a fresh r from rand, crypto/rand if nil.
func (ct *Ciphertext) Randomize(pk *PublicKey, r io.Reader) error {
	if r == nil {
		r = rand.Reader
	}
	e, err := sample.Bits(r, pk.randomBits)
	if err != nil {
		return err
	}
	hr := new(saferith.Nat).Exp(pk.h, e, pk.n)
	ct.c.ModMul(ct.c, hr, pk.n)
	return nil
}

// Equal checks whether ct ≡ ctA (mod n).
func (ct *Ciphertext) Equal(ctA *Ciphertext) bool {
	return ct.c.Eq(ctA.c) == 1
}

// Clone returns a deep copy of ct.
func (ct Ciphertext) Clone() *Ciphertext {
	c := new(saferith.Nat)
	if ct.c != nil {
		c.SetNat(ct.c)
	}
	return &Ciphertext{c: c}
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (ct *Ciphertext) WriteTo(w io.Writer) (int64, error) {
	if ct == nil || ct.c == nil {
		return 0, io.ErrUnexpectedEOF
	}
	n, err := w.Write(ct.c.Bytes())
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (*Ciphertext) Domain() string {
	return "DGK Ciphertext"
}
