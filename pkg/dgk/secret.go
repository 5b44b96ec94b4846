package dgk

import (
	"math/big"
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/secomlib/privrec/internal/params"
)

// SecretKey is a DGK secret key. It embeds the matching public key.
type SecretKey struct {
	*PublicKey
	p, q   *saferith.Nat
	pMod   *saferith.Modulus
	vp, vq *saferith.Nat

	tableOnce sync.Once
	// table maps (g^{v_p})ⁱ mod p to i, built on first decryption
	table map[string]uint64
}

func newSecretKey(pk *PublicKey, p, q, vp, vq *big.Int) *SecretKey {
	pNat := new(saferith.Nat).SetBig(p, p.BitLen())
	return &SecretKey{
		PublicKey: pk,
		p:         pNat,
		q:         new(saferith.Nat).SetBig(q, q.BitLen()),
		pMod:      saferith.ModulusFromNat(pNat),
		vp:        new(saferith.Nat).SetBig(vp, vp.BitLen()),
		vq:        new(saferith.Nat).SetBig(vq, vq.BitLen()),
	}
}

// IsZero reports whether ct encrypts 0, by checking c^{v_p} ≡ 1 (mod p).
func (sk *SecretKey) IsZero(ct *Ciphertext) (bool, error) {
	if !sk.ValidateCiphertexts(ct) {
		return false, ErrInvalidCiphertext
	}
	return sk.project(ct).Eq(new(saferith.Nat).SetUint64(1)) == 1, nil
}

// project returns c^{v_p} mod p = (g^{v_p})ᵐ mod p, which only depends on the plaintext.
func (sk *SecretKey) project(ct *Ciphertext) *saferith.Nat {
	c := new(saferith.Nat).Mod(ct.c, sk.pMod)
	return c.Exp(c, sk.vp, sk.pMod)
}

// Dec recovers m ∈ [0, u) from a lookup table of size u.
func (sk *SecretKey) Dec(ct *Ciphertext) (uint64, error) {
	if sk.u > params.DGKMaxTable {
		return 0, ErrTableTooLarge
	}
	if !sk.ValidateCiphertexts(ct) {
		return 0, ErrInvalidCiphertext
	}
	sk.tableOnce.Do(sk.buildTable)
	m, ok := sk.table[sk.tableKey(sk.project(ct))]
	if !ok {
		return 0, ErrInvalidCiphertext
	}
	return m, nil
}

func (sk *SecretKey) buildTable() {
	base := new(saferith.Nat).Mod(sk.g, sk.pMod)
	base.Exp(base, sk.vp, sk.pMod)
	x := new(saferith.Nat).SetUint64(1)
	sk.table = make(map[string]uint64, sk.u)
	for i := uint64(0); i < sk.u; i++ {
		sk.table[sk.tableKey(x)] = i
		x = new(saferith.Nat).ModMul(x, base, sk.pMod)
	}
}

func (sk *SecretKey) tableKey(x *saferith.Nat) string {
	buf := make([]byte, (sk.pMod.BitLen()+7)/8)
	x.FillBytes(buf)
	return string(buf)
}
