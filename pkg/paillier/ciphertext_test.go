package paillier

import (
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
)

func TestCiphertextValidate(t *testing.T) {
	pk, sk := testKey(t)

	ct := &Ciphertext{c: new(saferith.Nat).SetUint64(0)}
	_, err := sk.Dec(ct)
	assert.ErrorIs(t, err, ErrInvalidCiphertext, "decrypting 0 should fail")

	ct.c = pk.N().Nat()
	_, err = sk.Dec(ct)
	assert.ErrorIs(t, err, ErrInvalidCiphertext, "decrypting N should fail")

	ct.c = new(saferith.Nat).Add(ct.c, ct.c, -1)
	_, err = sk.Dec(ct)
	assert.ErrorIs(t, err, ErrInvalidCiphertext, "decrypting 2N should fail")

	ct.c = pk.nSquared.Nat()
	_, err = sk.Dec(ct)
	assert.ErrorIs(t, err, ErrInvalidCiphertext, "decrypting N^2 should fail")

	_, err = sk.Dec(nil)
	assert.ErrorIs(t, err, ErrInvalidCiphertext, "decrypting nil should fail")
}

func TestCiphertext_Clone(t *testing.T) {
	pk, _ := testKey(t)
	ct, err := pk.EncUint64(3)
	if !assert.NoError(t, err) {
		return
	}
	clone := ct.Clone()
	assert.True(t, clone.Equal(ct))
	clone.AddPlain(pk, new(saferith.Int).SetUint64(1))
	assert.False(t, clone.Equal(ct), "modifying a clone should leave the original untouched")
}
