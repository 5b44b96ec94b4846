package dgk

import (
	"crypto/rand"
	"sync"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/secomlib/privrec/pkg/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testOnce sync.Once
	testPK   *PublicKey
	testSK   *SecretKey
)

var testParams = Params{Bits: 512, T: 40, UBits: 10}

func testKey(t testing.TB) (*PublicKey, *SecretKey) {
	testOnce.Do(func() {
		pl := pool.NewPool(0)
		defer pl.TearDown()
		var err error
		testPK, testSK, err = KeyGenWithParams(rand.Reader, testParams, pl)
		require.NoError(t, err)
	})
	return testPK, testSK
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	assert.NoError(t, testParams.Validate())
	assert.ErrorIs(t, Params{Bits: 512, T: 40, UBits: 1}.Validate(), ErrParams)
	assert.ErrorIs(t, Params{Bits: 512, T: 8, UBits: 10}.Validate(), ErrParams)
	assert.ErrorIs(t, Params{Bits: 128, T: 40, UBits: 10}.Validate(), ErrParams)
}

func TestKeyGen(t *testing.T) {
	pk, sk := testKey(t)
	assert.Equal(t, 512, pk.N().BitLen())
	assert.Equal(t, 10, bitLen(pk.U()))
	assert.True(t, pk.Equal(sk.PublicKey))
	assert.Len(t, pk.Fingerprint(), 32)
}

func bitLen(x uint64) int {
	n := 0
	for ; x > 0; x >>= 1 {
		n++
	}
	return n
}

func TestDGK_EncDec(t *testing.T) {
	pk, sk := testKey(t)
	for _, m := range []uint64{0, 1, 2, pk.U() / 2, pk.U() - 1} {
		ct, err := pk.Enc(m)
		require.NoError(t, err)
		actual, err := sk.Dec(ct)
		require.NoError(t, err)
		assert.Equal(t, m, actual)

		zero, err := sk.IsZero(ct)
		require.NoError(t, err)
		assert.Equal(t, m == 0, zero)
	}

	_, err := pk.Enc(pk.U())
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDGK_Homomorphic(t *testing.T) {
	pk, sk := testKey(t)
	u := pk.U()
	ct3, err := pk.Enc(3)
	require.NoError(t, err)
	ct5, err := pk.Enc(5)
	require.NoError(t, err)

	dec := func(ct *Ciphertext) uint64 {
		m, err := sk.Dec(ct)
		require.NoError(t, err)
		return m
	}

	assert.Equal(t, uint64(8), dec(ct3.Clone().Add(pk, ct5)))
	assert.Equal(t, u-2, dec(ct3.Clone().Sub(pk, ct5)))
	assert.Equal(t, u-3, dec(ct3.Clone().Negate(pk)))
	assert.Equal(t, uint64(15), dec(ct5.Clone().Mul(pk, 3)))
	assert.Equal(t, uint64(2), dec(ct3.Clone().AddPlain(pk, -1)))
	assert.Equal(t, uint64(0), dec(ct3.Clone().AddPlain(pk, -3)))
	assert.Equal(t, uint64(4), dec(ct3.Clone().AddPlain(pk, int64(u)+1)))

	zero := ct3.Clone().Sub(pk, ct3)
	isZero, err := sk.IsZero(zero)
	require.NoError(t, err)
	assert.True(t, isZero)

	// a non-zero value stays non-zero when scaled by a unit of ℤᵤ
	scaled := ct5.Clone().Mul(pk, u-1)
	isZero, err = sk.IsZero(scaled)
	require.NoError(t, err)
	assert.False(t, isZero)
}

func TestDGK_Randomize(t *testing.T) {
	pk, sk := testKey(t)
	ct, err := pk.Enc(7)
	require.NoError(t, err)
	fresh := ct.Clone()
	require.NoError(t, fresh.Randomize(pk, nil))
	assert.False(t, fresh.Equal(ct))
	m, err := sk.Dec(fresh)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), m)
}

func TestDGK_InvalidCiphertext(t *testing.T) {
	pk, sk := testKey(t)
	_, err := sk.IsZero(nil)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	ct := &Ciphertext{c: pk.N().Nat()}
	_, err = sk.Dec(ct)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestDGK_Marshal(t *testing.T) {
	pk, sk := testKey(t)

	data, err := pk.MarshalBinary()
	require.NoError(t, err)
	var pk2 PublicKey
	require.NoError(t, pk2.UnmarshalBinary(data))
	assert.True(t, pk.Equal(&pk2))

	data, err = sk.MarshalBinary()
	require.NoError(t, err)
	var sk2 SecretKey
	require.NoError(t, sk2.UnmarshalBinary(data))
	assert.True(t, pk.Equal(sk2.PublicKey))

	ct, err := pk2.Enc(11)
	require.NoError(t, err)
	data, err = cbor.Marshal(ct)
	require.NoError(t, err)
	var ct2 Ciphertext
	require.NoError(t, cbor.Unmarshal(data, &ct2))
	m, err := sk2.Dec(&ct2)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), m)
}
