package comparison

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/secomlib/privrec/internal/test"
	"github.com/secomlib/privrec/pkg/math/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlindingFactorContainer_GenerateFrom(t *testing.T) {
	sk, dgkSK := test.Keys()
	const l, s = 8, 40
	c := NewBlindingFactorContainer(l, s, sk.PublicKey, dgkSK.PublicKey, rand.Reader)

	// r = 0x1234_5678_9A with l = 8: low part 0x9A, high part 0x12345678
	bf, err := c.GenerateFrom(bigNat(0x12_3456_789A))
	require.NoError(t, err)
	assert.Equal(t, uint64(0x9A), bf.LowPart.Big().Uint64())
	assert.Equal(t, uint64(0x12_3456_78), bf.HighPart.Big().Uint64())
	assert.Equal(t, []uint{0, 1, 0, 1, 1, 0, 0, 1}, bf.LowBits)

	assert.Equal(t, uint64(0x12_3456_789A), decrypt(t, sk, bf.EncryptedR))
	assert.Equal(t, uint64(0x12_3456_78), decrypt(t, sk, bf.EncryptedHighPart))
	require.Len(t, bf.EncryptedLowBits, l)
	for i, ct := range bf.EncryptedLowBits {
		m, err := dgkSK.Dec(ct)
		require.NoError(t, err)
		assert.Equal(t, uint64(bf.LowBits[i]), m, "bit %d", i)
	}

	_, err = c.GenerateFrom(bigNat(0).SetBig(new(big.Int).Lsh(big.NewInt(1), l+s), l+s+1))
	assert.Error(t, err, "r must be below 2^(l+s)")
	_, err = c.GenerateFrom(nil)
	assert.Error(t, err)
}

func TestBlindingFactorContainer_Generate(t *testing.T) {
	sk, dgkSK := test.Keys()
	const l, s = 8, 40
	c := NewBlindingFactorContainer(l, s, sk.PublicKey, dgkSK.PublicKey, rand.Reader)

	bound := new(big.Int).Lsh(big.NewInt(1), l+s)
	seen := make(map[string]bool)
	for i := 0; i < 8; i++ {
		bf, err := c.Generate()
		require.NoError(t, err)
		r := bf.R.Big()
		assert.Equal(t, -1, r.Cmp(bound), "r must be below 2^(l+s)")

		// r = high⋅2ˡ + low
		recombined := new(big.Int).Lsh(bf.HighPart.Big(), l)
		recombined.Add(recombined, bf.LowPart.Big())
		assert.Equal(t, 0, recombined.Cmp(r))

		assert.False(t, seen[r.String()], "blinding values should not repeat")
		seen[r.String()] = true
	}
}

func TestBlindingFactorContainer_Seeded(t *testing.T) {
	sk, dgkSK := test.Keys()
	c1 := NewBlindingFactorContainer(8, 40, sk.PublicKey, dgkSK.PublicKey, sample.NewSeededReader([]byte("seed")))
	c2 := NewBlindingFactorContainer(8, 40, sk.PublicKey, dgkSK.PublicKey, sample.NewSeededReader([]byte("seed")))
	bf1, err := c1.Generate()
	require.NoError(t, err)
	bf2, err := c2.Generate()
	require.NoError(t, err)
	assert.Equal(t, 1, int(bf1.R.Eq(bf2.R)), "the same draw gives the same mask")
	assert.True(t, bf1.EncryptedR.Equal(bf2.EncryptedR))
}

func TestBlindingFactorContainer_ReaderFailure(t *testing.T) {
	sk, dgkSK := test.Keys()
	// enough for r ∈ [0, 2⁴⁸), but not for the nonce of [r]
	c := NewBlindingFactorContainer(8, 40, sk.PublicKey, dgkSK.PublicKey, &limitedReader{limit: 6})
	var err error
	require.NotPanics(t, func() { _, err = c.Generate() })
	assert.Error(t, err)
}
