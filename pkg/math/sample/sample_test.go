package sample

import (
	"bytes"
	"crypto/rand"
	"io"
	"math/big"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/secomlib/privrec/pkg/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModN(t *testing.T) {
	n := saferith.ModulusFromUint64(3 * 11 * 65519)
	x := ModN(rand.Reader, n)
	_, _, lt := x.CmpMod(n)
	assert.Equal(t, saferith.Choice(1), lt, "ModN generated a number >= %v: %v", n, x)
}

func TestNonZeroModN(t *testing.T) {
	n := saferith.ModulusFromUint64(2)
	for i := 0; i < 20; i++ {
		x := NonZeroModN(rand.Reader, n)
		assert.Equal(t, uint64(1), x.Big().Uint64())
	}
}

func TestBits(t *testing.T) {
	for _, bits := range []int{1, 7, 8, 9, 48, 72} {
		bound := new(big.Int).Lsh(big.NewInt(1), uint(bits))
		for i := 0; i < 50; i++ {
			x, err := Bits(rand.Reader, bits)
			require.NoError(t, err)
			assert.Equal(t, -1, x.Big().Cmp(bound), "Bits(%d) out of range", bits)
		}
	}
}

func TestBits_ShortReader(t *testing.T) {
	_, err := Bits(bytes.NewReader([]byte{1}), 64)
	assert.Error(t, err)
}

func TestTryUnitModN_ShortReader(t *testing.T) {
	n := saferith.ModulusFromUint64(3 * 11 * 65519)
	_, err := TryUnitModN(bytes.NewReader([]byte{1}), n)
	assert.Error(t, err)
	assert.Panics(t, func() { UnitModN(bytes.NewReader(nil), n) })
}

func TestBit(t *testing.T) {
	seen := [2]bool{}
	for i := 0; i < 200; i++ {
		b, err := Bit(rand.Reader)
		require.NoError(t, err)
		require.LessOrEqual(t, b, uint(1))
		seen[b] = true
	}
	assert.True(t, seen[0] && seen[1], "both bit values should appear")
}

func TestPermutation(t *testing.T) {
	perm, err := Permutation(rand.Reader, 33)
	require.NoError(t, err)
	seen := make([]bool, 33)
	for _, p := range perm {
		require.False(t, seen[p], "index %d appears twice", p)
		seen[p] = true
	}

	empty, err := Permutation(rand.Reader, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUint64n(t *testing.T) {
	_, err := Uint64n(rand.Reader, 0)
	assert.Error(t, err)
	for i := 0; i < 100; i++ {
		v, err := Uint64n(rand.Reader, 7)
		require.NoError(t, err)
		assert.Less(t, v, uint64(7))
	}
}

func TestSeededReader(t *testing.T) {
	a := make([]byte, 100)
	b := make([]byte, 100)
	c := make([]byte, 100)
	_, err := io.ReadFull(NewSeededReader([]byte("seed")), a)
	require.NoError(t, err)
	_, err = io.ReadFull(NewSeededReader([]byte("seed")), b)
	require.NoError(t, err)
	_, err = io.ReadFull(NewSeededReader([]byte("other")), c)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	x, err := Bits(NewSeededReader([]byte("seed")), 48)
	require.NoError(t, err)
	y, err := Bits(NewSeededReader([]byte("seed")), 48)
	require.NoError(t, err)
	assert.Equal(t, saferith.Choice(1), x.Eq(y))
}

func TestPrimeWithFactor(t *testing.T) {
	f := big.NewInt(65537 * 101)
	p := PrimeWithFactor(rand.Reader, 128, f, nil)
	assert.Equal(t, 128, p.BitLen())
	assert.True(t, p.ProbablyPrime(primalityIterations))
	pMinus1 := new(big.Int).Sub(p, big.NewInt(1))
	assert.Zero(t, new(big.Int).Mod(pMinus1, f).Sign())
}

func TestPaillierPrimes(t *testing.T) {
	if testing.Short() {
		t.Skip("safe prime generation is slow")
	}
	pl := pool.NewPool(0)
	defer pl.TearDown()
	p, q := Paillier(rand.Reader, 256, pl)
	for _, x := range []*saferith.Nat{p, q} {
		xBig := x.Big()
		assert.Equal(t, 256, xBig.BitLen())
		assert.True(t, xBig.ProbablyPrime(primalityIterations))
		half := new(big.Int).Rsh(xBig, 1)
		assert.True(t, half.ProbablyPrime(primalityIterations), "(p-1)/2 should be prime")
		assert.Equal(t, uint(1), xBig.Bit(1), "p should be 3 mod 4")
	}
}

// This exists to save the results of functions we want to benchmark, to avoid
// having them optimized away.
var resultNat *saferith.Nat

func BenchmarkModN(b *testing.B) {
	b.StopTimer()
	nBytes := make([]byte, 256)
	_, _ = rand.Read(nBytes)
	n := saferith.ModulusFromBytes(nBytes)
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		resultNat = ModN(rand.Reader, n)
	}
}
