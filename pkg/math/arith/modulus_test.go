package arith

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/secomlib/privrec/pkg/math/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulus_Exp(t *testing.T) {
	assert.True(t, mFast.Nat().Eq(mSlow.Nat()) == 1, "n moduli should be the same")

	x := sample.ModN(rand.Reader, n)
	eBig := sample.BigBits(rand.Reader, 1024)
	e := new(saferith.Nat).SetBig(eBig, 1024)
	eNeg := new(saferith.Int).SetNat(e).Neg(1)

	yExpected := new(saferith.Nat).Exp(x, e, n)
	yFast := mFast.Exp(x, e)
	ySlow := mSlow.Exp(x, e)
	assert.True(t, yExpected.Eq(yFast) == 1, "exponentiation with acceleration should give the same result")
	assert.True(t, yExpected.Eq(ySlow) == 1, "exponentiation without acceleration should give the same result")

	yExpected.ExpI(x, eNeg, n)
	yFast = mFast.ExpI(x, eNeg)
	ySlow = mSlow.ExpI(x, eNeg)
	assert.True(t, yExpected.Eq(yFast) == 1, "negative exponentiation with acceleration should give the same result")
	assert.True(t, yExpected.Eq(ySlow) == 1, "negative exponentiation without acceleration should give the same result")
}

func TestSplit(t *testing.T) {
	x := new(saferith.Nat).SetUint64(0b1011_0110_1101)
	low, high := Split(x, 4)
	assert.Equal(t, uint64(0b1101), low.Big().Uint64())
	assert.Equal(t, uint64(0b1011_0110), high.Big().Uint64())

	low, high = Split(x, 16)
	assert.Equal(t, uint64(0b1011_0110_1101), low.Big().Uint64())
	assert.Zero(t, high.Big().Sign())

	// x = high⋅2ˡ + low
	for i := 0; i < 20; i++ {
		xBig := sample.BigBits(rand.Reader, 72)
		x := new(saferith.Nat).SetBig(xBig, 72)
		low, high := Split(x, 32)
		recombined := new(big.Int).Lsh(high.Big(), 32)
		recombined.Add(recombined, low.Big())
		require.Equal(t, 0, recombined.Cmp(xBig))
	}
}

func TestBits(t *testing.T) {
	x := new(saferith.Nat).SetUint64(0b1101)
	assert.Equal(t, []uint{1, 0, 1, 1, 0, 0}, Bits(x, 6))
	assert.Equal(t, []uint{1, 0}, Bits(x, 2))
}

func TestTwoPow(t *testing.T) {
	assert.Equal(t, uint64(1), TwoPow(0).Big().Uint64())
	assert.Equal(t, uint64(256), TwoPow(8).Big().Uint64())
	assert.Equal(t, 101, TwoPow(100).Big().BitLen())
}

func benchmarkExp(b *testing.B, m *Modulus, size int) {
	e := new(saferith.Nat)
	buf := make([]byte, size)
	for i := 0; i < b.N; i++ {
		x := sample.ModN(rand.Reader, n)
		_, _ = rand.Read(buf)
		e.SetBytes(buf)
		m.Exp(x, e)
	}
}

func BenchmarkExp(b *testing.B) {
	sizes := map[string]int{
		"256":  256,
		"1024": 1024,
	}
	ms := map[string]*Modulus{
		"fast": mFast,
		"slow": mSlow,
	}
	for sizeStr, size := range sizes {
		for mStr, m := range ms {
			b.Run(sizeStr+mStr, func(b *testing.B) {
				benchmarkExp(b, m, size)
			})
		}
	}
}

var (
	p, q         *saferith.Nat
	n            *saferith.Modulus
	mFast, mSlow *Modulus
)

func init() {
	p, _ = new(saferith.Nat).SetHex("D08769E92F80F7FDFB85EC02AFFDAED0FDE2782070757F191DCDC4D108110AC1E31C07FC253B5F7B91C5D9F203AA0572D3F2062A3D2904C535C6ACCA7D5674E1C2640720E762C72B66931F483C2D910908CF02EA6723A0CBBB1016CA696C38FEAC59B31E40584C8141889A11F7A38F5B17811D11F42CD15B8470F11C6183802B")
	q, _ = new(saferith.Nat).SetHex("C21239C3484FC3C8409F40A9A22FABFFE26CA10C27506E3E017C2EC8C4B98D7A6D30DED0686869884BE9BAD27F5241B7313F73D19E9E4B384FABF9554B5BB4D517CBAC0268420C63D545612C9ADABEEDF20F94244E7F8F2080B0C675AC98D97C580D43375F999B1AC127EC580B89B2D302EF33DD5FD8474A241B0398F6088CA7")
	nNat := new(saferith.Nat).Mul(p, q, -1)
	n = saferith.ModulusFromNat(nNat)
	mFast = ModulusFromFactors(p, q)
	mSlow = ModulusFromN(n)
}
