package sample

import (
	"io"
	"math"
	"math/big"
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/secomlib/privrec/pkg/pool"
)

// primes generates an array containing all the odd prime numbers < below
func primes(below uint32) []uint32 {
	sieve := make([]bool, below)
	for i := 2; i < len(sieve); i++ {
		sieve[i] = true
	}
	for p := 2; p*p < len(sieve); p++ {
		if !sieve[p] {
			continue
		}
		for i := p << 1; i < len(sieve); i += p {
			sieve[i] = false
		}
	}
	// There are approximately N / log N primes below N
	nF := float64(below)
	out := make([]uint32, 0, int(nF/math.Log(nF)))
	for p := uint32(3); p < below; p++ {
		if sieve[p] {
			out = append(out, p)
		}
	}
	return out
}

// The number of numbers to check after our initial prime guess
const sieveSize = 1 << 18

// The upper bound on the prime numbers used for sieving
const primeBound = 1 << 20

// the number of iterations to use when checking primality
//
// 20 is the same number that Go uses internally.
const primalityIterations = 20

var thePrimes []uint32
var initPrimes sync.Once

var sievePool = sync.Pool{
	New: func() interface{} {
		sieve := make([]bool, sieveSize)
		return &sieve
	},
}

// tryBlumPrime attempts to find a safe prime p ≡ 3 (mod 4) of the given size,
// by sieving a window after a random starting point. It returns nil when the
// window contains no candidate.
func tryBlumPrime(rand io.Reader, bits int) *saferith.Nat {
	initPrimes.Do(func() {
		thePrimes = primes(primeBound)
	})

	bytes := make([]byte, (bits+7)/8)
	if _, err := io.ReadFull(rand, bytes); err != nil {
		return nil
	}
	if extra := len(bytes)*8 - bits; extra > 0 {
		bytes[0] &= 0xff >> uint(extra)
	}
	// p ≡ 3 (mod 4)
	bytes[len(bytes)-1] |= 3
	// Setting the top two bits makes p⋅q exactly 2⋅bits long.
	top := uint((bits - 1) % 8)
	bytes[0] |= 1 << top
	if top > 0 {
		bytes[0] |= 1 << (top - 1)
	} else if len(bytes) > 1 {
		bytes[1] |= 0x80
	}
	base := new(big.Int).SetBytes(bytes)

	sievePtr := sievePool.Get().(*[]bool)
	sieve := *sievePtr
	defer sievePool.Put(sievePtr)
	for i := 0; i < len(sieve); i++ {
		sieve[i] = true
	}
	// Remove candidates that aren't 3 mod 4
	for i := 1; i+2 < len(sieve); i += 4 {
		sieve[i] = false
		sieve[i+1] = false
		sieve[i+2] = false
	}
	remainder := new(big.Int)
	for _, prime := range thePrimes {
		// x ≡ 0 (mod r) means x is composite, x ≡ 1 (mod r) means (x-1)/2 is.
		remainder.SetUint64(uint64(prime))
		remainder.Mod(base, remainder)
		r := int(remainder.Uint64())
		primeInt := int(prime)
		firstMultiple := primeInt - r
		if r == 0 {
			firstMultiple = 0
		}
		for i := firstMultiple; i+1 < len(sieve); i += primeInt {
			sieve[i] = false
			sieve[i+1] = false
		}
	}
	p := new(big.Int)
	q := new(big.Int)
	for delta := 0; delta < len(sieve); delta++ {
		if !sieve[delta] {
			continue
		}
		p.SetUint64(uint64(delta))
		p.Add(p, base)
		if p.BitLen() > bits {
			return nil
		}
		q.Rsh(p, 1)
		// q fails more often than p, test it first
		if !q.ProbablyPrime(primalityIterations) {
			continue
		}
		// a single Miller-Rabin round suffices once q is known prime
		if !p.ProbablyPrime(0) {
			continue
		}
		return new(saferith.Nat).SetBig(p, bits)
	}
	return nil
}

// Paillier generates the two primes of a Paillier modulus, each of the given size.
// p, q are safe primes ((p - 1) / 2 is also prime), and Blum primes (p = 3 mod 4).
func Paillier(rand io.Reader, bits int, pl *pool.Pool) (p, q *saferith.Nat) {
	reader := pool.NewLockedReader(rand)
	results := pl.Search(2, func() interface{} {
		q := tryBlumPrime(reader, bits)
		// a typed nil would not compare equal to nil
		if q == nil {
			return nil
		}
		return q
	})
	p, q = results[0].(*saferith.Nat), results[1].(*saferith.Nat)
	return
}

// PrimeWithFactor searches for a prime p of the given size such that f | p - 1.
// p is of the form 2⋅f⋅k + 1 for a random k.
func PrimeWithFactor(rand io.Reader, bits int, f *big.Int, pl *pool.Pool) *big.Int {
	twoF := new(big.Int).Lsh(f, 1)
	kBits := bits - twoF.BitLen()
	if kBits < 2 {
		panic("sample: PrimeWithFactor: factor too large for requested size")
	}
	reader := pool.NewLockedReader(rand)
	one := big.NewInt(1)
	results := pl.Search(1, func() interface{} {
		k := BigBits(reader, kBits)
		k.SetBit(k, kBits-1, 1)
		p := new(big.Int).Mul(twoF, k)
		p.Add(p, one)
		if p.BitLen() != bits {
			return nil
		}
		if !p.ProbablyPrime(primalityIterations) {
			return nil
		}
		return p
	})
	return results[0].(*big.Int)
}
