package sample

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"
)

const maxIterations = 255

var ErrMaxIterations = fmt.Errorf("sample: failed to generate after %d iterations", maxIterations)

func mustReadBits(rand io.Reader, buf []byte) {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return
		}
	}
	panic(ErrMaxIterations)
}

// ReadBits reads enough bytes from rand to fill buf, failing after a bounded number of tries.
func ReadBits(rand io.Reader, buf []byte) error {
	var err error
	for i := 0; i < maxIterations; i++ {
		if _, err = io.ReadFull(rand, buf); err == nil {
			return nil
		}
	}
	return fmt.Errorf("sample: read randomness: %w", err)
}

// ModN samples an element of ℤₙ.
func ModN(rand io.Reader, n *saferith.Modulus) *saferith.Nat {
	out, err := TryModN(rand, n)
	if err != nil {
		panic(ErrMaxIterations)
	}
	return out
}

// TryModN is ModN, returning an error instead of panicking when rand fails.
func TryModN(rand io.Reader, n *saferith.Modulus) (*saferith.Nat, error) {
	out := new(saferith.Nat)
	buf := make([]byte, (n.BitLen()+7)/8)
	for {
		if err := ReadBits(rand, buf); err != nil {
			return nil, err
		}
		out.SetBytes(buf)
		_, _, lt := out.CmpMod(n)
		if lt == 1 {
			return out, nil
		}
	}
}

// UnitModN returns a u ∈ ℤₙˣ.
func UnitModN(rand io.Reader, n *saferith.Modulus) *saferith.Nat {
	u, err := TryUnitModN(rand, n)
	if err != nil {
		panic(err)
	}
	return u
}

// TryUnitModN is UnitModN, returning an error instead of panicking when rand fails.
func TryUnitModN(rand io.Reader, n *saferith.Modulus) (*saferith.Nat, error) {
	for i := 0; i < maxIterations; i++ {
		u, err := TryModN(rand, n)
		if err != nil {
			return nil, err
		}
		if u.IsUnit(n) == 1 {
			return u, nil
		}
	}
	return nil, ErrMaxIterations
}

// NonZeroModN returns x ∈ [1, n).
func NonZeroModN(rand io.Reader, n *saferith.Modulus) *saferith.Nat {
	for i := 0; i < maxIterations; i++ {
		x := ModN(rand, n)
		if x.EqZero() != 1 {
			return x
		}
	}
	panic(ErrMaxIterations)
}

// Bits returns a uniform x ∈ [0, 2ᵇⁱᵗˢ).
func Bits(rand io.Reader, bits int) (*saferith.Nat, error) {
	buf := make([]byte, (bits+7)/8)
	if err := ReadBits(rand, buf); err != nil {
		return nil, err
	}
	if extra := len(buf)*8 - bits; extra > 0 {
		buf[0] &= 0xff >> uint(extra)
	}
	return new(saferith.Nat).SetBytes(buf).Resize(bits), nil
}

// BigBits returns a uniform x ∈ [0, 2ᵇⁱᵗˢ) as a big.Int, for key generation code.
func BigBits(rand io.Reader, bits int) *big.Int {
	buf := make([]byte, (bits+7)/8)
	mustReadBits(rand, buf)
	if extra := len(buf)*8 - bits; extra > 0 {
		buf[0] &= 0xff >> uint(extra)
	}
	return new(big.Int).SetBytes(buf)
}

// Bit returns a uniform bit.
func Bit(rand io.Reader) (uint, error) {
	var buf [1]byte
	if err := ReadBits(rand, buf[:]); err != nil {
		return 0, err
	}
	return uint(buf[0] & 1), nil
}

// Uint64n returns a uniform integer in [0, n), n > 0, using rejection sampling.
func Uint64n(rand io.Reader, n uint64) (uint64, error) {
	if n == 0 {
		return 0, fmt.Errorf("sample: Uint64n called with n = 0")
	}
	// largest multiple of n that fits in 64 bits
	limit := ^uint64(0) - (^uint64(0) % n)
	var buf [8]byte
	for i := 0; i < maxIterations; i++ {
		if err := ReadBits(rand, buf[:]); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return v % n, nil
		}
	}
	return 0, ErrMaxIterations
}

// Permutation returns a uniform permutation of [0, n) using Fisher–Yates.
func Permutation(rand io.Reader, n int) ([]int, error) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := Uint64n(rand, uint64(i+1))
		if err != nil {
			return nil, err
		}
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm, nil
}
