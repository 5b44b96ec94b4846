// Package paillier implements the additively homomorphic Paillier cryptosystem
// over constant-time saferith arithmetic.
package paillier

import (
	"io"

	"github.com/secomlib/privrec/internal/params"
	"github.com/secomlib/privrec/pkg/math/sample"
	"github.com/secomlib/privrec/pkg/pool"
)

// KeyGen generates a new PublicKey and its associated SecretKey, with a modulus
// of params.BitsPaillier bits.
func KeyGen(rand io.Reader, pl *pool.Pool) (pk *PublicKey, sk *SecretKey) {
	return KeyGenWithSize(rand, params.BitsPaillier, pl)
}

// KeyGenWithSize generates a key pair whose modulus is bits long.
func KeyGenWithSize(rand io.Reader, bits int, pl *pool.Pool) (pk *PublicKey, sk *SecretKey) {
	sk = NewSecretKeyFromPrimes(sample.Paillier(rand, bits/2, pl))
	pk = sk.PublicKey
	return
}
