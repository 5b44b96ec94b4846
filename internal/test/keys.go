// Package test holds helpers shared by the tests of several packages.
package test

import (
	"crypto/rand"
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/secomlib/privrec/pkg/dgk"
	"github.com/secomlib/privrec/pkg/paillier"
	"github.com/secomlib/privrec/pkg/pool"
)

// DGKParams are small DGK parameters, fast to generate.
var DGKParams = dgk.Params{Bits: 1024, T: 160, UBits: 16}

// PaillierBits is the size of the test Paillier modulus.
const PaillierBits = 1024

var (
	keysOnce    sync.Once
	paillierKey *paillier.SecretKey
	dgkKey      *dgk.SecretKey
)

// Keys returns a Paillier and a DGK secret key, generated once per test binary.
//
// The Paillier primes are not safe primes, which is enough for testing the
// protocols built on top of it and much faster to generate.
func Keys() (*paillier.SecretKey, *dgk.SecretKey) {
	keysOnce.Do(func() {
		pl := pool.NewPool(0)
		defer pl.TearDown()

		var err error
		_, dgkKey, err = dgk.KeyGenWithParams(rand.Reader, DGKParams, pl)
		if err != nil {
			panic(err)
		}

		for paillierKey == nil {
			p, err := rand.Prime(rand.Reader, PaillierBits/2)
			if err != nil {
				panic(err)
			}
			q, err := rand.Prime(rand.Reader, PaillierBits/2)
			if err != nil {
				panic(err)
			}
			if p.Cmp(q) == 0 {
				continue
			}
			paillierKey = paillier.NewSecretKeyFromPrimes(
				new(saferith.Nat).SetBig(p, PaillierBits/2),
				new(saferith.Nat).SetBig(q, PaillierBits/2),
			)
		}
	})
	return paillierKey, dgkKey
}
