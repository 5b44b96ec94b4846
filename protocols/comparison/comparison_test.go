package comparison

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/secomlib/privrec/internal/test"
	"github.com/secomlib/privrec/pkg/paillier"
	"github.com/stretchr/testify/require"
)

func testConfig(l int) Config {
	return Config{
		L:         l,
		S:         40,
		CacheSize: 4,
		LowWater:  1,
	}
}

// newPair returns a server for l-bit values, with a client set as its peer.
func newPair(t *testing.T, l int, opts ...Option) (*Server, *Client) {
	sk, dgkSK := test.Keys()
	s, err := NewServer(testConfig(l), sk.PublicKey, dgkSK.PublicKey, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	c := NewClient(sk, dgkSK)
	s.SetPeer(c)
	return s, c
}

func encrypt(t testing.TB, pk *paillier.PublicKey, m uint64) *paillier.Ciphertext {
	ct, err := pk.EncUint64(m)
	require.NoError(t, err)
	return ct
}

func decrypt(t testing.TB, sk *paillier.SecretKey, ct *paillier.Ciphertext) uint64 {
	require.NotNil(t, ct)
	m, err := sk.Dec(ct)
	require.NoError(t, err)
	return m.Big().Uint64()
}

func compare(t *testing.T, s *Server, a, b uint64) uint64 {
	sk, _ := test.Keys()
	result, err := s.Compare(context.Background(), encrypt(t, sk.PublicKey, a), encrypt(t, sk.PublicKey, b))
	require.NoError(t, err)
	return decrypt(t, sk, result)
}

func bigNat(x uint64) *saferith.Nat {
	return new(saferith.Nat).SetUint64(x)
}

// limitedReader reads from crypto/rand until limit bytes have been read, and fails
// afterwards. A negative limit never runs out.
type limitedReader struct {
	mtx   sync.Mutex
	limit int
}

func (r *limitedReader) Read(p []byte) (int, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.limit >= 0 {
		if len(p) > r.limit {
			return 0, errors.New("randomness exhausted")
		}
		r.limit -= len(p)
	}
	return rand.Read(p)
}

func (r *limitedReader) setLimit(limit int) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.limit = limit
}
