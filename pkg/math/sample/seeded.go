package sample

import (
	"io"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20"
)

// seededReader is a deterministic stream of bytes, the ChaCha20 keystream for a key
// derived from a seed.
type seededReader struct {
	cipher *chacha20.Cipher
}

// NewSeededReader returns an io.Reader producing the same stream for the same seed.
//
// It is meant for reproducing a fixed random draw, for instance when checking
// a blinding tuple against its expected value. Never use a seeded reader to
// produce key material or blinding values for a live protocol.
func NewSeededReader(seed []byte) io.Reader {
	key := blake3.Sum256(seed)
	nonce := make([]byte, chacha20.NonceSize)
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce)
	if err != nil {
		// key and nonce sizes are fixed above
		panic(err)
	}
	return &seededReader{cipher: c}
}

// Read implements io.Reader.
func (r *seededReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	r.cipher.XORKeyStream(p, p)
	return len(p), nil
}
