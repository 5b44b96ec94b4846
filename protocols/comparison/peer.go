package comparison

import (
	"context"

	"github.com/google/uuid"
	"github.com/secomlib/privrec/internal/hash"
	"github.com/secomlib/privrec/pkg/dgk"
	"github.com/secomlib/privrec/pkg/paillier"
)

// MaskedValue is sent to the peer: [z] = [a - b + 2ˡ + r].
type MaskedValue struct {
	Session uuid.UUID
	L       int
	Z       *paillier.Ciphertext
}

// MaskedShares is the peer's answer to a MaskedValue, with d = z mod 2ˡ:
// High = [⌊z / 2ˡ⌋] under Paillier and Bits[i] = [dᵢ] under DGK, least significant first.
type MaskedShares struct {
	High *paillier.Ciphertext
	Bits []*dgk.Ciphertext
}

// BlindedBits are the blinded DGK values of the bitwise comparison, in random order.
type BlindedBits struct {
	Session uuid.UUID
	C       []*dgk.Ciphertext
}

// ZeroChecker answers the bitwise comparison: it returns a Paillier encryption
// of 1 if one of the values encrypts 0, and of 0 otherwise.
type ZeroChecker interface {
	ZeroCheck(ctx context.Context, b *BlindedBits) (*paillier.Ciphertext, error)
}

// Peer is the party holding both secret keys.
type Peer interface {
	// Unblind decrypts a masked value and returns its high part and the bits of its low part.
	Unblind(ctx context.Context, m *MaskedValue) (*MaskedShares, error)
	ZeroChecker
}

// peerRef and checkerRef let a nil interface be stored in an atomic.Pointer.
type peerRef struct{ Peer }

type checkerRef struct{ ZeroChecker }

// KeyFingerprint identifies the pair of public keys a comparison runs under.
// Both parties must compute the same value.
func KeyFingerprint(pk *paillier.PublicKey, dgkPK *dgk.PublicKey) []byte {
	return hash.New(
		hash.BytesWithDomain{TheDomain: "Paillier", Bytes: pk.Fingerprint()},
		hash.BytesWithDomain{TheDomain: "DGK", Bytes: dgkPK.Fingerprint()},
	).Sum()
}
