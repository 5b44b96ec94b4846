package paillier

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
)

type publicKeyMarshal struct {
	N []byte
}

type secretKeyMarshal struct {
	P, Q []byte
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(&publicKeyMarshal{N: pk.n.Bytes()})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// The modulus must be odd, no further checks are made.
func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	var m publicKeyMarshal
	if err := cbor.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("paillier: public key: %w", err)
	}
	if len(m.N) == 0 {
		return ErrPaillierNil
	}
	n := saferith.ModulusFromBytes(m.N)
	if err := ValidateN(n, 0); err != nil {
		return fmt.Errorf("paillier: public key: %w", err)
	}
	*pk = *NewPublicKey(n)
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (sk *SecretKey) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(&secretKeyMarshal{
		P: sk.p.Bytes(),
		Q: sk.q.Bytes(),
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (sk *SecretKey) UnmarshalBinary(data []byte) error {
	var m secretKeyMarshal
	if err := cbor.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("paillier: secret key: %w", err)
	}
	if len(m.P) == 0 || len(m.Q) == 0 {
		return ErrPrimeNil
	}
	p := new(saferith.Nat).SetBytes(m.P)
	q := new(saferith.Nat).SetBytes(m.Q)
	if p.Eq(q) == 1 {
		return errors.New("paillier: secret key: identical prime factors")
	}
	*sk = *NewSecretKeyFromPrimes(p, q)
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (ct *Ciphertext) MarshalBinary() ([]byte, error) {
	if ct == nil || ct.c == nil {
		return nil, errors.New("paillier: marshal nil ciphertext")
	}
	return ct.c.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// Range checks are left to PublicKey.ValidateCiphertexts.
func (ct *Ciphertext) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return errors.New("paillier: empty ciphertext")
	}
	ct.c = new(saferith.Nat).SetBytes(data)
	return nil
}
