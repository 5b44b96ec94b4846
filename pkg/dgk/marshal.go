package dgk

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
)

type publicKeyMarshal struct {
	N, G, H []byte
	U       uint64
	T       int
}

type secretKeyMarshal struct {
	Public       publicKeyMarshal
	P, Q, VP, VQ []byte
}

func (pk *PublicKey) marshal() publicKeyMarshal {
	return publicKeyMarshal{
		N: pk.n.Bytes(),
		G: pk.g.Bytes(),
		H: pk.h.Bytes(),
		U: pk.u,
		T: pk.t,
	}
}

func (m *publicKeyMarshal) unmarshal() (*PublicKey, error) {
	if len(m.N) == 0 || len(m.G) == 0 || len(m.H) == 0 {
		return nil, errors.New("dgk: public key: missing field")
	}
	if m.U < 2 || m.T <= 0 {
		return nil, fmt.Errorf("%w: u = %d, t = %d", ErrParams, m.U, m.T)
	}
	n := new(big.Int).SetBytes(m.N)
	if n.Bit(0) != 1 {
		return nil, errors.New("dgk: public key: even modulus")
	}
	return newPublicKey(n, new(big.Int).SetBytes(m.G), new(big.Int).SetBytes(m.H), m.U, m.T), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	m := pk.marshal()
	return cbor.Marshal(&m)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	var m publicKeyMarshal
	if err := cbor.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("dgk: public key: %w", err)
	}
	decoded, err := m.unmarshal()
	if err != nil {
		return err
	}
	*pk = *decoded
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (sk *SecretKey) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(&secretKeyMarshal{
		Public: sk.PublicKey.marshal(),
		P:      sk.p.Bytes(),
		Q:      sk.q.Bytes(),
		VP:     sk.vp.Bytes(),
		VQ:     sk.vq.Bytes(),
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// The factors must multiply to the public modulus.
func (sk *SecretKey) UnmarshalBinary(data []byte) error {
	var m secretKeyMarshal
	if err := cbor.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("dgk: secret key: %w", err)
	}
	pk, err := m.Public.unmarshal()
	if err != nil {
		return err
	}
	p := new(big.Int).SetBytes(m.P)
	q := new(big.Int).SetBytes(m.Q)
	vp := new(big.Int).SetBytes(m.VP)
	vq := new(big.Int).SetBytes(m.VQ)
	if vp.Sign() == 0 || vq.Sign() == 0 {
		return errors.New("dgk: secret key: missing subgroup order")
	}
	if new(big.Int).Mul(p, q).Cmp(pk.n.Big()) != 0 {
		return errors.New("dgk: secret key: factors do not match modulus")
	}
	decoded := newSecretKey(pk, p, q, vp, vq)
	sk.PublicKey = decoded.PublicKey
	sk.p, sk.q, sk.pMod = decoded.p, decoded.q, decoded.pMod
	sk.vp, sk.vq = decoded.vp, decoded.vq
	sk.tableOnce = sync.Once{}
	sk.table = nil
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (ct *Ciphertext) MarshalBinary() ([]byte, error) {
	if ct == nil || ct.c == nil {
		return nil, errors.New("dgk: marshal nil ciphertext")
	}
	return ct.c.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// Range checks are left to PublicKey.ValidateCiphertexts.
func (ct *Ciphertext) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return errors.New("dgk: empty ciphertext")
	}
	ct.c = new(saferith.Nat).SetBytes(data)
	return nil
}
