package comparison

import (
	"fmt"
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/secomlib/privrec/internal/params"
	"github.com/secomlib/privrec/pkg/dgk"
	"github.com/secomlib/privrec/pkg/paillier"
	"github.com/secomlib/privrec/pkg/randomizer"
)

// Config holds the parameters of a comparison server.
type Config struct {
	// L is the bit length of the compared values.
	L int
	// S is the statistical security margin of the blinding values.
	S int
	// CacheSize is the number of blinding factors kept ready.
	CacheSize int
	// LowWater is the number of ready blinding factors at which a refill starts.
	LowWater int
	// MaxWait bounds the wait for a blinding factor, zero waits as long as the context allows.
	MaxWait time.Duration
}

// DefaultConfig returns a Config for 32-bit values.
func DefaultConfig() Config {
	return Config{
		L:         params.L,
		S:         params.StatParam,
		CacheSize: params.CacheSize,
		LowWater:  params.CacheLowWater,
	}
}

func (c Config) cache() randomizer.Config {
	return randomizer.Config{
		Size:     c.CacheSize,
		LowWater: c.LowWater,
		MaxWait:  c.MaxWait,
	}
}

// Validate checks that c fits the given keys.
//
//   - 1 ⩽ L and 1 ⩽ S.
//   - z = a - b + 2ˡ + r < 2ˡ⁺¹ + 2ˡ⁺ˢ is decrypted without wrapping around N.
//   - every blinded DGK value of the bitwise comparison stays below u.
func (c Config) Validate(pk *paillier.PublicKey, dgkPK *dgk.PublicKey) error {
	if c.L < 1 {
		return fmt.Errorf("%w: bit length %d < 1", ErrConfigurationInvalid, c.L)
	}
	if c.S < 1 {
		return fmt.Errorf("%w: statistical parameter %d < 1", ErrConfigurationInvalid, c.S)
	}
	if err := c.cache().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}
	if pk == nil || dgkPK == nil {
		return fmt.Errorf("%w: missing public key", ErrConfigurationInvalid)
	}
	if have := pk.N().BitLen(); c.L+c.S+2 >= have-1 {
		return fmt.Errorf("%w: l + s = %d too large for a %d-bit Paillier modulus", ErrConfigurationInvalid, c.L+c.S, have)
	}
	// u > 3l + 3
	bound := new(big.Int).SetInt64(3*int64(c.L) + 3)
	if new(big.Int).SetUint64(dgkPK.U()).Cmp(bound) <= 0 {
		return fmt.Errorf("%w: DGK plaintext space %d too small for l = %d", ErrConfigurationInvalid, dgkPK.U(), c.L)
	}
	return nil
}

// validateThreshold checks 0 ⩽ threshold < 2ˡ.
func (c Config) validateThreshold(threshold uint64) error {
	if c.L < 64 && threshold >= uint64(1)<<uint(c.L) {
		return fmt.Errorf("%w: threshold %d does not fit in %d bits", ErrConfigurationInvalid, threshold, c.L)
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *Config) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(configMarshal(*c))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *Config) UnmarshalBinary(data []byte) error {
	var cm configMarshal
	if err := cbor.Unmarshal(data, &cm); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	*c = Config(cm)
	return nil
}

// configMarshal has the fields of Config without its methods, so that cbor
// does not recurse into MarshalBinary.
type configMarshal Config
