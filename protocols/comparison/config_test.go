package comparison

import (
	"testing"
	"time"

	"github.com/secomlib/privrec/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	sk, dgkSK := test.Keys()
	pk, dgkPK := sk.PublicKey, dgkSK.PublicKey

	assert.NoError(t, DefaultConfig().Validate(pk, dgkPK))
	assert.NoError(t, testConfig(8).Validate(pk, dgkPK))

	for name, modify := range map[string]func(*Config){
		"zero l":        func(c *Config) { c.L = 0 },
		"zero s":        func(c *Config) { c.S = 0 },
		"l+s too large": func(c *Config) { c.S = 1021 - c.L },
		"u too small":   func(c *Config) { c.L = int(dgkPK.U()) },
		"empty cache":   func(c *Config) { c.CacheSize = 0 },
		"low water":     func(c *Config) { c.LowWater = c.CacheSize },
		"negative wait": func(c *Config) { c.MaxWait = -time.Second },
	} {
		cfg := testConfig(8)
		modify(&cfg)
		assert.ErrorIs(t, cfg.Validate(pk, dgkPK), ErrConfigurationInvalid, name)
	}
	assert.ErrorIs(t, testConfig(8).Validate(nil, dgkPK), ErrConfigurationInvalid)
}

func TestConfig_Threshold(t *testing.T) {
	cfg := testConfig(8)
	assert.NoError(t, cfg.validateThreshold(0))
	assert.NoError(t, cfg.validateThreshold(255))
	assert.ErrorIs(t, cfg.validateThreshold(256), ErrConfigurationInvalid)
	cfg.L = 64
	assert.NoError(t, cfg.validateThreshold(^uint64(0)))
}

func TestConfig_MarshalBinary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWait = 250 * time.Millisecond
	data, err := cfg.MarshalBinary()
	require.NoError(t, err)
	var cfg2 Config
	require.NoError(t, cfg2.UnmarshalBinary(data))
	assert.Equal(t, cfg, cfg2)
	assert.Error(t, cfg2.UnmarshalBinary([]byte{0xff}))
}
