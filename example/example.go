package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/secomlib/privrec/pkg/dgk"
	"github.com/secomlib/privrec/pkg/math/sample"
	"github.com/secomlib/privrec/pkg/paillier"
	"github.com/secomlib/privrec/pkg/pool"
	"github.com/secomlib/privrec/protocols/comparison"
)

// Compare runs comparisons of random l-bit pairs, checking every result with the secret key.
func Compare(ctx context.Context, cfg comparison.Config, sk *paillier.SecretKey, dgkSK *dgk.SecretKey, runs int, pl *pool.Pool, log zerolog.Logger) error {
	s, err := comparison.NewServer(cfg, sk.PublicKey, dgkSK.PublicKey, comparison.WithPool(pl), comparison.WithLogger(log))
	if err != nil {
		return err
	}
	defer s.Close()

	return Connect(ctx, s, comparison.NewClient(sk, dgkSK, comparison.WithLogger(log)), func(ctx context.Context) error {
		for i := 0; i < runs; i++ {
			a, err := sample.Uint64n(rand.Reader, uint64(1)<<uint(cfg.L))
			if err != nil {
				return err
			}
			b, err := sample.Uint64n(rand.Reader, uint64(1)<<uint(cfg.L))
			if err != nil {
				return err
			}
			encA, err := sk.EncUint64(a)
			if err != nil {
				return err
			}
			encB, err := sk.EncUint64(b)
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := s.Compare(ctx, encA, encB)
			if err != nil {
				return err
			}
			if err = check(sk, result, a >= b); err != nil {
				return fmt.Errorf("compare(%d, %d): %w", a, b, err)
			}
			log.Info().Uint64("a", a).Uint64("b", b).Bool("a>=b", a >= b).Dur("took", time.Since(start)).Msg("compare")
		}
		return nil
	})
}

// Threshold runs comparisons of random l-bit values with a fixed threshold.
func Threshold(ctx context.Context, cfg comparison.Config, sk *paillier.SecretKey, dgkSK *dgk.SecretKey, threshold uint64, runs int, pl *pool.Pool, log zerolog.Logger) error {
	s, err := comparison.NewThresholdServer(cfg, sk.PublicKey, dgkSK.PublicKey, threshold, comparison.WithPool(pl), comparison.WithLogger(log))
	if err != nil {
		return err
	}
	defer s.Close()

	return Connect(ctx, s, comparison.NewClient(sk, dgkSK, comparison.WithLogger(log)), func(ctx context.Context) error {
		for i := 0; i < runs; i++ {
			v, err := sample.Uint64n(rand.Reader, uint64(1)<<uint(cfg.L))
			if err != nil {
				return err
			}
			encV, err := sk.EncUint64(v)
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := s.CompareThreshold(ctx, encV)
			if err != nil {
				return err
			}
			if err = check(sk, result, v >= threshold); err != nil {
				return fmt.Errorf("threshold(%d): %w", v, err)
			}
			log.Info().Uint64("v", v).Uint64("threshold", threshold).Bool("v>=threshold", v >= threshold).Dur("took", time.Since(start)).Msg("threshold")
		}
		return nil
	})
}

func check(sk *paillier.SecretKey, result *paillier.Ciphertext, expected bool) error {
	m, err := sk.DecNat(result)
	if err != nil {
		return err
	}
	want := uint64(0)
	if expected {
		want = 1
	}
	if got := m.Big().Uint64(); got != want {
		return fmt.Errorf("decrypted %d, expected %d", got, want)
	}
	return nil
}
