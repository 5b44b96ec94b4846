package main

import (
	"context"
	"crypto/rand"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/secomlib/privrec/internal/params"
	"github.com/secomlib/privrec/pkg/dgk"
	"github.com/secomlib/privrec/pkg/paillier"
	"github.com/secomlib/privrec/pkg/pool"
	"github.com/secomlib/privrec/protocols/comparison"
)

func main() {
	var (
		l            = flag.Int("l", 16, "bit length of compared values")
		s            = flag.Int("s", params.StatParam, "statistical security parameter")
		paillierBits = flag.Int("paillier", 1024, "size of the Paillier modulus")
		dgkBits      = flag.Int("dgk", 1024, "size of the DGK modulus")
		runs         = flag.Int("runs", 10, "comparisons per variant")
		threshold    = flag.Uint64("threshold", 1000, "threshold of the threshold variant")
		debug        = flag.Bool("debug", false, "log every protocol step")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	pl := pool.NewPool(0)
	defer pl.TearDown()

	start := time.Now()
	pk, sk := paillier.KeyGenWithSize(rand.Reader, *paillierBits, pl)
	dgkParams := dgk.DefaultParams()
	dgkParams.Bits = *dgkBits
	_, dgkSK, err := dgk.KeyGenWithParams(rand.Reader, dgkParams, pl)
	if err != nil {
		log.Fatal().Err(err).Msg("dgk key generation")
	}
	log.Info().Dur("took", time.Since(start)).Int("paillier", pk.N().BitLen()).Int("dgk", dgkSK.N().BitLen()).Msg("keys ready")

	cfg := comparison.DefaultConfig()
	cfg.L = *l
	cfg.S = *s
	cfg.MaxWait = 30 * time.Second

	ctx := context.Background()
	if err = Compare(ctx, cfg, sk, dgkSK, *runs, pl, log); err != nil {
		log.Fatal().Err(err).Msg("comparison")
	}
	if err = Threshold(ctx, cfg, sk, dgkSK, *threshold, *runs, pl, log); err != nil {
		log.Fatal().Err(err).Msg("threshold comparison")
	}
}
