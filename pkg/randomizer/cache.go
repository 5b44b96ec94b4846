// Package randomizer keeps a pool of precomputed randomizers ready for use,
// refilled in the background so that expensive encryptions stay off the
// latency path of the protocols consuming them.
package randomizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/secomlib/privrec/pkg/pool"
)

var (
	// ErrUnavailable is returned by Pop when no randomizer could be produced in time.
	ErrUnavailable = errors.New("randomizer: unavailable")
	// ErrClosed is returned by Pop once the cache is closed.
	ErrClosed = errors.New("randomizer: cache closed")
	// ErrConfig is returned by New for an inconsistent Config.
	ErrConfig = errors.New("randomizer: invalid configuration")
)

// Generator produces one fresh randomizer per call.
type Generator[T any] interface {
	Generate() (T, error)
}

// GeneratorFunc adapts a function to a Generator.
type GeneratorFunc[T any] func() (T, error)

// Generate implements Generator.
func (f GeneratorFunc[T]) Generate() (T, error) {
	return f()
}

// Config sizes a Cache.
type Config struct {
	// Size is the number of randomizers a refill brings the cache up to.
	Size int
	// LowWater triggers a refill once the number of ready randomizers drops to it.
	LowWater int
	// MaxWait bounds how long Pop waits on an empty cache. Zero means no bound
	// other than the context.
	MaxWait time.Duration
}

// Validate checks Size >= 1 and 0 <= LowWater < Size.
func (c Config) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("%w: size %d < 1", ErrConfig, c.Size)
	}
	if c.LowWater < 0 || c.LowWater >= c.Size {
		return fmt.Errorf("%w: low water %d not in [0, %d)", ErrConfig, c.LowWater, c.Size)
	}
	if c.MaxWait < 0 {
		return fmt.Errorf("%w: negative max wait", ErrConfig)
	}
	return nil
}

// Cache is a FIFO of ready randomizers of type T.
//
// Every randomizer is handed out at most once. A single worker goroutine
// refills the cache; batches are generated on the pool given to New.
type Cache[T any] struct {
	cfg Config
	gen Generator[T]
	pl  *pool.Pool

	mtx   sync.Mutex
	ready []T
	// err holds the last refill failure until a waiting Pop reports it
	err error
	// notify is closed and replaced whenever ready or err changes
	notify chan struct{}
	closed bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// New starts a cache and its refill worker. The first refill starts immediately.
//
// pl may be nil, in which case randomizers are generated one after the other
// on the worker goroutine.
func New[T any](cfg Config, gen Generator[T], pl *pool.Pool) (*Cache[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, fmt.Errorf("%w: nil generator", ErrConfig)
	}
	c := &Cache[T]{
		cfg:    cfg,
		gen:    gen,
		pl:     pl,
		ready:  make([]T, 0, cfg.Size),
		notify: make(chan struct{}),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	c.trigger()
	return c, nil
}

// Len returns the number of ready randomizers.
func (c *Cache[T]) Len() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return len(c.ready)
}

// Pop removes and returns the oldest ready randomizer, waiting for a refill when
// the cache is empty.
func (c *Cache[T]) Pop(ctx context.Context) (T, error) {
	var zero T

	var timeout <-chan time.Time
	if c.cfg.MaxWait > 0 {
		timer := time.NewTimer(c.cfg.MaxWait)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		c.mtx.Lock()
		if c.closed {
			c.mtx.Unlock()
			return zero, ErrClosed
		}
		if len(c.ready) > 0 {
			v := c.ready[0]
			c.ready[0] = zero
			c.ready = c.ready[1:]
			low := len(c.ready) <= c.cfg.LowWater
			c.mtx.Unlock()
			if low {
				c.trigger()
			}
			return v, nil
		}
		if c.err != nil {
			err := c.err
			c.err = nil
			c.mtx.Unlock()
			c.trigger()
			return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		notify := c.notify
		c.mtx.Unlock()

		select {
		case <-notify:
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-timeout:
			return zero, fmt.Errorf("%w: no randomizer after %s", ErrUnavailable, c.cfg.MaxWait)
		}
	}
}

// Close stops the refill worker and discards every ready randomizer.
// Pending and later calls to Pop return ErrClosed.
func (c *Cache[T]) Close() {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return
	}
	c.closed = true
	c.ready = nil
	c.err = nil
	c.broadcast()
	c.mtx.Unlock()

	close(c.done)
	c.wg.Wait()
}

// trigger asks the worker for a refill without blocking.
func (c *Cache[T]) trigger() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// broadcast wakes every waiting Pop. c.mtx must be held.
func (c *Cache[T]) broadcast() {
	close(c.notify)
	c.notify = make(chan struct{})
}

func (c *Cache[T]) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
			c.fill()
		}
	}
}

type result[T any] struct {
	v   T
	err error
}

// generate calls the generator, turning a panic into an error reported by Pop.
func (c *Cache[T]) generate() (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()
	return c.gen.Generate()
}

// fill generates randomizers until the cache holds cfg.Size of them, or a
// generation fails.
func (c *Cache[T]) fill() {
	for {
		c.mtx.Lock()
		missing := c.cfg.Size - len(c.ready)
		if c.closed || missing <= 0 || c.err != nil {
			c.mtx.Unlock()
			return
		}
		c.mtx.Unlock()

		results := c.pl.Parallelize(missing, func(int) interface{} {
			v, err := c.generate()
			return result[T]{v: v, err: err}
		})

		c.mtx.Lock()
		if c.closed {
			c.mtx.Unlock()
			return
		}
		var failure error
		for _, r := range results {
			res := r.(result[T])
			if res.err != nil {
				if failure == nil {
					failure = res.err
				}
				continue
			}
			if len(c.ready) < c.cfg.Size {
				c.ready = append(c.ready, res.v)
			}
		}
		if failure != nil && len(c.ready) == 0 {
			c.err = failure
		}
		c.broadcast()
		c.mtx.Unlock()

		if failure != nil {
			return
		}
	}
}
