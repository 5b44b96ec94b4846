package pool

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Parallelize(t *testing.T) {
	for _, pl := range []*Pool{nil, NewPool(0), NewPool(3)} {
		results := pl.Parallelize(50, func(i int) interface{} {
			return i * i
		})
		require.Len(t, results, 50)
		for i, r := range results {
			assert.Equal(t, i*i, r.(int))
		}
		pl.TearDown()
	}
}

func TestPool_Search(t *testing.T) {
	for _, pl := range []*Pool{nil, NewPool(4)} {
		var ctr int64
		results := pl.Search(5, func() interface{} {
			v := atomic.AddInt64(&ctr, 1)
			if v%3 != 0 {
				return nil
			}
			return v
		})
		require.Len(t, results, 5)
		seen := map[int64]bool{}
		for _, r := range results {
			v := r.(int64)
			assert.Zero(t, v%3)
			assert.False(t, seen[v], "duplicate search result")
			seen[v] = true
		}
		pl.TearDown()
	}
}

func TestPool_TearDownTwice(t *testing.T) {
	pl := NewPool(2)
	pl.TearDown()
	assert.NotPanics(t, pl.TearDown)
	var nilPool *Pool
	assert.NotPanics(t, nilPool.TearDown)
	assert.Equal(t, 1, nilPool.Workers())
}

func TestLockedReader(t *testing.T) {
	src := make([]byte, 64*32)
	for i := range src {
		src[i] = byte(i / 32)
	}
	r := NewLockedReader(bytes.NewReader(src))

	var (
		wg   sync.WaitGroup
		mtx  sync.Mutex
		seen = map[byte]bool{}
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 32)
			_, err := io.ReadFull(r, buf)
			assert.NoError(t, err)
			mtx.Lock()
			defer mtx.Unlock()
			assert.False(t, seen[buf[0]], "chunk read twice")
			seen[buf[0]] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 64)
}

func TestLockedReader_Shared(t *testing.T) {
	r := NewLockedReader(bytes.NewReader(nil))
	assert.Same(t, r, NewLockedReader(r), "wrapping a LockedReader again must keep its lock")
}
