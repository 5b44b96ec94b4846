package pool

import (
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool represents a pool of workers, used for parallelizing expensive
// computations such as prime searches and randomizer generation.
//
// Functions needing a *Pool will work with a nil receiver, doing the equivalent
// work on the current goroutine instead.
//
// By creating a pool, you avoid the overhead of spinning up goroutines for
// each new operation.
type Pool struct {
	// tasks is shared by all workers, which makes it a work stealing pool.
	tasks chan func()
	// workerCount is the number of goroutines reading from tasks.
	workerCount int
	once        sync.Once
}

// NewPool creates a new pool, with a certain number of workers.
//
// If count <= 0, this will use the number of available CPUs instead.
func NewPool(count int) *Pool {
	if count <= 0 {
		count = runtime.NumCPU()
	}
	p := &Pool{
		tasks:       make(chan func()),
		workerCount: count,
	}
	for i := 0; i < count; i++ {
		go func() {
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// TearDown cleanly tears down a pool. It is safe to call more than once.
func (p *Pool) TearDown() {
	if p == nil {
		return
	}
	p.once.Do(func() { close(p.tasks) })
}

// Workers returns the number of workers, 1 for a nil pool.
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.workerCount
}

// Parallelize calls a function count times, passing in indices from 0..count-1.
//
// The result will be a slice containing [f(0), f(1), ..., f(count - 1)].
func (p *Pool) Parallelize(count int, f func(int) interface{}) []interface{} {
	results := make([]interface{}, count)
	if p == nil {
		for i := range results {
			results[i] = f(i)
		}
		return results
	}

	var wg sync.WaitGroup
	wg.Add(count)
	for i := 0; i < count; i++ {
		idx := i
		p.tasks <- func() {
			defer wg.Done()
			results[idx] = f(idx)
		}
	}
	wg.Wait()
	return results
}

// Search queries the function f, until count successes are found.
//
// f is supposed to try a single candidate, returning nil if that candidate isn't
// successful.
//
// The result will be a slice containing the first count successes.
func (p *Pool) Search(count int, f func() interface{}) []interface{} {
	results := make([]interface{}, 0, count)
	if p == nil {
		for len(results) < count {
			if res := f(); res != nil {
				results = append(results, res)
			}
		}
		return results
	}

	var (
		remaining = int64(count)
		mtx       sync.Mutex
		wg        sync.WaitGroup
	)
	wg.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.tasks <- func() {
			defer wg.Done()
			for atomic.LoadInt64(&remaining) > 0 {
				res := f()
				if res == nil {
					continue
				}
				if atomic.AddInt64(&remaining, -1) < 0 {
					return
				}
				mtx.Lock()
				results = append(results, res)
				mtx.Unlock()
			}
		}
	}
	wg.Wait()
	return results
}

// LockedReader wraps an io.Reader to be safe for concurrent reads.
//
// This means acquiring a lock whenever a read happens, so be aware of that
// for performance or concurrency reasons.
type LockedReader struct {
	reader io.Reader
	m      sync.Mutex
}

// NewLockedReader creates a LockedReader by wrapping an underlying value.
// A LockedReader is returned as is, so that every wrapper of one reader shares its lock.
func NewLockedReader(r io.Reader) *LockedReader {
	if lr, ok := r.(*LockedReader); ok {
		return lr
	}
	return &LockedReader{reader: r}
}

// Read implements io.Reader for LockedReader.
//
// When called concurrently, which caller receives which bytes is raced,
// but no two callers ever receive the same bytes.
func (r *LockedReader) Read(p []byte) (int, error) {
	r.m.Lock()
	defer r.m.Unlock()
	return r.reader.Read(p)
}
