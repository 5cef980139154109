// Package parallel splits index ranges across goroutines for the CPU kernels
// and the optimizers.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls fan-out.
type Config struct {
	Enabled      bool // Run chunks on goroutines.
	NumWorkers   int  // Upper bound on concurrent chunks.
	MinChunkSize int  // Ranges shorter than this run inline.
}

// DefaultConfig uses every logical CPU.
func DefaultConfig() Config {
	return WithWorkers(runtime.NumCPU())
}

// WithWorkers returns a config for n workers; n <= 1 disables fan-out.
func WithWorkers(n int) Config {
	return Config{
		Enabled:      n > 1,
		NumWorkers:   max(n, 1),
		MinChunkSize: 1024,
	}
}

// ForRange calls f on disjoint [lo, hi) chunks covering [0, n) and waits.
func ForRange(n int, f func(lo, hi int), cfg Config) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || n < cfg.MinChunkSize || cfg.NumWorkers <= 1 {
		f(0, n)
		return
	}

	chunk := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(lo, hi)
		}()
	}
	wg.Wait()
}

// For calls f(i) for every i in [0, n).
func For(n int, f func(i int), cfg Config) {
	ForRange(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(i)
		}
	}, cfg)
}
