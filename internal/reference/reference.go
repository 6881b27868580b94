// Package reference is the CPU implementation of elementwise modular
// exponentiation that device results are validated against.
package reference

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/modexp/internal/numeric"
)

// minChunk is the smallest number of elements handed to one worker.
const minChunk = 64

type options struct {
	workers int
}

// Option configures Exp.
type Option func(*options)

// WithWorkers caps the number of concurrent workers. Values below one select
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// Exp returns x[i]^n mod q for every element of x, in input order.
//
// Each element is reduced after every multiplication, so intermediate values
// never exceed T. The work is split into contiguous chunks that write disjoint
// ranges of the result. Exp returns only after every chunk has finished.
//
// A zero modulus with n > 0 panics with Go's native integer divide by zero
// error, raised on the calling goroutine.
func Exp[T numeric.Number](x []T, n uint64, q T, opts ...Option) []T {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	workers := cfg.workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]T, len(x))
	if len(x) == 0 {
		return out
	}

	chunk := (len(x) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < len(x); start += chunk {
		end := min(start+chunk, len(x))
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = &workerPanic{value: rec}
				}
			}()
			src, dst := x[start:end], out[start:end]
			for i, e := range src {
				dst[i] = ExpModulo(e, n, q)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if wp, ok := err.(*workerPanic); ok {
			panic(wp.value)
		}
		panic(err)
	}
	return out
}

// ExpCPU is Exp under the name the benchmark driver reports it as.
func ExpCPU[T numeric.Number](x []T, n uint64, q T, opts ...Option) []T {
	return Exp(x, n, q, opts...)
}

// ExpModulo computes e^n mod q by n rounds of multiply and reduce starting
// from one. n == 0 yields one for every e and q.
func ExpModulo[T numeric.Number](e T, n uint64, q T) T {
	f := numeric.One[T]()
	for range n {
		f = (f * e) % q
	}
	return f
}

type workerPanic struct {
	value any
}

func (p *workerPanic) Error() string {
	return fmt.Sprintf("reference worker panic: %v", p.value)
}
