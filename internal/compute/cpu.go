package compute

import (
	"fmt"
	"runtime"

	"github.com/san-kum/dilasim/internal/dynamo"
	"github.com/san-kum/dilasim/internal/kernel"
)

// minChunk keeps tiny stores on a single goroutine.
const minChunk = 256

type CPUBackend struct {
	workers int
}

func NewCPUBackend(workers int) *CPUBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{
		workers: workers,
	}
}

func (c *CPUBackend) Name() string {
	if c.workers == 1 {
		return "serial"
	}
	return fmt.Sprintf("cpu (%d workers)", c.workers)
}

func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

// Dispatch reads only src and writes only dst, so every particle sees its
// neighbours' pre-step values no matter how the chunks are scheduled.
func (c *CPUBackend) Dispatch(src, dst []dynamo.Particle, cfg dynamo.StepConfig) (int, error) {
	n := len(src)
	if len(dst) != n {
		return 0, fmt.Errorf("%w: %w: src has %d particles, dst %d", dynamo.ErrBackend, dynamo.ErrLengthMismatch, n, len(dst))
	}
	if n == 0 {
		return 0, nil
	}

	active := make([]int, c.workers)
	failures := make([]error, c.workers)

	dynamo.ParallelFor(n, c.workers, minChunk, func(worker, start, end int) {
		defer func() {
			if r := recover(); r != nil {
				failures[worker] = fmt.Errorf("%w: worker %d panicked: %v", dynamo.ErrBackend, worker, r)
			}
		}()

		count := 0
		for i := start; i < end; i++ {
			if kernel.Process(i, src, dst, cfg) {
				count++
			}
		}
		active[worker] = count
	})

	total := 0
	for w := 0; w < c.workers; w++ {
		if failures[w] != nil {
			return 0, failures[w]
		}
		total += active[w]
	}

	return total, nil
}
