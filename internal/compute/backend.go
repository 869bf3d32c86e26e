package compute

import (
	"fmt"
	"runtime"

	"github.com/san-kum/dilasim/internal/dynamo"
)

// Backend executes one step of the kernel over every particle. Dispatch
// blocks until all particles of the step are written. Cleanup releases the
// backend once its owner is done with it.
type Backend interface {
	Name() string
	Available() bool
	Dispatch(src, dst []dynamo.Particle, cfg dynamo.StepConfig) (active int, err error)
	Cleanup()
}

// New returns the backend registered under name. workers <= 0 means one
// worker per CPU.
func New(name string, workers int) (Backend, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var b Backend
	switch name {
	case "", "cpu":
		b = NewCPUBackend(workers)
	case "serial":
		b = NewCPUBackend(1)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", dynamo.ErrBackend, name)
	}
	if !b.Available() {
		return nil, fmt.Errorf("%w: backend %q is not available on this host", dynamo.ErrBackend, name)
	}
	return b, nil
}

func ListBackends() []string {
	return []string{"cpu", "serial"}
}
