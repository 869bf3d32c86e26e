// Package compute provides the parallel execution backends for a step.
//
// A backend launches one stateless kernel invocation per particle and waits
// for all of them before returning:
//
//   - cpu: particles split into contiguous chunks, one goroutine per chunk
//   - serial: a single worker, useful as a reference
//
// # Double Buffering
//
// Dispatch takes the pre-step snapshot and a destination slice. The caller
// swaps them after every step:
//
//	backend, _ := compute.New("cpu", 0)
//	active, err := backend.Dispatch(cur, next, cfg.Step(i))
//	cur, next = next, cur
//
// Because no worker reads what another worker writes, results are
// bit-identical for any worker count.
package compute
