// Package kernel implements the per-particle work of one step.
//
// A step for particle i is:
//
//	force, tension := kernel.Estimate(i, src, cfg) // Monte-Carlo neighbour sampling
//	moved := kernel.Dilate(&dst[i], tension, force, cfg)
//
// [Estimate] samples cfg.Samples neighbours chosen by [Sample], a pure hash of
// (i, seed, trial), so a fixed seed reproduces the same samples. [Dilate] is a
// leaky bucket: the dilation factor from [Factor] is added to the time debt
// and the particle integrates whenever the debt reaches 1.0.
//
// Every function here is stateless and safe to call from many goroutines as
// long as each goroutine writes a distinct dst index.
package kernel
