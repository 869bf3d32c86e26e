// Package dynamo provides the core data model for dilated N-body runs.
//
// The package defines the types shared by every other package:
//
//   - [Particle]: one body with position, velocity, type tag and time debt
//   - [Constants]: force-law and scheduler constants
//   - [StepConfig]: the per-step uniform block consumed by the kernel
//   - [RunConfig]: a whole run (step count, seed, mode, sensitivity)
//
// # Time Debt
//
// Each step a particle adds its dilation factor to TimeDebt. When the debt
// reaches 1.0 the particle integrates and the debt drops by exactly 1.0:
//
//	p.TimeDebt += factor
//	if p.TimeDebt >= 1 {
//	    p.TimeDebt -= 1
//	    // integrate
//	}
//
// # Thread Safety
//
// Particle slices are plain values. A slice must be owned by one run at a
// time; use [Clone] to hand the same initial set to several runs.
package dynamo
