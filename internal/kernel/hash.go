package kernel

// pcg is the PCG-RXS-M-XS permutation used as a stateless 32-bit hash.
func pcg(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// Hash maps (particle index, time seed, trial) to a value uniform in [0, 1).
// It is a pure function of its inputs.
func Hash(index int, seed uint32, trial int) float64 {
	h := pcg(uint32(index) ^ pcg(seed^pcg(uint32(trial))))
	return float64(h) / 4294967296.0
}

// Sample picks the neighbour index drawn by one trial. n must be positive.
func Sample(index int, seed uint32, trial, n int) int {
	j := int(Hash(index, seed, trial) * float64(n))
	if j >= n {
		j = n - 1
	}
	return j
}
