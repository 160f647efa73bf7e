package solver

import "math"

// Sampler draws chance outcomes and single-action samples for the Monte
// Carlo CFR policies, using a caller-supplied per-goroutine RNG so sampling
// never contends a shared lock (one of the three suspension points the
// concurrency model allows is per-thread RNG sampling with no lock).
type Sampler struct {
	rng *PCG32
}

// NewSampler wraps a fast per-goroutine RNG for sampling use.
func NewSampler(rng *PCG32) *Sampler {
	return &Sampler{rng: rng}
}

// SampleSubset implements the "chance" policy: choose
// k = max(1, round(width*prob)) indices out of [0,width) without
// replacement via reservoir sampling, falling back to full enumeration
// (every index, weight 1) once k >= width.
func (s *Sampler) SampleSubset(width int, prob float64) (indices []int, weight float64) {
	k := int(math.Round(float64(width) * prob))
	if k < 1 {
		k = 1
	}
	if k >= width {
		return allIndices(width), 1
	}

	reservoir := make([]int, k)
	for i := 0; i < k; i++ {
		reservoir[i] = i
	}
	for i := k; i < width; i++ {
		j := int(s.rng.Intn(i + 1))
		if j < k {
			reservoir[j] = i
		}
	}
	return reservoir, 1.0 / float64(k)
}

// SampleOne implements the "outcome" policy: pick exactly one index out of
// [0,width) uniformly at random.
func (s *Sampler) SampleOne(width int) int {
	return s.rng.Intn(width)
}

// SampleByWeights picks one index according to the given (not necessarily
// normalized) non-negative weights, falling back to a uniform pick if every
// weight is zero or the slice is empty.
func (s *Sampler) SampleByWeights(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return s.SampleOne(len(weights))
	}
	target := s.rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if target < cum {
			return i
		}
	}
	return len(weights) - 1
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
