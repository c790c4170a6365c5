// Package vector holds the dense and sparse vector value types shared by
// encoders, the store gateway and the retrieval layer.
package vector

import (
	"errors"
	"fmt"
	"math"
)

// Dense is an L2-normalized embedding of fixed width.
type Dense []float32

var (
	errZeroNorm  = errors.New("vector has zero norm")
	errNonFinite = errors.New("vector contains NaN or Inf")
)

// Normalize returns a unit-length copy of v.
func Normalize(v []float32) (Dense, error) {
	var sum float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errNonFinite
		}
		sum += f * f
	}
	if sum == 0 {
		return nil, errZeroNorm
	}
	norm := math.Sqrt(sum)
	out := make(Dense, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// Fit projects a raw model output onto exactly dim components: wider vectors are
// truncated to the first dim components and re-normalized, narrower ones are rejected.
func Fit(raw []float32, dim int) (Dense, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if len(raw) < dim {
		return nil, fmt.Errorf("vector width %d is below dimension %d", len(raw), dim)
	}
	return Normalize(raw[:dim])
}

// Norm returns the L2 norm.
func (d Dense) Norm() float64 {
	var sum float64
	for _, x := range d {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product; for unit vectors this is the cosine similarity.
func (d Dense) Dot(o Dense) float64 {
	n := min(len(d), len(o))
	var sum float64
	for i := range n {
		sum += float64(d[i]) * float64(o[i])
	}
	return sum
}
