package vector

import (
	"fmt"
	"math"
	"slices"
)

// Sparse is a weighted term vector: parallel index and value slices.
type Sparse struct {
	Indices []uint32
	Values  []float32
}

// NewSparse builds a Sparse from term weights, sorted by index ascending.
// Non-positive weights are dropped.
func NewSparse(weights map[uint32]float32) Sparse {
	idx := make([]uint32, 0, len(weights))
	for i, w := range weights {
		if w > 0 {
			idx = append(idx, i)
		}
	}
	slices.Sort(idx)

	vals := make([]float32, len(idx))
	for j, i := range idx {
		vals[j] = weights[i]
	}
	return Sparse{Indices: idx, Values: vals}
}

// Len returns the number of non-zero terms.
func (s Sparse) Len() int { return len(s.Indices) }

// IsEmpty reports whether the vector has no terms.
func (s Sparse) IsEmpty() bool { return len(s.Indices) == 0 }

// Validate checks the structural invariants: equal lengths, unique indices,
// non-negative finite values.
func (s Sparse) Validate() error {
	if len(s.Indices) != len(s.Values) {
		return fmt.Errorf("sparse vector has %d indices but %d values", len(s.Indices), len(s.Values))
	}
	seen := make(map[uint32]struct{}, len(s.Indices))
	for i, idx := range s.Indices {
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("duplicate sparse index %d", idx)
		}
		seen[idx] = struct{}{}

		v := float64(s.Values[i])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("sparse value at index %d is not finite", idx)
		}
		if v < 0 {
			return fmt.Errorf("sparse value at index %d is negative", idx)
		}
	}
	return nil
}

// Weights returns the vector as an index→value map.
func (s Sparse) Weights() map[uint32]float32 {
	m := make(map[uint32]float32, len(s.Indices))
	for i, idx := range s.Indices {
		m[idx] = s.Values[i]
	}
	return m
}

// Dot returns the inner product over shared indices.
func (s Sparse) Dot(o Sparse) float64 {
	if s.Len() > o.Len() {
		s, o = o, s
	}
	w := s.Weights()
	var sum float64
	for i, idx := range o.Indices {
		if v, ok := w[idx]; ok {
			sum += float64(v) * float64(o.Values[i])
		}
	}
	return sum
}
