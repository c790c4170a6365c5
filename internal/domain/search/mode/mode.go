package mode

import (
	"fmt"
	"strings"
)

// Mode is the retrieval strategy.
type Mode string

// Search mode constants.
const (
	// Dense ranks by cosine similarity of dense embeddings.
	Dense Mode = "dense"
	// Sparse ranks by weighted term overlap.
	Sparse Mode = "sparse"
	// Hybrid runs both and fuses the rankings.
	Hybrid Mode = "hybrid"
)

// All lists every supported mode.
func All() []Mode { return []Mode{Dense, Sparse, Hybrid} }

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	switch m {
	case Dense, Sparse, Hybrid:
		return true
	}
	return false
}

// NeedsDense reports whether the mode encodes the query densely.
func (m Mode) NeedsDense() bool { return m == Dense || m == Hybrid }

// NeedsSparse reports whether the mode encodes the query lexically.
func (m Mode) NeedsSparse() bool { return m == Sparse || m == Hybrid }

// Parse maps a case-insensitive name to a Mode. Empty input returns fallback.
func Parse(s string, fallback Mode) (Mode, error) {
	if s == "" {
		return fallback, nil
	}
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("unknown search mode %q (want dense, sparse or hybrid)", s)
	}
	return m, nil
}
