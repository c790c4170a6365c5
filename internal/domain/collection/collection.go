package collection

import (
	"fmt"
	"regexp"
)

var (
	nameRegex  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	fieldRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
)

// Metric is the distance function of a dense vector field.
type Metric string

// MetricCosine is the only metric the retrieval core writes.
const MetricCosine Metric = "cosine"

// Schema describes the named vector fields of a collection (immutable value object).
// A collection may lack the lexical field when it was created by another tool;
// such collections stay readable in dense mode.
type Schema struct {
	name         string
	denseField   string
	dimension    int
	metric       Metric
	lexicalField string
}

// New validates and creates a Schema with a cosine dense field and a sparse lexical field.
func New(name, denseField string, dimension int, lexicalField string) (Schema, error) {
	if name == "" {
		return Schema{}, fmt.Errorf("collection name is required")
	}
	if len(name) > 64 {
		return Schema{}, fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return Schema{}, fmt.Errorf("collection name must be alphanumeric with underscores and hyphens")
	}
	if !fieldRegex.MatchString(denseField) {
		return Schema{}, fmt.Errorf("invalid dense field name %q", denseField)
	}
	if !fieldRegex.MatchString(lexicalField) {
		return Schema{}, fmt.Errorf("invalid lexical field name %q", lexicalField)
	}
	if denseField == lexicalField {
		return Schema{}, fmt.Errorf("dense and lexical fields must differ, both are %q", denseField)
	}
	if dimension <= 0 {
		return Schema{}, fmt.Errorf("vector dimension must be positive")
	}
	return Schema{
		name:         name,
		denseField:   denseField,
		dimension:    dimension,
		metric:       MetricCosine,
		lexicalField: lexicalField,
	}, nil
}

// Reconstruct creates a Schema without validation (storage hydration).
func Reconstruct(name, denseField string, dimension int, metric Metric, lexicalField string) Schema {
	return Schema{
		name:         name,
		denseField:   denseField,
		dimension:    dimension,
		metric:       metric,
		lexicalField: lexicalField,
	}
}

// Name returns the collection name.
func (s Schema) Name() string { return s.name }

// DenseField returns the dense vector field name.
func (s Schema) DenseField() string { return s.denseField }

// Dimension returns D.
func (s Schema) Dimension() int { return s.dimension }

// Metric returns the dense field distance metric.
func (s Schema) Metric() Metric { return s.metric }

// LexicalField returns the sparse vector field name, empty if absent.
func (s Schema) LexicalField() string { return s.lexicalField }

// HasLexical reports whether the collection carries a sparse field.
func (s Schema) HasLexical() bool { return s.lexicalField != "" }

// CheckCompatible verifies that an existing collection can serve this schema.
// A missing lexical field is tolerated; any other difference is an error.
func (s Schema) CheckCompatible(existing Schema) error {
	if existing.denseField != s.denseField {
		return fmt.Errorf("dense field is %q, want %q", existing.denseField, s.denseField)
	}
	if existing.dimension != s.dimension {
		return fmt.Errorf("dense dimension is %d, want %d", existing.dimension, s.dimension)
	}
	if existing.metric != s.metric {
		return fmt.Errorf("dense metric is %q, want %q", existing.metric, s.metric)
	}
	if existing.HasLexical() && existing.lexicalField != s.lexicalField {
		return fmt.Errorf("lexical field is %q, want %q", existing.lexicalField, s.lexicalField)
	}
	return nil
}
