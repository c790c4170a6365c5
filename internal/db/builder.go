package db

import (
	"strconv"
	"strings"
)

// IndexBuilder assembles an IndexDefinition field by field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a definition for the named index.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix limits the index to keys starting with any of prefixes.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Tag adds a TAG field.
func (b *IndexBuilder) Tag(name, separator string, caseSensitive bool) *IndexBuilder {
	return b.field(IndexField{
		Name:             name,
		Type:             IndexFieldTag,
		TagSeparator:     separator,
		TagCaseSensitive: caseSensitive,
	})
}

// VectorHNSW adds an HNSW vector field. Zero m or efConstruct keeps the
// server default.
func (b *IndexBuilder) VectorHNSW(name string, dim int, distance DistanceMetric, m, efConstruct int) *IndexBuilder {
	f := vectorField(name, VectorHNSW, dim, distance)
	f.VectorM, f.VectorEFConstruct = m, efConstruct
	return b.field(f)
}

// VectorFlat adds a brute-force vector field.
func (b *IndexBuilder) VectorFlat(name string, dim int, distance DistanceMetric) *IndexBuilder {
	return b.field(vectorField(name, VectorFlat, dim, distance))
}

// Build returns the definition once it passes Validate.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	def := b.def
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (b *IndexBuilder) field(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

func vectorField(name string, algo VectorAlgorithm, dim int, distance DistanceMetric) IndexField {
	return IndexField{
		Name:           name,
		Type:           IndexFieldVector,
		VectorAlgo:     algo,
		VectorDim:      dim,
		VectorDistance: distance,
	}
}

// String renders a short FT.CREATE form for logs and error messages.
func (idx *IndexDefinition) String() string {
	var sb strings.Builder
	sb.WriteString("FT.CREATE ")
	sb.WriteString(idx.Name)
	sb.WriteString(" ON HASH")
	if len(idx.Prefixes) > 0 {
		sb.WriteString(" PREFIX ")
		sb.WriteString(strings.Join(idx.Prefixes, " "))
	}
	sb.WriteString(" SCHEMA")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		sb.WriteByte(' ')
		sb.WriteString(f.Name)
		switch f.Type {
		case IndexFieldTag:
			sb.WriteString(" TAG")
		case IndexFieldVector:
			sb.WriteString(" VECTOR ")
			sb.WriteString(string(f.VectorAlgo))
			sb.WriteString(" DIM ")
			sb.WriteString(strconv.Itoa(f.VectorDim))
		}
	}
	return sb.String()
}
