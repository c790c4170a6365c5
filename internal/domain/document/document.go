package document

import (
	"fmt"
	"maps"

	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// DefaultTextField is the payload key carrying the text to encode.
const DefaultTextField = "text"

// Payload is the schema-less key/value map attached to every record.
// The core reads the text field and otherwise preserves it opaquely.
type Payload map[string]any

// Clone returns a shallow copy.
func (p Payload) Clone() Payload {
	if p == nil {
		return Payload{}
	}
	return maps.Clone(p)
}

// Text returns the string stored under field.
func (p Payload) Text(field string) (string, bool) {
	v, ok := p[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Document is an input unit of text plus its payload (immutable value object).
type Document struct {
	id      string
	text    string
	payload Payload
}

// New validates and creates a Document. The text is read from payload[textField]
// and must be a string; the payload keeps the text field.
func New(id string, payload Payload, textField string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	text, ok := payload.Text(textField)
	if !ok {
		return Document{}, fmt.Errorf("field %q is missing or not a string", textField)
	}
	return Document{id: id, text: text, payload: payload.Clone()}, nil
}

// FromText creates a Document whose payload holds only the text.
func FromText(id, text, textField string) (Document, error) {
	return New(id, Payload{textField: text}, textField)
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Text returns the text to encode.
func (d *Document) Text() string { return d.text }

// Payload returns the document payload.
func (d *Document) Payload() Payload { return d.payload }

// VectorRecord is the stored form of a Document: both vectors plus the payload.
type VectorRecord struct {
	id      string
	dense   vector.Dense
	sparse  vector.Sparse
	payload Payload
}

// NewVectorRecord validates and creates a write-path record. Both vectors are required.
func NewVectorRecord(doc *Document, dense vector.Dense, sparse vector.Sparse) (VectorRecord, error) {
	if len(dense) == 0 {
		return VectorRecord{}, fmt.Errorf("record %s: dense vector is required", doc.ID())
	}
	if err := sparse.Validate(); err != nil {
		return VectorRecord{}, fmt.Errorf("record %s: %w", doc.ID(), err)
	}
	return VectorRecord{id: doc.ID(), dense: dense, sparse: sparse, payload: doc.Payload()}, nil
}

// Reconstruct creates a VectorRecord without validation (storage hydration).
// Either vector may be empty for collections written by other tools.
func Reconstruct(id string, dense vector.Dense, sparse vector.Sparse, payload Payload) VectorRecord {
	return VectorRecord{id: id, dense: dense, sparse: sparse, payload: payload}
}

// ID returns the record identifier.
func (r *VectorRecord) ID() string { return r.id }

// Dense returns the dense vector.
func (r *VectorRecord) Dense() vector.Dense { return r.dense }

// Sparse returns the sparse vector.
func (r *VectorRecord) Sparse() vector.Sparse { return r.sparse }

// Payload returns the record payload.
func (r *VectorRecord) Payload() Payload { return r.payload }

// Page is one step of a full-collection scroll. Next is empty when the
// collection is exhausted; otherwise it is passed back to continue.
type Page struct {
	Records []VectorRecord
	Next    string
}
