package vectorstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/collection"
	"github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

const (
	fieldPayload = "payload"
	termsSep     = ","
)

// Schema metadata hash fields.
const (
	metaName       = "name"
	metaDenseField = "dense_field"
	metaDimension  = "dimension"
	metaMetric     = "metric"
	metaLexical    = "lexical_field"
)

// recordToHash flattens a record into HSET fields.
func recordToHash(col collection.Schema, rec *document.VectorRecord) (map[string]string, error) {
	payload, err := json.Marshal(rec.Payload())
	if err != nil {
		return nil, fmt.Errorf("marshal payload %s: %w", rec.ID(), err)
	}

	m := map[string]string{
		fieldPayload:     string(payload),
		col.DenseField(): denseToBytes(rec.Dense()),
	}
	if col.HasLexical() {
		sp := rec.Sparse()
		m[col.LexicalField()] = sparseToBytes(sp)
		m[termsField(col.LexicalField())] = termsTag(sp)
	}
	return m, nil
}

// hashToRecord hydrates a record. Missing or malformed vector fields stay empty.
func hashToRecord(col collection.Schema, id string, m map[string]string) (document.VectorRecord, error) {
	payload, err := decodePayload(m[fieldPayload])
	if err != nil {
		return document.VectorRecord{}, fmt.Errorf("record %s: %w", id, err)
	}
	dense := bytesToDense(m[col.DenseField()])
	var sparse vector.Sparse
	if col.HasLexical() {
		sparse = bytesToSparse(m[col.LexicalField()])
	}
	return document.Reconstruct(id, dense, sparse, payload), nil
}

func decodePayload(raw string) (document.Payload, error) {
	if raw == "" {
		return document.Payload{}, nil
	}
	var payload document.Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}

func schemaToHash(col collection.Schema) map[string]string {
	return map[string]string{
		metaName:       col.Name(),
		metaDenseField: col.DenseField(),
		metaDimension:  strconv.Itoa(col.Dimension()),
		metaMetric:     string(col.Metric()),
		metaLexical:    col.LexicalField(),
	}
}

func schemaFromHash(m map[string]string) (collection.Schema, error) {
	dim, err := strconv.Atoi(m[metaDimension])
	if err != nil {
		return collection.Schema{}, fmt.Errorf("parse dimension %q: %w", m[metaDimension], err)
	}
	metric := collection.Metric(m[metaMetric])
	if metric == "" {
		metric = collection.MetricCosine
	}
	return collection.Reconstruct(m[metaName], m[metaDenseField], dim, metric, m[metaLexical]), nil
}

// schemaFromIndex recovers a schema from index attributes: the first vector
// field is the dense field and a "<name>_terms" tag marks the lexical field.
func schemaFromIndex(name string, def *db.IndexDefinition) (collection.Schema, error) {
	var dense *db.IndexField
	var lexical string
	for i := range def.Fields {
		f := &def.Fields[i]
		switch f.Type {
		case db.IndexFieldVector:
			if dense == nil {
				dense = f
			}
		case db.IndexFieldTag:
			if base, ok := strings.CutSuffix(f.Name, termsSuffix); ok && base != "" {
				lexical = base
			}
		}
	}
	if dense == nil {
		return collection.Schema{}, fmt.Errorf("index %s has no vector field", def.Name)
	}
	metric := collection.Metric(strings.ToLower(string(dense.VectorDistance)))
	if metric == "" {
		metric = collection.MetricCosine
	}
	return collection.Reconstruct(name, dense.Name, dense.VectorDim, metric, lexical), nil
}

// denseToBytes serializes a vector as little-endian float32.
func denseToBytes(v vector.Dense) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToDense(s string) vector.Dense {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make(vector.Dense, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// sparseToBytes writes n uint32 indices followed by n float32 values.
func sparseToBytes(sp vector.Sparse) string {
	n := sp.Len()
	buf := make([]byte, n*8)
	for i := range n {
		binary.LittleEndian.PutUint32(buf[i*4:], sp.Indices[i])
		binary.LittleEndian.PutUint32(buf[(n+i)*4:], math.Float32bits(sp.Values[i]))
	}
	return string(buf)
}

func bytesToSparse(s string) vector.Sparse {
	b := []byte(s)
	if len(b) == 0 || len(b)%8 != 0 {
		return vector.Sparse{}
	}
	n := len(b) / 8
	sp := vector.Sparse{Indices: make([]uint32, n), Values: make([]float32, n)}
	for i := range n {
		sp.Indices[i] = binary.LittleEndian.Uint32(b[i*4:])
		sp.Values[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[(n+i)*4:]))
	}
	return sp
}

func termsTag(sp vector.Sparse) string {
	return strings.Join(termStrings(sp.Indices), termsSep)
}

func termStrings(indices []uint32) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = strconv.FormatUint(uint64(idx), 10)
	}
	return out
}

func parseTerms(tag string) []string {
	if tag == "" {
		return nil
	}
	return strings.Split(tag, termsSep)
}
