package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/semsearch/internal/db"
)

// CreateIndex runs FT.CREATE for def. An existing index yields db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := createArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return s.wrap(db.OpCreateIndex, err)
	}
	return nil
}

// DropIndex removes an FT index by name. Indexed hashes are left in place.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return db.ErrIndexNotFound
		}
		return s.wrap(db.OpDropIndex, err)
	}
	return nil
}

// IndexExists probes the index with FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return false, nil
		}
		return false, s.wrap(db.OpIndexInfo, err)
	}
	return true, nil
}

// Redis answers "Unknown index name", Valkey "Index ... not found".
func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name") || isRedisErr(err, "not found")
}

// createArgs renders: name ON HASH [PREFIX n p...] SCHEMA field...
func createArgs(def *db.IndexDefinition) ([]string, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("index %q: %w", def.Name, err)
	}

	args := make([]string, 0, 4+len(def.Prefixes)+12*len(def.Fields))
	args = append(args, def.Name, "ON", "HASH")
	if n := len(def.Prefixes); n > 0 {
		args = append(args, "PREFIX", strconv.Itoa(n))
		args = append(args, def.Prefixes...)
	}
	args = append(args, "SCHEMA")

	for i := range def.Fields {
		f := &def.Fields[i]
		switch f.Type {
		case db.IndexFieldTag:
			args = appendTag(args, f)
		case db.IndexFieldVector:
			args = appendVector(args, f)
		default:
			return nil, fmt.Errorf("index %q: field %s has unknown type %d", def.Name, f.Name, f.Type)
		}
	}
	return args, nil
}

func appendTag(args []string, f *db.IndexField) []string {
	args = append(args, f.Name, "TAG")
	if f.TagSeparator != "" {
		args = append(args, "SEPARATOR", f.TagSeparator)
	}
	if f.TagCaseSensitive {
		args = append(args, "CASESENSITIVE")
	}
	return args
}

// appendVector writes "name VECTOR algo nattrs attrs...". FLOAT32 is the only
// element type the gateway encodes.
func appendVector(args []string, f *db.IndexField) []string {
	algo := f.VectorAlgo
	if algo == "" {
		algo = db.VectorHNSW
	}
	distance := f.VectorDistance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == db.VectorHNSW {
		if f.VectorM > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
		}
		if f.VectorEFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
		}
	}

	args = append(args, f.Name, "VECTOR", string(algo), strconv.Itoa(len(attrs)))
	return append(args, attrs...)
}

// IndexInfo runs FT.INFO and rebuilds the field list from its attributes.
// Attributes arrive as flat key/value lists (Redis) or with nested vector
// parameters (valkey-search), as arrays under RESP2 or maps under RESP3, so
// every attribute is flattened before reading.
func (s *Store) IndexInfo(ctx context.Context, name string) (*db.IndexDefinition, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	info, err := s.do(ctx, cmd).AsMap()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, s.wrap(db.OpIndexInfo, err)
	}

	def := &db.IndexDefinition{Name: name}
	for key, val := range info {
		if !strings.EqualFold(key, "attributes") {
			continue
		}
		attrs, err := val.ToArray()
		if err != nil {
			return nil, fmt.Errorf("index %q: parse attributes: %w", name, err)
		}
		for j := range attrs {
			if f, ok := parseAttribute(flatten(&attrs[j])); ok {
				def.Fields = append(def.Fields, f)
			}
		}
	}
	return def, nil
}

// parseAttribute reads one FT.INFO attribute. Types other than TAG and
// VECTOR are skipped.
func parseAttribute(tokens []string) (db.IndexField, bool) {
	var f db.IndexField
	var typ string
	for i := 0; i < len(tokens); i++ {
		key := strings.ToLower(tokens[i])
		if key == "casesensitive" {
			f.TagCaseSensitive = true
			continue
		}
		if i+1 >= len(tokens) {
			break
		}
		val := tokens[i+1]
		switch key {
		case "identifier":
			f.Name = val
		case "type":
			typ = strings.ToUpper(val)
		case "separator":
			f.TagSeparator = val
		case "algorithm", "name":
			// valkey nests "algorithm [name HNSW ...]"
			algo := db.VectorAlgorithm(strings.ToUpper(val))
			if algo != db.VectorHNSW && algo != db.VectorFlat {
				continue
			}
			f.VectorAlgo = algo
		case "dim", "dimensions":
			f.VectorDim, _ = strconv.Atoi(val)
		case "distance_metric":
			f.VectorDistance = db.DistanceMetric(strings.ToUpper(val))
		case "m":
			f.VectorM, _ = strconv.Atoi(val)
		case "ef_construction":
			f.VectorEFConstruct, _ = strconv.Atoi(val)
		default:
			continue
		}
		i++
	}

	switch typ {
	case "TAG":
		f.Type = db.IndexFieldTag
	case "VECTOR":
		f.Type = db.IndexFieldVector
	default:
		return db.IndexField{}, false
	}
	return f, f.Name != ""
}

// flatten turns a reply into tokens. Map entries keep key then value.
func flatten(m *rueidis.RedisMessage) []string {
	if m.IsMap() {
		kv, _ := m.AsMap()
		var out []string
		for k, v := range kv {
			out = append(out, k)
			out = append(out, flatten(&v)...)
		}
		return out
	}
	if arr, err := m.ToArray(); err == nil {
		var out []string
		for i := range arr {
			out = append(out, flatten(&arr[i])...)
		}
		return out
	}
	if s, err := m.ToString(); err == nil {
		return []string{s}
	}
	if n, err := m.AsInt64(); err == nil {
		return []string{strconv.FormatInt(n, 10)}
	}
	if f, err := m.AsFloat64(); err == nil {
		return []string{strconv.FormatFloat(f, 'f', -1, 64)}
	}
	return nil
}
