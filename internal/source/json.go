package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
)

// readJSON expects a top-level array of objects.
func readJSON(path, _ string) ([]domdoc.Payload, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, domain.Validationf("JSON input must be an array of objects")
	}

	var recs []domdoc.Payload
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&recs); err != nil {
		return nil, domain.Validationf("decode JSON: %v", err)
	}
	for i, r := range recs {
		if r == nil {
			return nil, domain.Validationf("item %d is not an object", i)
		}
		normalizeNumbers(r)
	}
	return recs, nil
}

// readJSONLines expects one object per line; blank lines are skipped.
func readJSONLines(path, _ string) ([]domdoc.Payload, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	var recs []domdoc.Payload
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var r domdoc.Payload
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&r); err != nil || r == nil {
			return nil, domain.Validationf("line %d: expected a JSON object", line)
		}
		normalizeNumbers(r)
		recs = append(recs, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return recs, nil
}

// normalizeNumbers turns json.Number values into int64 when integral, else float64.
func normalizeNumbers(p domdoc.Payload) {
	for k, v := range p {
		p[k] = normalizeValue(v)
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeValue(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalizeValue(inner)
		}
		return t
	default:
		return v
	}
}
