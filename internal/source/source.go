// Package source reads ingestion records from JSON, JSON Lines, CSV and
// Parquet files.
package source

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
)

type reader func(path, textField string) ([]domdoc.Payload, error)

var readers = map[string]reader{
	".json":    readJSON,
	".jsonl":   readJSONLines,
	".ndjson":  readJSONLines,
	".csv":     readCSV,
	".parquet": readParquet,
}

// Extensions lists the supported file extensions.
func Extensions() []string {
	exts := make([]string, 0, len(readers))
	for ext := range readers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Load reads every file matching pattern (a path or a ** glob) and returns
// the records in file order. Unsupported extensions are validation errors.
func Load(pattern, textField string) ([]domdoc.Payload, error) {
	files, err := Expand(pattern)
	if err != nil {
		return nil, err
	}

	var out []domdoc.Payload
	for _, f := range files {
		recs, err := LoadFile(f, textField)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// LoadFile reads a single file, picking the format from its extension.
func LoadFile(path, textField string) ([]domdoc.Payload, error) {
	ext := strings.ToLower(filepath.Ext(path))
	read, ok := readers[ext]
	if !ok {
		return nil, domain.Validationf("unsupported file type %q (supported: %s)",
			ext, strings.Join(Extensions(), ", "))
	}
	recs, err := read(path, textField)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return recs, nil
}

// Expand resolves pattern to a sorted list of files. A pattern without glob
// metacharacters is returned as is so a missing file surfaces as an open error.
func Expand(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}, nil
	}
	files, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, domain.Validationf("bad file pattern %q: %v", pattern, err)
	}
	if len(files) == 0 {
		return nil, domain.Validationf("no files match %q", pattern)
	}
	slices.Sort(files)
	return files, nil
}
