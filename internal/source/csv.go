package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
)

// readCSV reads a header row plus records. Every column lands in the payload
// as a string; rows with an empty text column are dropped.
func readCSV(path, textField string) ([]domdoc.Payload, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.Validationf("CSV file is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	textCol := slices.Index(header, textField)
	if textCol < 0 {
		return nil, domain.Validationf("column %q not found; available columns: %s",
			textField, strings.Join(header, ", "))
	}

	var recs []domdoc.Payload
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if textCol >= len(row) || strings.TrimSpace(row[textCol]) == "" {
			continue
		}
		p := make(domdoc.Payload, len(header))
		for i, name := range header {
			if i < len(row) {
				p[name] = row[i]
			}
		}
		recs = append(recs, p)
	}
	return recs, nil
}
