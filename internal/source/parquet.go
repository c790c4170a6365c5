package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/semsearch/internal/domain"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
)

const parquetReadBuffer = 1000

// readParquet reads every row group with the generic row reader. Top-level
// columns map to payload keys; repeated leaf values are collected into lists.
// Rows whose text column is null or empty are dropped, matching CSV.
func readParquet(path, textField string) ([]domdoc.Payload, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	columns := pf.Schema().Columns()
	names := make([]string, len(columns))
	repeated := make([]bool, len(columns))
	hasText := false
	available := make([]string, 0, len(columns))
	for i, path := range columns {
		if len(path) == 0 {
			continue
		}
		names[i] = path[0]
		repeated[i] = len(path) > 1
		available = append(available, path[0])
		if path[0] == textField {
			hasText = true
		}
	}
	if !hasText {
		return nil, domain.Validationf("column %q not found; available columns: %v", textField, available)
	}

	var recs []domdoc.Payload
	buf := make([]parquet.Row, parquetReadBuffer)
	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		for {
			n, readErr := rows.ReadRows(buf)
			for i := range n {
				p := rowToPayload(buf[i], names, repeated)
				if s, ok := p.Text(textField); ok && s != "" {
					recs = append(recs, p)
				}
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return recs, nil
}

func rowToPayload(row parquet.Row, names []string, repeated []bool) domdoc.Payload {
	p := make(domdoc.Payload, len(names))
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(names) || names[col] == "" {
			continue
		}
		name := names[col]
		if repeated[col] {
			if v.IsNull() {
				continue
			}
			list, _ := p[name].([]any)
			p[name] = append(list, valueOf(v))
			continue
		}
		if v.IsNull() {
			p[name] = nil
			continue
		}
		p[name] = valueOf(v)
	}
	return p
}

func valueOf(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	default:
		return v.String()
	}
}
