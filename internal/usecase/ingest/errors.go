package ingest

import "fmt"

// PartialError reports how many records were committed before a run failed.
// It unwraps to the underlying (staged) error.
type PartialError struct {
	Ingested int
	Err      error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("ingest stopped after %d records: %v", e.Ingested, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
