package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals bad caller input (missing text field, non-positive top_k, unknown mode).
	ErrValidation = errors.New("validation failed")
	// ErrEncodingUnavailable signals an unreachable or misbehaving encoder backend.
	ErrEncodingUnavailable = errors.New("encoding unavailable")
	// ErrStoreUnavailable signals a connection or network failure talking to the vector store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrSchemaMismatch signals a query against a missing collection or field,
	// or an existing collection whose schema is incompatible.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// Stage names the pipeline step that produced an error.
type Stage string

// Pipeline stages reported in StageError.
const (
	StageValidate         Stage = "validate"
	StageEncodeDense      Stage = "encode_dense"
	StageEncodeSparse     Stage = "encode_sparse"
	StageEnsureCollection Stage = "ensure_collection"
	StageUpsert           Stage = "upsert"
	StageQuery            Stage = "query"
	StageScroll           Stage = "scroll"
	StageCount            Stage = "count"
	StageDropCollection   Stage = "drop_collection"
)

// StageError tags an error with the stage that failed so callers can tell
// an input problem from an infrastructure problem.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// AtStage wraps err with stage context. Nil stays nil; an already staged error is kept as is.
func AtStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded in err, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// Validationf builds an ErrValidation with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
