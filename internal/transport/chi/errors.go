package chi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, stage string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrSchemaMismatch, http.StatusConflict, CodeSchemaMismatch),
		sentinelHandler(domain.ErrEncodingUnavailable, http.StatusBadGateway, CodeEncodingUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
	}
}

// validationHandler returns the detail after the sentinel prefix: it is
// caller input, safe to echo.
func validationHandler(w http.ResponseWriter, err error, stage string) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	msg := err.Error()
	if _, detail, ok := strings.Cut(msg, domain.ErrValidation.Error()+": "); ok {
		msg = detail
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: CodeValidationFailed, Message: msg, Stage: stage})
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Only the sentinel text reaches the client.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, stage string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeJSON(w, status, ErrorResponse{Code: code, Message: sentinel.Error(), Stage: stage})
		return true
	}
}
