package httpx

import (
	"errors"
	"net/http"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// Sentinel errors for the HTTP boundary.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

// statusForCode maps rejection codes to HTTP statuses. Missing lookups and
// period locks get their own statuses; everything else is a 422.
var statusForCode = map[string]int{
	"INVENTORY_NOT_FOUND":         http.StatusNotFound,
	"PRODUCT_NOT_FOUND":           http.StatusNotFound,
	"PERIOD_LOCKED":               http.StatusLocked,
	"ORDER_LOCKED":                http.StatusLocked,
	"ORDER_PARTIALLY_LOCKED":      http.StatusLocked,
	"HISTORICAL_STATEMENT_LOCKED": http.StatusLocked,
}

// rejectionObserver is told about every coded rejection sent to a client.
// Wired to the metrics registry at startup.
var rejectionObserver func(code string)

// SetRejectionObserver installs the observer. Call during startup, before
// the server accepts requests.
func SetRejectionObserver(fn func(code string)) {
	rejectionObserver = fn
}

// RespondError maps domain errors to HTTP responses. Integrity rejections
// keep their machine code; infrastructure failures collapse to a 500
// without leaking internals.
func RespondError(w http.ResponseWriter, err error) {
	var coded shared.Coded
	if errors.As(err, &coded) {
		status, ok := statusForCode[coded.Code()]
		if !ok {
			status = http.StatusUnprocessableEntity
		}
		if rejectionObserver != nil {
			rejectionObserver(coded.Code())
		}
		Rejection(w, status, coded.Code(), coded.Error())
		return
	}
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict), errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
