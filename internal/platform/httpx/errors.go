// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// Transport level sentinels used by handlers before the domain is reached.
var (
	ErrDuplicate  = errors.New("duplicate entry")
	ErrBadRequest = errors.New("bad request")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var vErr *shared.ValidationError
	var sErr *shared.InsufficientStockError
	switch {
	case errors.As(err, &vErr):
		JSON(w, http.StatusBadRequest, ValidationProblem{
			ProblemDetail: ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest, Detail: vErr.Error()},
			Fields:        vErr.Fields,
		})
	case errors.As(err, &sErr):
		JSON(w, http.StatusConflict, StockProblem{
			ProblemDetail: ProblemDetail{Title: "Insufficient Stock", Status: http.StatusConflict, Detail: shared.UserSafeMessage(err)},
			ProductID:     sErr.ProductID,
			Requested:     sErr.Requested,
			Available:     sErr.Available,
		})
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation), errors.Is(err, ErrBadRequest):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrDuplicate), errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrStockBusy):
		Problem(w, http.StatusLocked, "Locked", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// LogLevel picks the level for a handler failure. Errors answered with a 4xx
// are expected outcomes and log at Warn; everything else is an Error.
func LogLevel(err error) slog.Level {
	var vErr *shared.ValidationError
	var sErr *shared.InsufficientStockError
	switch {
	case errors.As(err, &vErr), errors.As(err, &sErr),
		errors.Is(err, shared.ErrNotFound),
		errors.Is(err, shared.ErrValidation), errors.Is(err, ErrBadRequest),
		errors.Is(err, shared.ErrInsufficientStock),
		errors.Is(err, ErrDuplicate), errors.Is(err, shared.ErrIdempotencyConflict),
		errors.Is(err, shared.ErrStockBusy):
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
