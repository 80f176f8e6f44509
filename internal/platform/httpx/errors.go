// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Sentinel errors for the transport layer.
var (
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		stockErr *shared.InsufficientStockError
		valErr   *shared.ValidationError
		dupErr   *shared.DuplicateKeyError
	)
	switch {
	case errors.As(err, &stockErr):
		write(w, ProblemDetail{
			Type:   "insufficient-stock",
			Title:  "Insufficient Stock",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
			Meta: map[string]any{
				"productId": stockErr.ProductID,
				"available": stockErr.Available,
				"requested": stockErr.Requested,
			},
		})
	case errors.As(err, &valErr):
		write(w, ProblemDetail{
			Type:   "validation",
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
			Errors: valErr.Fields,
		})
	case errors.As(err, &dupErr):
		write(w, ProblemDetail{
			Type:   "duplicate",
			Title:  "Duplicate",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
			Errors: map[string]string{dupErr.Field: "already exists"},
		})
	case errors.Is(err, shared.ErrMissingIMEI):
		Problem(w, http.StatusBadRequest, "Missing IMEI", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrTransaction):
		Problem(w, http.StatusConflict, "Transaction Aborted", "the operation was rolled back and may be retried")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		slog.Default().Error("unhandled error", slog.Any("error", err))
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
