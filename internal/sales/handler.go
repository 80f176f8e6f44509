package sales

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/httpx"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

const idempotencyModule = "sales"

// IdempotencyPort reserves client supplied request keys.
type IdempotencyPort interface {
	Reserve(ctx context.Context, module, key string) error
	Release(ctx context.Context, module, key string) error
}

// Handler wires HTTP endpoints for sales.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency IdempotencyPort
}

// NewHandler constructs the sales handler. idem may be nil.
func NewHandler(logger *slog.Logger, service *Service, idem IdempotencyPort) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idem}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.listSales)
		r.Post("/", h.createSale)
		r.Get("/{number}", h.getSale)
	})
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.Reserve(r.Context(), idempotencyModule, key); err != nil {
			if !errors.Is(err, shared.ErrIdempotencyConflict) {
				h.logger.Error("reserve idempotency key", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
	}

	sale, err := h.service.CreateSale(r.Context(), req)
	if err != nil {
		if key != "" && h.idempotency != nil {
			if relErr := h.idempotency.Release(context.WithoutCancel(r.Context()), idempotencyModule, key); relErr != nil {
				h.logger.Error("release idempotency key", slog.Any("error", relErr))
			}
		}
		h.logger.Warn("create sale failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("sale created", slog.String("sale_number", sale.Number), slog.String("total", sale.Total.StringFixed(2)))
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.GetSale(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := SaleFilter{Page: shared.PageFromQuery(q)}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("from", "must be a date (YYYY-MM-DD)"))
			return
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("to", "must be a date (YYYY-MM-DD)"))
			return
		}
		filter.To = to.AddDate(0, 0, 1)
	}
	listing, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listing)
}
