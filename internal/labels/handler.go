package labels

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/httpx"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Queue defers a print to the background worker.
type Queue interface {
	EnqueueLabelPrint(ctx context.Context, label Label) (string, error)
}

// Handler accepts print requests.
type Handler struct {
	logger *slog.Logger
	queue  Queue
}

// NewHandler constructs the label handler.
func NewHandler(logger *slog.Logger, queue Queue) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, queue: queue}
}

// MountRoutes registers label routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/labels", h.print)
}

type printResponse struct {
	TaskID string `json:"taskId"`
}

func (h *Handler) print(w http.ResponseWriter, r *http.Request) {
	var label Label
	if err := httpx.DecodeJSON(r, &label); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := shared.Validate(label); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if label.Price.IsNegative() {
		httpx.RespondError(w, shared.NewValidationError("price", "must be at least 0"))
		return
	}
	id, err := h.queue.EnqueueLabelPrint(r.Context(), label)
	if err != nil {
		h.logger.Error("enqueue label print", slog.String("product", label.ProductName), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, printResponse{TaskID: id})
}
