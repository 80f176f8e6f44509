package showcase

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/httpx"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Handler wires HTTP endpoints for the showcase.
type Handler struct {
	logger  *slog.Logger
	service *Service
	linker  *Linker
}

// NewHandler constructs the showcase handler.
func NewHandler(logger *slog.Logger, service *Service, linker *Linker) *Handler {
	return &Handler{logger: logger, service: service, linker: linker}
}

// MountPublicRoutes registers the read-only showcase pages.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/showcase", h.list)
	r.Get("/showcase/{id}", h.get)
}

// MountAdminRoutes registers management and linking endpoints.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Route("/showcase", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/link", h.linkPurchaseLine)
		r.Post("/sold", h.markSold)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func isAdmin(r *http.Request) bool {
	return shared.SessionFromContext(r.Context()).IsAdmin()
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Type:   q.Get("type"),
		Brand:  q.Get("brand"),
		Status: StockStatus(q.Get("status")),
		Search: q.Get("q"),
		Page:   shared.PageFromQuery(q),
	}
	listing, err := h.service.List(r.Context(), filter, isAdmin(r))
	if err != nil {
		h.logger.Error("list showcase items", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listing)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	it, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), isAdmin(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input ItemInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	it, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, it)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var input ItemInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	it, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkRequest struct {
	IMEI        string          `json:"imei" validate:"required"`
	Model       string          `json:"model"`
	Description string          `json:"description"`
	Condition   string          `json:"condition"`
	Price       decimal.Decimal `json:"price"`
	Storage     string          `json:"storage"`
	Color       string          `json:"color"`
}

func (h *Handler) linkPurchaseLine(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := shared.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.linker.LinkPurchaseLine(r.Context(), PurchaseLine{
		IMEI:        req.IMEI,
		Model:       req.Model,
		Description: req.Description,
		Condition:   req.Condition,
		Price:       req.Price,
		Storage:     req.Storage,
		Color:       req.Color,
	})
	if err != nil {
		h.logger.Warn("link purchase line", slog.String("imei", req.IMEI), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type soldRequest struct {
	IMEI string `json:"imei"`
}

type soldResponse struct {
	Item   Item       `json:"item"`
	Result LinkResult `json:"result"`
}

func (h *Handler) markSold(w http.ResponseWriter, r *http.Request) {
	var req soldRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	it, result, err := h.linker.MarkSoldByIMEI(r.Context(), req.IMEI)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, soldResponse{Item: it, Result: result})
}
