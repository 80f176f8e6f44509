package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/httpx"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes. The caller gates them behind admin auth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
		r.Post("/{id}/mutations", h.applyMutation)
		r.Get("/{id}/mutations", h.listMutations)
	})
	r.Get("/alerts", h.listAlerts)
	r.Post("/alerts/{id}/resolve", h.resolveAlert)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ProductFilter{
		Category: Category(q.Get("category")),
		Search:   q.Get("q"),
		Page:     shared.PageFromQuery(q),
	}
	filter.ActiveOnly, _ = strconv.ParseBool(q.Get("active"))
	filter.LowStock, _ = strconv.ParseBool(q.Get("low_stock"))

	listing, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listing)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		h.fail(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) applyMutation(w http.ResponseWriter, r *http.Request) {
	var req MutationInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.ProductID = chi.URLParam(r, "id")
	result, err := h.service.ApplyMutation(r.Context(), req)
	if err != nil {
		h.fail(w, "apply mutation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) listMutations(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.ListMutations(r.Context(), chi.URLParam(r, "id"), shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, "list mutations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listing)
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := AlertFilter{ProductID: q.Get("product_id"), Page: shared.PageFromQuery(q)}
	if raw := q.Get("unresolved"); raw != "" {
		filter.Unresolved, _ = strconv.ParseBool(raw)
	} else {
		filter.Unresolved = true
	}
	listing, err := h.service.ListAlerts(r.Context(), filter)
	if err != nil {
		h.fail(w, "list alerts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listing)
}

func (h *Handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.service.ResolveAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "resolve alert", err)
		return
	}
	httpx.JSON(w, http.StatusOK, alert)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn("inventory request failed", slog.String("op", op), slog.Any("error", err))
	httpx.RespondError(w, err)
}
