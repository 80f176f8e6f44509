package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the catalog.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountPublicRoutes registers the cached read endpoints.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/brands", h.listBrands)
		r.Get("/brands/{slug}/devices", h.listDevices)
		r.Get("/devices/{id}/repairs", h.listRepairs)
		r.Get("/product-types", h.listProductTypes)
	})
}

// MountAdminRoutes registers catalog maintenance endpoints.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Post("/brands", saveHandler(h, EntityBrand, h.service.SaveBrand))
		r.Put("/brands/{id}", saveHandler(h, EntityBrand, h.service.SaveBrand))
		r.Delete("/brands/{id}", h.deleteHandler(EntityBrand))
		r.Post("/devices", saveHandler(h, EntityDevice, h.service.SaveDevice))
		r.Put("/devices/{id}", saveHandler(h, EntityDevice, h.service.SaveDevice))
		r.Delete("/devices/{id}", h.deleteHandler(EntityDevice))
		r.Post("/repairs", saveHandler(h, EntityRepair, h.service.SaveRepair))
		r.Put("/repairs/{id}", saveHandler(h, EntityRepair, h.service.SaveRepair))
		r.Delete("/repairs/{id}", h.deleteHandler(EntityRepair))
		r.Post("/product-types", saveHandler(h, EntityProductType, h.service.SaveProductType))
		r.Put("/product-types/{id}", saveHandler(h, EntityProductType, h.service.SaveProductType))
		r.Delete("/product-types/{id}", h.deleteHandler(EntityProductType))
	})
}

func (h *Handler) listBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.Brands(r.Context())
	h.respond(w, "list brands", brands, err)
}

func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.service.DevicesForBrand(r.Context(), chi.URLParam(r, "slug"))
	h.respond(w, "list devices", devices, err)
}

func (h *Handler) listRepairs(w http.ResponseWriter, r *http.Request) {
	repairs, err := h.service.RepairsForDevice(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, "list repairs", repairs, err)
}

func (h *Handler) listProductTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ProductTypes(r.Context())
	h.respond(w, "list product types", types, err)
}

func (h *Handler) respond(w http.ResponseWriter, op string, payload any, err error) {
	if err != nil {
		h.logger.Warn(op, slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payload)
}

// saveHandler decodes In and creates (POST) or replaces (PUT /{id}) an entity.
func saveHandler[In, Out any](h *Handler, entity Entity, save func(ctx context.Context, id string, in In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		id := chi.URLParam(r, "id")
		out, err := save(r.Context(), id, in)
		if err != nil {
			h.logger.Warn("save catalog entry", slog.String("entity", string(entity)), slog.String("id", id), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		status := http.StatusOK
		if id == "" {
			status = http.StatusCreated
		}
		httpx.JSON(w, status, out)
	}
}

func (h *Handler) deleteHandler(entity Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Delete(r.Context(), entity, chi.URLParam(r, "id")); err != nil {
			httpx.RespondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
