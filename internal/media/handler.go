package media

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/httpx"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Handler serves and accepts uploads.
type Handler struct {
	logger *slog.Logger
	store  *LocalStore
}

// NewHandler constructs the media handler.
func NewHandler(logger *slog.Logger, store *LocalStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: store}
}

// MountPublicRoutes serves stored assets.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	fs := http.StripPrefix(h.store.Prefix(), http.FileServer(http.Dir(h.store.Root())))
	r.Get(h.store.Prefix()+"/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=604800, immutable")
		fs.ServeHTTP(w, r)
	})
}

// MountAdminRoutes registers the upload endpoint.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/uploads", h.upload)
}

type uploadResponse struct {
	Ref string `json:"ref"`
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+1<<20)
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, shared.NewValidationError("file", "is required"))
		return
	}
	defer file.Close()

	ref, err := h.store.Save(r.Context(), file)
	if err != nil {
		h.logger.Warn("store upload", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, uploadResponse{Ref: ref})
}
