package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"storeviewer/internal/catalog"
	"storeviewer/internal/probe"
	"storeviewer/internal/session"
	"storeviewer/internal/storage"
	"storeviewer/internal/viewer/media"
)

const Version = "0.1.0"

type Store interface {
	catalog.Source
	ListCart(ctx context.Context, userID string) ([]storage.CartItem, error)
}

type ImporterInterface interface {
	ImportFile(ctx context.Context, path string) (catalog.Result, error)
	IsImporting() bool
}

type ProberInterface interface {
	Probe(ctx context.Context, rawURL string) probe.Result
}

type Handler struct {
	storage     Store
	sessions    *session.Manager
	logger      zerolog.Logger
	importer    ImporterInterface
	prober      ProberInterface
	catalogPath string
}

func NewHandler(store Store, sessions *session.Manager, logger zerolog.Logger, catalogPath string) *Handler {
	return &Handler{
		storage:     store,
		sessions:    sessions,
		logger:      logger,
		catalogPath: catalogPath,
	}
}

func (h *Handler) SetImporter(importer ImporterInterface) {
	h.importer = importer
}

func (h *Handler) SetProber(prober ProberInterface) {
	h.prober = prober
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  Version,
		Sessions: h.sessions.Len(),
	})
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.storage.ListReviews(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list reviews")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list reviews")
		return
	}
	if reviews == nil {
		reviews = []media.Review{}
	}
	writeJSON(w, http.StatusOK, ReviewsResponse{Reviews: reviews})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.storage.ListProducts(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list products")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list products")
		return
	}
	if products == nil {
		products = []media.Product{}
	}
	writeJSON(w, http.StatusOK, ProductsResponse{Products: products})
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "user_id is required")
		return
	}

	items, err := h.storage.ListCart(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user", userID).Msg("failed to list cart")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get cart")
		return
	}
	writeJSON(w, http.StatusOK, CartResponse{UserID: userID, Items: items})
}

func (h *Handler) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Importer not initialized")
		return
	}

	if h.importer.IsImporting() {
		writeJSON(w, http.StatusOK, ImportResponse{
			Status:  "in_progress",
			Message: "Import already in progress",
		})
		return
	}

	if h.catalogPath == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "No catalog path configured")
		return
	}

	go func() {
		if _, err := h.importer.ImportFile(context.Background(), h.catalogPath); err != nil {
			h.logger.Error().Err(err).Msg("import failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, ImportResponse{
		Status:  "started",
		Message: "Catalog import started",
	})
}

func (h *Handler) ProbeMedia(w http.ResponseWriter, r *http.Request) {
	if h.prober == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Media probing disabled")
		return
	}

	raw := r.URL.Query().Get("url")
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "url must be an http(s) URL")
		return
	}

	writeJSON(w, http.StatusOK, h.prober.Probe(r.Context(), raw))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
