package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/campuskart-backend/internal/assets"
)

// 5 MiB is plenty for listing photos.
const maxUploadBytes = 5 << 20

type UploadHandler struct {
	store *assets.Store
}

func NewUploadHandler(store *assets.Store) *UploadHandler {
	return &UploadHandler{store: store}
}

func (h *UploadHandler) RegisterRoutes(router chi.Router) {
	router.Post("/uploads", h.handleUpload)
}

// handleUpload accepts a multipart "image" field and returns the URL
// path the stored asset is served from. Listings and profiles then
// reference that path.
func (h *UploadHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if _, err := actorID(r); err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	url, err := h.store.Save(header.Filename, file)
	if err != nil {
		if errors.Is(err, assets.ErrUnsupportedType) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("filename", header.Filename).Msg("handler: failed to store upload")
		respondWithError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"url": url})
}
