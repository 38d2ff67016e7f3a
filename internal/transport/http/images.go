package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/kahvecikaan/photo-api/internal/domain"
	"github.com/kahvecikaan/photo-api/internal/files"
	"github.com/kahvecikaan/photo-api/internal/service"
)

// ImageHandler stores and serves the image behind each photo.
type ImageHandler struct {
	photos service.PhotoService
	store  files.Storage
	logger hclog.Logger
}

func NewImageHandler(photos service.PhotoService, store files.Storage, log hclog.Logger) *ImageHandler {
	return &ImageHandler{photos: photos, store: store, logger: log}
}

// Upload handles POST /photos/{id}/image
//
// swagger:route POST /photos/{id}/image images uploadImage
//
// Stores the image for a photo. Only the user who posted the photo may
// upload its image.
//
// Responses:
//
//	201: imageResponse
//	401: errorResponse
//	403: errorResponse
//	404: errorResponse
//	413: errorResponse
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	user := domain.CurrentUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "only an authorized user can upload a photo")
		return
	}

	photo, err := h.photos.Photo(r.Context(), id)
	if errors.Is(err, domain.ErrPhotoNotFound) {
		writeError(w, http.StatusNotFound, "Photo not found")
		return
	}
	if err != nil {
		h.logger.Error("Unable to get photo", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to get photo")
		return
	}

	if photo.UserID != user.GithubLogin {
		writeError(w, http.StatusForbidden, domain.ErrForbidden.Error())
		return
	}

	h.logger.Info("Save image for photo", "id", id, "user", user.GithubLogin)

	err = h.store.Save(path.Base(photo.URL()), r.Body)
	if errors.Is(err, files.ErrFileTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Unable to save the image", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to save the image")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ImageResponse{URL: photo.URL()})
}

// Get handles GET /img/photos/{file}
//
// swagger:route GET /img/photos/{file} images getImage
//
// Serves a stored photo image.
//
// Responses:
//
//	200: imageFile
//	404: errorResponse
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["file"]
	if name == "" || strings.ContainsAny(name, `/\`) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	f, err := h.store.Get(name)
	if err != nil {
		if !errors.Is(err, files.ErrNotFound) {
			h.logger.Error("Unable to get the file", "file", name, "error", err)
		}
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	defer f.Close()

	http.ServeContent(w, r, name, time.Time{}, f)
}
