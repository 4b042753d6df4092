package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"threadx/internal/httputil"
	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/service"
)

type MediaHandler struct {
	media *service.MediaService
	log   zerolog.Logger
}

func NewMediaHandler(media *service.MediaService) *MediaHandler {
	return &MediaHandler{media: media, log: logger.New("MediaHandler")}
}

// UploadAvatar handles POST /me/avatar (multipart, field "avatar").
// The image is cropped to 200x200 and becomes the profile image.
func (h *MediaHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := currentSession(w, r)
	if !ok {
		return
	}

	maxFormSize := int64(model.MaxAvatarSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		if strings.Contains(err.Error(), "request body too large") {
			httputil.WriteServiceError(w, h.log, model.ErrFileTooLarge)
			return
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteServiceError(w, h.log, model.NewValidationError("avatar", "is required"))
		return
	}
	defer file.Close()

	user, err := h.media.UploadAvatar(r.Context(), sess, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}
