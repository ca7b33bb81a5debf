package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/sillage/backend/internal/middleware"
	"github.com/sillage/backend/internal/models"
	"github.com/sillage/backend/internal/services"
)

type UploadHandler struct {
	uploader     services.ImageUploader
	maxUploadMB  int64
	maxFileCount int
}

func NewUploadHandler(uploader services.ImageUploader, maxUploadMB int64) *UploadHandler {
	return &UploadHandler{
		uploader:     uploader,
		maxUploadMB:  maxUploadMB,
		maxFileCount: 10,
	}
}

// UploadImages accepts a multipart form with one or more "images" parts and
// returns the public URLs in upload order. On a partial failure the URLs
// uploaded so far are still returned alongside the error message.
func (h *UploadHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	maxBytes := h.maxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Upload too large or malformed"))
		return
	}

	parts := r.MultipartForm.File["images"]
	if len(parts) == 0 {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("No images provided"))
		return
	}
	if len(parts) > h.maxFileCount {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(fmt.Sprintf("Too many files (max %d)", h.maxFileCount)))
		return
	}

	files := make([]services.UploadFile, 0, len(parts))
	for _, part := range parts {
		contentType := part.Header.Get("Content-Type")
		if !services.IsValidImageType(contentType) {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(fmt.Sprintf("Unsupported image type for %s", part.Filename)))
			return
		}
		f, err := part.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Failed to read uploaded file"))
			return
		}
		defer f.Close()
		files = append(files, services.UploadFile{
			Name:        part.Filename,
			ContentType: contentType,
			Reader:      f,
		})
	}

	urls, err := h.uploader.UploadImages(r.Context(), userID, files)
	if err != nil {
		log.Printf("[UploadImages] user=%s uploaded=%d error=%v", userID, len(urls), err)
		resp := models.NewErrorResponse("Upload failed: " + err.Error())
		resp.Data = models.ImageUploadResponse{URLs: urls}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.ImageUploadResponse{URLs: urls}))
}
