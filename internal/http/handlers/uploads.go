package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
)

// UploadImage accepts a multipart form with a single "file" part and stores
// it through the object store gateway.
func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	maxBytes := a.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	if r.ContentLength > maxBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds upload limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds upload limit")
			return
		}
		a.error(w, http.StatusBadRequest, "invalid_request", "expected multipart form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "failed to read file")
		return
	}

	asset, err := a.Images.Store(r.Context(), data, header.Filename)
	if err != nil {
		code := domain.KindCode(err)
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			a.error(w, http.StatusBadRequest, code, err.Error())
			return
		}
		a.Logger.Error().Err(err).Str("filename", header.Filename).Msg("upload failed")
		a.error(w, http.StatusInternalServerError, code, "failed to store file")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"url":          asset.PublicURL,
		"key":          asset.StorageKey,
		"content_type": asset.ContentType,
		"bytes":        asset.Size,
		"width":        asset.Width,
		"height":       asset.Height,
	})
}

// ListUploads returns the most recent uploads recorded in the ledger.
func (a *App) ListUploads(w http.ResponseWriter, r *http.Request) {
	if a.Uploads == nil {
		a.error(w, http.StatusNotFound, "not_found", "upload ledger is not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	assets, err := a.Uploads.Recent(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("list uploads failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load uploads")
		return
	}
	items := make([]map[string]any, 0, len(assets))
	for _, asset := range assets {
		items = append(items, map[string]any{
			"url":          asset.PublicURL,
			"key":          asset.StorageKey,
			"content_type": asset.ContentType,
			"bytes":        asset.Size,
			"width":        asset.Width,
			"height":       asset.Height,
			"checksum":     asset.Checksum,
			"created_at":   asset.CreatedAt.Format(time.RFC3339),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
