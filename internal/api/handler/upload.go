package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stagehand-music/stagehand/internal/blob"
	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/logging"
	"github.com/stagehand-music/stagehand/internal/metrics"
	"github.com/stagehand-music/stagehand/internal/validation"
)

// Upload outcomes recorded in metrics.
const (
	uploadStored      = "stored"
	uploadExists      = "exists"
	uploadRejected    = "rejected"
	uploadUnavailable = "unavailable"
	uploadFailed      = "error"
)

// UploadHandler stores media sent as base64 JSON.
type UploadHandler struct {
	blobs    blob.Store
	maxBytes int64
}

// NewUploadHandler creates a new UploadHandler. A nil store makes every
// upload fail with 503.
func NewUploadHandler(blobs blob.Store, maxBytes int64) *UploadHandler {
	return &UploadHandler{blobs: blobs, maxBytes: maxBytes}
}

// Upload stores the file under its own name. An existing object is only
// replaced when ?overwrite=true is given.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		metrics.RecordUpload(uploadUnavailable, 0)
		handleError(w, r, domain.ErrBlobUnavailable)
		return
	}

	// base64 inflates by 4/3; leave room for the JSON envelope.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes*4/3+64*1024)

	var req domain.UploadRequest
	if err := decodeJSON(r, &req); err != nil {
		metrics.RecordUpload(uploadRejected, 0)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondTooLarge(w)
			return
		}
		respondError(w, http.StatusBadRequest, "invalid JSON body, expected {fileName, fileType, fileData}")
		return
	}
	if err := validation.Struct(&req); err != nil {
		metrics.RecordUpload(uploadRejected, 0)
		handleError(w, r, err)
		return
	}

	contentType, data, err := decodeFileData(req.FileType, req.FileData)
	if err != nil {
		metrics.RecordUpload(uploadRejected, 0)
		respondValidationError(w, "fileData", "", err.Error())
		return
	}
	if err := validation.ValidateContentType(contentType); err != nil {
		metrics.RecordUpload(uploadRejected, 0)
		respondValidationError(w, "fileType", contentType, err.Error())
		return
	}
	if int64(len(data)) > h.maxBytes {
		metrics.RecordUpload(uploadRejected, 0)
		h.respondTooLarge(w)
		return
	}

	key, err := blob.ObjectKey(req.FileName)
	if err != nil {
		metrics.RecordUpload(uploadRejected, 0)
		respondValidationError(w, "fileName", req.FileName, err.Error())
		return
	}
	if contentType == "" {
		contentType = blob.DefaultContentType
	}

	overwrite := r.URL.Query().Get("overwrite") == "true"
	url, err := h.blobs.Put(r.Context(), key, contentType, data, overwrite)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			metrics.RecordUpload(uploadExists, 0)
			respondStandardError(w, http.StatusConflict, domain.ErrCodeResourceAlreadyExists,
				"file already exists", "fileName", map[string]any{"name": key})
		case errors.Is(err, domain.ErrBlobUnavailable):
			metrics.RecordUpload(uploadUnavailable, 0)
			handleError(w, r, err)
		default:
			metrics.RecordUpload(uploadFailed, 0)
			handleError(w, r, err)
		}
		return
	}

	metrics.RecordUpload(uploadStored, len(data))
	logging.Ctx(r.Context()).Info().
		Str("name", key).
		Str("content_type", contentType).
		Int("bytes", len(data)).
		Bool("overwrite", overwrite).
		Msg("upload stored")

	respondJSON(w, http.StatusOK, &domain.UploadResponse{URL: url, Name: key})
}

func (h *UploadHandler) respondTooLarge(w http.ResponseWriter) {
	respondStandardError(w, http.StatusRequestEntityTooLarge, domain.ErrCodeInvalidInput,
		fmt.Sprintf("file exceeds %d bytes", h.maxBytes), "fileData", nil)
}

// decodeFileData decodes base64 file contents. A data URL prefix is
// accepted and supplies the content type when fileType is empty.
func decodeFileData(fileType, fileData string) (string, []byte, error) {
	if rest, ok := strings.CutPrefix(fileData, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return "", nil, fmt.Errorf("data URL must be base64 encoded")
		}
		if fileType == "" {
			fileType = strings.TrimSuffix(meta, ";base64")
		}
		fileData = payload
	}

	data, err := base64.StdEncoding.DecodeString(fileData)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(fileData)
	}
	if err != nil {
		return "", nil, fmt.Errorf("fileData is not valid base64")
	}
	return fileType, data, nil
}
