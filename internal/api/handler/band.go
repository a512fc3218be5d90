package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/storage"
	"github.com/stagehand-music/stagehand/internal/validation"
)

// BandHandler handles band endpoints.
type BandHandler struct {
	store storage.Storage
}

// NewBandHandler creates a new BandHandler.
func NewBandHandler(store storage.Storage) *BandHandler {
	return &BandHandler{store: store}
}

// Create creates a new band.
func (h *BandHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBandRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := validation.ValidateDateRange(req.StartDate, req.EndDate); err != nil {
		respondValidationError(w, "end_date", formatDate(req.EndDate), err.Error())
		return
	}

	now := time.Now().UTC()
	band := &domain.Band{
		ID:            generateID(),
		Name:          req.Name,
		LogoImageLink: req.LogoImageLink,
		IsActive:      true,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Location:      req.Location,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.IsActive != nil {
		band.IsActive = *req.IsActive
	}

	if err := h.store.CreateBand(r.Context(), band); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, band)
}

// List lists bands. ?active=true restricts to active bands.
func (h *BandHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.BandFilter{ActiveOnly: r.URL.Query().Get("active") == "true"}
	bands, err := h.store.ListBands(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bands)
}

// Get gets a band by ID.
func (h *BandHandler) Get(w http.ResponseWriter, r *http.Request) {
	band, err := h.store.GetBand(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, band)
}

// Update applies the fields present in the request to a band.
func (h *BandHandler) Update(w http.ResponseWriter, r *http.Request) {
	band, err := h.store.GetBand(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req domain.UpdateBandRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if req.Name != nil {
		band.Name = *req.Name
	}
	if req.LogoImageLink != nil {
		band.LogoImageLink = *req.LogoImageLink
	}
	if req.IsActive != nil {
		band.IsActive = *req.IsActive
	}
	if req.StartDate != nil {
		band.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		band.EndDate = req.EndDate
	}
	if req.Location != nil {
		band.Location = *req.Location
	}
	if err := validation.ValidateDateRange(band.StartDate, band.EndDate); err != nil {
		respondValidationError(w, "end_date", formatDate(band.EndDate), err.Error())
		return
	}

	if err := h.store.UpdateBand(r.Context(), band); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, band)
}

// Delete deletes a band. Events keep their history but lose the reference.
func (h *BandHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteBand(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
