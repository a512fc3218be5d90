package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/service"
	"github.com/stagehand-music/stagehand/internal/storage"
)

// RackHandler handles rack endpoints.
type RackHandler struct {
	store  storage.Storage
	layout *service.LayoutService
}

// NewRackHandler creates a new RackHandler.
func NewRackHandler(store storage.Storage, layout *service.LayoutService) *RackHandler {
	return &RackHandler{store: store, layout: layout}
}

// Create creates a new, empty rack.
func (h *RackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	rack := &domain.Rack{
		ID:            generateID(),
		Name:          req.Name,
		Capacity:      req.Capacity,
		Model:         req.Model,
		Brand:         req.Brand,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		Depth:         req.Depth,
		Cost:          req.Cost,
		Weight:        req.Weight,
		PowerCapacity: req.PowerCapacity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.store.CreateRack(r.Context(), rack); err != nil {
		handleError(w, r, err)
		return
	}
	SetRackETag(w, rack.ID, rack.LayoutVersion)
	respondJSON(w, http.StatusCreated, rack)
}

// List lists racks ordered by name.
func (h *RackHandler) List(w http.ResponseWriter, r *http.Request) {
	racks, err := h.store.ListRacks(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, racks)
}

// Get gets a rack. The ETag carries its layout version.
func (h *RackHandler) Get(w http.ResponseWriter, r *http.Request) {
	rack, err := h.store.GetRack(r.Context(), chi.URLParam(r, "rack_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	SetRackETag(w, rack.ID, rack.LayoutVersion)
	respondJSON(w, http.StatusOK, rack)
}

// Update applies the fields present in the request to a rack. Shrinking
// the rack below mounted equipment is rejected.
func (h *RackHandler) Update(w http.ResponseWriter, r *http.Request) {
	rackID := chi.URLParam(r, "rack_id")
	expected, err := RackIfMatch(r, rackID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	rack, err := h.store.GetRack(r.Context(), rackID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req domain.UpdateRackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	setString(&rack.Name, req.Name)
	setString(&rack.Model, req.Model)
	setString(&rack.Brand, req.Brand)
	setString(&rack.Description, req.Description)
	setString(&rack.ImageURL, req.ImageURL)
	if req.Capacity != nil {
		rack.Capacity = *req.Capacity
	}
	if req.Depth != nil {
		rack.Depth = req.Depth
	}
	if req.Cost != nil {
		rack.Cost = req.Cost
	}
	if req.Weight != nil {
		rack.Weight = req.Weight
	}
	if req.PowerCapacity != nil {
		rack.PowerCapacity = req.PowerCapacity
	}

	if err := h.layout.UpdateRack(r.Context(), rack, expected); err != nil {
		handleError(w, r, err)
		return
	}
	SetRackETag(w, rack.ID, rack.LayoutVersion)
	respondJSON(w, http.StatusOK, rack)
}

// Delete deletes a rack and all of its equipment.
func (h *RackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.layout.DeleteRack(r.Context(), chi.URLParam(r, "rack_id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary reports the rack's totals.
func (h *RackHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.layout.Summary(r.Context(), chi.URLParam(r, "rack_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
