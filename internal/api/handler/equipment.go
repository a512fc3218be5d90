package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/service"
	"github.com/stagehand-music/stagehand/internal/storage"
)

// EquipmentHandler handles rack equipment endpoints.
type EquipmentHandler struct {
	store  storage.Storage
	layout *service.LayoutService
}

// NewEquipmentHandler creates a new EquipmentHandler.
func NewEquipmentHandler(store storage.Storage, layout *service.LayoutService) *EquipmentHandler {
	return &EquipmentHandler{store: store, layout: layout}
}

// Create mounts new equipment in a rack.
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	rackID := chi.URLParam(r, "rack_id")

	var req domain.CreateEquipmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	eq := &domain.Equipment{
		ID:          generateID(),
		RackID:      rackID,
		Model:       req.Model,
		Brand:       req.Brand,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Height:      req.Height,
		Position:    req.Position,
		Depth:       req.Depth,
		Cost:        req.Cost,
		Weight:      req.Weight,
		Backmounted: req.Backmounted,
		PowerDemand: req.PowerDemand,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.layout.CreateEquipment(r.Context(), eq); err != nil {
		handleError(w, r, err)
		return
	}
	h.setETag(w, r, rackID)
	respondJSON(w, http.StatusCreated, eq)
}

// List lists a rack's equipment ordered by position.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	rack, err := h.store.GetRack(r.Context(), chi.URLParam(r, "rack_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	equipment, err := h.store.ListEquipment(r.Context(), rack.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	SetRackETag(w, rack.ID, rack.LayoutVersion)
	respondJSON(w, http.StatusOK, equipment)
}

// ListAll lists equipment across every rack.
func (h *EquipmentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	equipment, err := h.store.ListAllEquipment(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, equipment)
}

// Get gets one piece of equipment in a rack.
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	eq, err := h.load(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, eq)
}

// Update applies the fields present in the request. Size, position and
// side changes are checked against the rest of the rack.
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	rackID := chi.URLParam(r, "rack_id")
	expected, err := RackIfMatch(r, rackID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req domain.UpdateEquipmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	eq, err := h.layout.UpdateEquipment(r.Context(), rackID, chi.URLParam(r, "id"), expected, func(eq *domain.Equipment) {
		applyEquipmentUpdate(eq, &req)
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.setETag(w, r, rackID)
	respondJSON(w, http.StatusOK, eq)
}

// applyEquipmentUpdate copies the fields set in req onto eq.
func applyEquipmentUpdate(eq *domain.Equipment, req *domain.UpdateEquipmentRequest) {
	setString(&eq.Model, req.Model)
	setString(&eq.Brand, req.Brand)
	setString(&eq.Description, req.Description)
	setString(&eq.ImageURL, req.ImageURL)
	if req.Height != nil {
		eq.Height = *req.Height
	}
	if req.Position != nil {
		eq.Position = *req.Position
	}
	if req.Depth != nil {
		eq.Depth = req.Depth
	}
	if req.Cost != nil {
		eq.Cost = req.Cost
	}
	if req.Weight != nil {
		eq.Weight = req.Weight
	}
	if req.Backmounted != nil {
		eq.Backmounted = *req.Backmounted
	}
	if req.PowerDemand != nil {
		eq.PowerDemand = req.PowerDemand
	}
}

// Delete removes equipment from a rack.
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rackID := chi.URLParam(r, "rack_id")
	if err := h.layout.DeleteEquipment(r.Context(), rackID, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	h.setETag(w, r, rackID)
	w.WriteHeader(http.StatusNoContent)
}

// Move drops equipment at a new position, pushing colliding equipment on
// the same side down the rack.
func (h *EquipmentHandler) Move(w http.ResponseWriter, r *http.Request) {
	rackID := chi.URLParam(r, "rack_id")
	expected, err := RackIfMatch(r, rackID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req domain.MoveEquipmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.layout.MoveEquipment(r.Context(), rackID, chi.URLParam(r, "id"), *req.Position, expected)
	if err != nil {
		handleError(w, r, err)
		return
	}
	SetRackETag(w, rackID, resp.LayoutVersion)
	respondJSON(w, http.StatusOK, resp)
}

// load fetches the equipment named in the URL, hiding equipment that
// belongs to a different rack.
func (h *EquipmentHandler) load(r *http.Request) (*domain.Equipment, error) {
	rackID := chi.URLParam(r, "rack_id")
	eq, err := h.store.GetEquipment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if eq.RackID != rackID {
		return nil, fmt.Errorf("%w: equipment %s is not in rack %s", domain.ErrNotFound, eq.ID, rackID)
	}
	return eq, nil
}

// setETag refreshes the rack ETag after a write. A failed read only means
// the client has to refetch.
func (h *EquipmentHandler) setETag(w http.ResponseWriter, r *http.Request, rackID string) {
	if rack, err := h.store.GetRack(r.Context(), rackID); err == nil {
		SetRackETag(w, rack.ID, rack.LayoutVersion)
	}
}
