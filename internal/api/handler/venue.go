package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/storage"
)

// VenueHandler handles venue endpoints.
type VenueHandler struct {
	store storage.Storage
}

// NewVenueHandler creates a new VenueHandler.
func NewVenueHandler(store storage.Storage) *VenueHandler {
	return &VenueHandler{store: store}
}

// Create creates a new venue.
func (h *VenueHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateVenueRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	venue := &domain.Venue{
		ID:             generateID(),
		Name:           req.Name,
		Street:         req.Street,
		City:           req.City,
		State:          req.State,
		Zip:            req.Zip,
		Country:        req.Country,
		Address:        req.Address,
		GoogleMapsLink: req.GoogleMapsLink,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.store.CreateVenue(r.Context(), venue); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, venue)
}

// List lists all venues.
func (h *VenueHandler) List(w http.ResponseWriter, r *http.Request) {
	venues, err := h.store.ListVenues(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, venues)
}

// Get gets a venue by ID.
func (h *VenueHandler) Get(w http.ResponseWriter, r *http.Request) {
	venue, err := h.store.GetVenue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, venue)
}

// Update applies the fields present in the request to a venue.
func (h *VenueHandler) Update(w http.ResponseWriter, r *http.Request) {
	venue, err := h.store.GetVenue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req domain.UpdateVenueRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	setString(&venue.Name, req.Name)
	setString(&venue.Street, req.Street)
	setString(&venue.City, req.City)
	setString(&venue.State, req.State)
	setString(&venue.Zip, req.Zip)
	setString(&venue.Country, req.Country)
	setString(&venue.Address, req.Address)
	setString(&venue.GoogleMapsLink, req.GoogleMapsLink)

	if err := h.store.UpdateVenue(r.Context(), venue); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, venue)
}

// Delete deletes a venue.
func (h *VenueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteVenue(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setString overwrites dst when the optional request field is present.
func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
