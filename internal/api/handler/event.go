package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/storage"
)

// EventHandler handles event endpoints.
type EventHandler struct {
	store storage.Storage
	now   func() time.Time
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(store storage.Storage) *EventHandler {
	return &EventHandler{store: store, now: time.Now}
}

// Create creates a new event.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	event := &domain.Event{
		ID:           generateID(),
		BandID:       optionalID(req.BandID),
		VenueID:      optionalID(req.VenueID),
		Name:         req.Name,
		Date:         req.Date,
		TicketLink:   req.TicketLink,
		FacebookLink: req.FacebookLink,
		Promo:        req.Promo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.store.CreateEvent(r.Context(), event); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// List lists events, newest first. ?venue_id= and ?band_id= filter;
// ?upcoming=true lists events from today onward, soonest first.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{
		VenueID: q.Get("venue_id"),
		BandID:  q.Get("band_id"),
	}
	if q.Get("upcoming") == "true" {
		today := h.now().UTC().Truncate(24 * time.Hour)
		filter.From = &today
	}

	events, err := h.store.ListEvents(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// Get gets an event by ID.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.store.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// Update applies the fields present in the request to an event. An empty
// band_id or venue_id clears the reference.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	event, err := h.store.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req domain.UpdateEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if req.BandID != nil {
		event.BandID = optionalID(req.BandID)
	}
	if req.VenueID != nil {
		event.VenueID = optionalID(req.VenueID)
	}
	if req.Date != nil {
		event.Date = *req.Date
	}
	setString(&event.Name, req.Name)
	setString(&event.TicketLink, req.TicketLink)
	setString(&event.FacebookLink, req.FacebookLink)
	setString(&event.Promo, req.Promo)

	if err := h.store.UpdateEvent(r.Context(), event); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// Delete deletes an event.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func optionalID(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	v := *id
	return &v
}
