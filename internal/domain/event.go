package domain

import "time"

// Event is a dated show for a band at a venue.
type Event struct {
	ID           string    `json:"id" db:"id"`
	BandID       *string   `json:"band_id,omitempty" db:"band_id"`
	VenueID      *string   `json:"venue_id,omitempty" db:"venue_id"`
	Name         string    `json:"name" db:"name"`
	Date         time.Time `json:"date" db:"date"`
	TicketLink   string    `json:"ticket_link" db:"ticket_link"`
	FacebookLink string    `json:"facebook_link" db:"facebook_link"`
	Promo        string    `json:"promo" db:"promo"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CreateEventRequest is the request body for creating an event.
type CreateEventRequest struct {
	BandID       *string   `json:"band_id,omitempty"`
	VenueID      *string   `json:"venue_id,omitempty"`
	Name         string    `json:"name" validate:"required,max=255"`
	Date         time.Time `json:"date" validate:"required"`
	TicketLink   string    `json:"ticket_link" validate:"omitempty,httpurl"`
	FacebookLink string    `json:"facebook_link" validate:"omitempty,httpurl"`
	Promo        string    `json:"promo"`
}

// UpdateEventRequest is the request body for updating an event.
type UpdateEventRequest struct {
	BandID       *string    `json:"band_id,omitempty"`
	VenueID      *string    `json:"venue_id,omitempty"`
	Name         *string    `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Date         *time.Time `json:"date,omitempty"`
	TicketLink   *string    `json:"ticket_link,omitempty" validate:"omitempty,httpurl"`
	FacebookLink *string    `json:"facebook_link,omitempty" validate:"omitempty,httpurl"`
	Promo        *string    `json:"promo,omitempty"`
}

// EventFilter narrows event listings. Zero values mean "no filter".
type EventFilter struct {
	VenueID string
	BandID  string
	// From restricts results to events on or after this instant and
	// switches ordering to ascending date.
	From *time.Time
}
