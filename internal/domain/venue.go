package domain

import "time"

// Venue is a place where events are held.
type Venue struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Street         string    `json:"street" db:"street"`
	City           string    `json:"city" db:"city"`
	State          string    `json:"state" db:"state"`
	Zip            string    `json:"zip" db:"zip"`
	Country        string    `json:"country" db:"country"`
	Address        string    `json:"address" db:"address"`
	GoogleMapsLink string    `json:"google_maps_link" db:"google_maps_link"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// CreateVenueRequest is the request body for creating a venue.
type CreateVenueRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	Street         string `json:"street" validate:"max=255"`
	City           string `json:"city" validate:"max=255"`
	State          string `json:"state" validate:"max=100"`
	Zip            string `json:"zip" validate:"max=20"`
	Country        string `json:"country" validate:"max=100"`
	Address        string `json:"address" validate:"max=500"`
	GoogleMapsLink string `json:"google_maps_link" validate:"omitempty,httpurl"`
}

// UpdateVenueRequest is the request body for updating a venue.
type UpdateVenueRequest struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Street         *string `json:"street,omitempty" validate:"omitempty,max=255"`
	City           *string `json:"city,omitempty" validate:"omitempty,max=255"`
	State          *string `json:"state,omitempty" validate:"omitempty,max=100"`
	Zip            *string `json:"zip,omitempty" validate:"omitempty,max=20"`
	Country        *string `json:"country,omitempty" validate:"omitempty,max=100"`
	Address        *string `json:"address,omitempty" validate:"omitempty,max=500"`
	GoogleMapsLink *string `json:"google_maps_link,omitempty" validate:"omitempty,httpurl"`
}
