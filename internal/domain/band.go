package domain

import "time"

// Band is a musical project the site owner plays in.
type Band struct {
	ID            string     `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	LogoImageLink string     `json:"logo_image_link" db:"logo_image_link"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	StartDate     *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty" db:"end_date"`
	Location      string     `json:"location" db:"location"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateBandRequest is the request body for creating a band.
type CreateBandRequest struct {
	Name          string     `json:"name" validate:"required,max=255"`
	LogoImageLink string     `json:"logo_image_link" validate:"omitempty,httpurl"`
	IsActive      *bool      `json:"is_active,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Location      string     `json:"location" validate:"max=255"`
}

// UpdateBandRequest is the request body for updating a band.
type UpdateBandRequest struct {
	Name          *string    `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	LogoImageLink *string    `json:"logo_image_link,omitempty" validate:"omitempty,httpurl"`
	IsActive      *bool      `json:"is_active,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Location      *string    `json:"location,omitempty" validate:"omitempty,max=255"`
}

// BandFilter narrows band listings.
type BandFilter struct {
	ActiveOnly bool
}
