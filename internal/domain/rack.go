package domain

import "time"

// RackUnitInches is the height of one rack unit.
const RackUnitInches = 1.75

// MountingSide is the rack face a piece of equipment is mounted on.
// Front and back occupy independent position spaces.
type MountingSide string

const (
	SideFront MountingSide = "front"
	SideBack  MountingSide = "back"
)

// Rack is a fixed-capacity equipment rack.
type Rack struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Capacity      int       `json:"ru_capacity" db:"ru_capacity"`
	Model         string    `json:"model" db:"model"`
	Brand         string    `json:"brand" db:"brand"`
	Description   string    `json:"description" db:"description"`
	ImageURL      string    `json:"image_url" db:"image_url"`
	Depth         *float64  `json:"depth,omitempty" db:"depth"`
	Cost          *float64  `json:"cost,omitempty" db:"cost"`
	Weight        *float64  `json:"weight,omitempty" db:"weight"`
	PowerCapacity *int      `json:"power_capacity,omitempty" db:"power_capacity"`
	LayoutVersion int       `json:"layout_version" db:"layout_version"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// CreateRackRequest is the request body for creating a rack.
type CreateRackRequest struct {
	Name          string   `json:"name" validate:"required,max=255"`
	Capacity      int      `json:"ru_capacity" validate:"required,min=1,max=100"`
	Model         string   `json:"model" validate:"max=255"`
	Brand         string   `json:"brand" validate:"max=255"`
	Description   string   `json:"description"`
	ImageURL      string   `json:"image_url" validate:"omitempty,httpurl"`
	Depth         *float64 `json:"depth,omitempty" validate:"omitempty,gte=0"`
	Cost          *float64 `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Weight        *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
	PowerCapacity *int     `json:"power_capacity,omitempty" validate:"omitempty,gte=0"`
}

// UpdateRackRequest is the request body for updating a rack.
type UpdateRackRequest struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Capacity      *int     `json:"ru_capacity,omitempty" validate:"omitempty,min=1,max=100"`
	Model         *string  `json:"model,omitempty" validate:"omitempty,max=255"`
	Brand         *string  `json:"brand,omitempty" validate:"omitempty,max=255"`
	Description   *string  `json:"description,omitempty"`
	ImageURL      *string  `json:"image_url,omitempty" validate:"omitempty,httpurl"`
	Depth         *float64 `json:"depth,omitempty" validate:"omitempty,gte=0"`
	Cost          *float64 `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Weight        *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
	PowerCapacity *int     `json:"power_capacity,omitempty" validate:"omitempty,gte=0"`
}

// Equipment is a piece of gear mounted in a rack.
type Equipment struct {
	ID          string    `json:"id" db:"id"`
	RackID      string    `json:"rack_id" db:"rack_id"`
	Model       string    `json:"model" db:"model"`
	Brand       string    `json:"brand" db:"brand"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	Height      int       `json:"ru" db:"ru"`
	Position    int       `json:"ru_position" db:"ru_position"`
	Depth       *float64  `json:"depth,omitempty" db:"depth"`
	Cost        *float64  `json:"cost,omitempty" db:"cost"`
	Weight      *float64  `json:"weight,omitempty" db:"weight"`
	Backmounted bool      `json:"is_backmounted" db:"is_backmounted"`
	PowerDemand *int      `json:"power_demand,omitempty" db:"power_demand"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Side returns the mounting side of the equipment.
func (e *Equipment) Side() MountingSide {
	if e.Backmounted {
		return SideBack
	}
	return SideFront
}

// End returns the last rack unit occupied by the equipment.
func (e *Equipment) End() int {
	return e.Position + e.Height - 1
}

// CreateEquipmentRequest is the request body for mounting equipment in a rack.
type CreateEquipmentRequest struct {
	Model       string   `json:"model" validate:"required,max=255"`
	Brand       string   `json:"brand" validate:"max=255"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url" validate:"omitempty,httpurl"`
	Height      int      `json:"ru" validate:"required,min=1"`
	Position    int      `json:"ru_position" validate:"required,min=1"`
	Depth       *float64 `json:"depth,omitempty" validate:"omitempty,gte=0"`
	Cost        *float64 `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Weight      *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
	Backmounted bool     `json:"is_backmounted"`
	PowerDemand *int     `json:"power_demand,omitempty" validate:"omitempty,gte=0"`
}

// UpdateEquipmentRequest is the request body for editing equipment.
type UpdateEquipmentRequest struct {
	Model       *string  `json:"model,omitempty" validate:"omitempty,min=1,max=255"`
	Brand       *string  `json:"brand,omitempty" validate:"omitempty,max=255"`
	Description *string  `json:"description,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty" validate:"omitempty,httpurl"`
	Height      *int     `json:"ru,omitempty" validate:"omitempty,min=1"`
	Position    *int     `json:"ru_position,omitempty" validate:"omitempty,min=1"`
	Depth       *float64 `json:"depth,omitempty" validate:"omitempty,gte=0"`
	Cost        *float64 `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Weight      *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
	Backmounted *bool    `json:"is_backmounted,omitempty"`
	PowerDemand *int     `json:"power_demand,omitempty" validate:"omitempty,gte=0"`
}

// PositionUpdate assigns a new starting position to one piece of equipment.
type PositionUpdate struct {
	EquipmentID string `json:"id" db:"id"`
	Position    int    `json:"ru_position" db:"ru_position"`
}

// MoveEquipmentRequest is the request body for a drag-and-drop move.
// Positions outside the rack are clamped, but the field must be present.
type MoveEquipmentRequest struct {
	Position *int `json:"ru_position" validate:"required"`
}

// MoveEquipmentResponse reports what a move changed.
type MoveEquipmentResponse struct {
	Unchanged     bool             `json:"unchanged"`
	Position      int              `json:"ru_position"`
	Updates       []PositionUpdate `json:"updates"`
	LayoutVersion int              `json:"layout_version"`
}

// RackSummary aggregates the physical totals of a rack and its equipment.
type RackSummary struct {
	RackID         string  `json:"rack_id"`
	Capacity       int     `json:"ru_capacity"`
	EquipmentCount int     `json:"equipment_count"`
	UsedFront      int     `json:"used_front"`
	UsedBack       int     `json:"used_back"`
	TotalCost      float64 `json:"total_cost"`
	TotalWeight    float64 `json:"total_weight"`
	PowerDemand    int     `json:"power_demand"`
	PowerCapacity  *int    `json:"power_capacity,omitempty"`
	OverPower      bool    `json:"over_power"`
	HeightInches   float64 `json:"height_inches"`
}
