package storage

import (
	"context"

	"github.com/stagehand-music/stagehand/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// API Keys
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
	CountAPIKeys(ctx context.Context) (int, error)

	// Bands
	CreateBand(ctx context.Context, band *domain.Band) error
	GetBand(ctx context.Context, id string) (*domain.Band, error)
	ListBands(ctx context.Context, filter domain.BandFilter) ([]*domain.Band, error)
	UpdateBand(ctx context.Context, band *domain.Band) error
	DeleteBand(ctx context.Context, id string) error

	// Venues
	CreateVenue(ctx context.Context, venue *domain.Venue) error
	GetVenue(ctx context.Context, id string) (*domain.Venue, error)
	ListVenues(ctx context.Context) ([]*domain.Venue, error)
	UpdateVenue(ctx context.Context, venue *domain.Venue) error
	DeleteVenue(ctx context.Context, id string) error

	// Events
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error)
	UpdateEvent(ctx context.Context, event *domain.Event) error
	DeleteEvent(ctx context.Context, id string) error

	// Blog Posts
	CreateBlogPost(ctx context.Context, post *domain.BlogPost) error
	GetBlogPost(ctx context.Context, id string) (*domain.BlogPost, error)
	ListBlogPosts(ctx context.Context) ([]*domain.BlogPost, error)
	UpdateBlogPost(ctx context.Context, post *domain.BlogPost) error
	DeleteBlogPost(ctx context.Context, id string) error

	// Racks
	CreateRack(ctx context.Context, rack *domain.Rack) error
	GetRack(ctx context.Context, id string) (*domain.Rack, error)
	ListRacks(ctx context.Context) ([]*domain.Rack, error)
	UpdateRack(ctx context.Context, rack *domain.Rack) error
	// DeleteRack removes the rack and all equipment mounted in it.
	DeleteRack(ctx context.Context, id string) error

	// Equipment. Every write bumps the owning rack's layout version.
	CreateEquipment(ctx context.Context, eq *domain.Equipment) error
	GetEquipment(ctx context.Context, id string) (*domain.Equipment, error)
	ListEquipment(ctx context.Context, rackID string) ([]*domain.Equipment, error)
	ListAllEquipment(ctx context.Context) ([]*domain.Equipment, error)
	UpdateEquipment(ctx context.Context, eq *domain.Equipment) error
	DeleteEquipment(ctx context.Context, id string) error

	// ApplyLayout writes every position update for a rack atomically.
	// It fails with domain.ErrConflict when the rack's layout version is no
	// longer expectedVersion, and returns the new layout version on success.
	ApplyLayout(ctx context.Context, rackID string, expectedVersion int, updates []domain.PositionUpdate) (int, error)

	// Transaction support
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Storage
	Commit() error
	Rollback() error
}
