package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
// Records are copied on the way in and out so callers never share state with
// the store.
type Store struct {
	mu sync.RWMutex

	apiKeys   map[string]*domain.APIKey
	bands     map[string]*domain.Band
	venues    map[string]*domain.Venue
	events    map[string]*domain.Event
	blogPosts map[string]*domain.BlogPost
	racks     map[string]*domain.Rack
	equipment map[string]*domain.Equipment // key: id
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		apiKeys:   make(map[string]*domain.APIKey),
		bands:     make(map[string]*domain.Band),
		venues:    make(map[string]*domain.Venue),
		events:    make(map[string]*domain.Event),
		blogPosts: make(map[string]*domain.BlogPost),
		racks:     make(map[string]*domain.Rack),
		equipment: make(map[string]*domain.Equipment),
	}
}

func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return &Tx{store: s}, nil
}

// Tx is a no-op transaction for in-memory store.
type Tx struct {
	store *Store
}

func (t *Tx) Commit() error                  { return nil }
func (t *Tx) Rollback() error                { return nil }
func (t *Tx) Close() error                   { return nil }
func (t *Tx) Ping(ctx context.Context) error { return nil }
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, domain.ErrInvalidInput
}

// Forward all Tx methods to the underlying store
func (t *Tx) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	return t.store.CreateAPIKey(ctx, key)
}
func (t *Tx) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	return t.store.GetAPIKeyByHash(ctx, keyHash)
}
func (t *Tx) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	return t.store.ListAPIKeys(ctx)
}
func (t *Tx) DeleteAPIKey(ctx context.Context, id string) error {
	return t.store.DeleteAPIKey(ctx, id)
}
func (t *Tx) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	return t.store.UpdateAPIKeyLastUsed(ctx, id)
}
func (t *Tx) CountAPIKeys(ctx context.Context) (int, error) {
	return t.store.CountAPIKeys(ctx)
}
func (t *Tx) CreateBand(ctx context.Context, band *domain.Band) error {
	return t.store.CreateBand(ctx, band)
}
func (t *Tx) GetBand(ctx context.Context, id string) (*domain.Band, error) {
	return t.store.GetBand(ctx, id)
}
func (t *Tx) ListBands(ctx context.Context, filter domain.BandFilter) ([]*domain.Band, error) {
	return t.store.ListBands(ctx, filter)
}
func (t *Tx) UpdateBand(ctx context.Context, band *domain.Band) error {
	return t.store.UpdateBand(ctx, band)
}
func (t *Tx) DeleteBand(ctx context.Context, id string) error {
	return t.store.DeleteBand(ctx, id)
}
func (t *Tx) CreateVenue(ctx context.Context, venue *domain.Venue) error {
	return t.store.CreateVenue(ctx, venue)
}
func (t *Tx) GetVenue(ctx context.Context, id string) (*domain.Venue, error) {
	return t.store.GetVenue(ctx, id)
}
func (t *Tx) ListVenues(ctx context.Context) ([]*domain.Venue, error) {
	return t.store.ListVenues(ctx)
}
func (t *Tx) UpdateVenue(ctx context.Context, venue *domain.Venue) error {
	return t.store.UpdateVenue(ctx, venue)
}
func (t *Tx) DeleteVenue(ctx context.Context, id string) error {
	return t.store.DeleteVenue(ctx, id)
}
func (t *Tx) CreateEvent(ctx context.Context, event *domain.Event) error {
	return t.store.CreateEvent(ctx, event)
}
func (t *Tx) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return t.store.GetEvent(ctx, id)
}
func (t *Tx) ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	return t.store.ListEvents(ctx, filter)
}
func (t *Tx) UpdateEvent(ctx context.Context, event *domain.Event) error {
	return t.store.UpdateEvent(ctx, event)
}
func (t *Tx) DeleteEvent(ctx context.Context, id string) error {
	return t.store.DeleteEvent(ctx, id)
}
func (t *Tx) CreateBlogPost(ctx context.Context, post *domain.BlogPost) error {
	return t.store.CreateBlogPost(ctx, post)
}
func (t *Tx) GetBlogPost(ctx context.Context, id string) (*domain.BlogPost, error) {
	return t.store.GetBlogPost(ctx, id)
}
func (t *Tx) ListBlogPosts(ctx context.Context) ([]*domain.BlogPost, error) {
	return t.store.ListBlogPosts(ctx)
}
func (t *Tx) UpdateBlogPost(ctx context.Context, post *domain.BlogPost) error {
	return t.store.UpdateBlogPost(ctx, post)
}
func (t *Tx) DeleteBlogPost(ctx context.Context, id string) error {
	return t.store.DeleteBlogPost(ctx, id)
}
func (t *Tx) CreateRack(ctx context.Context, rack *domain.Rack) error {
	return t.store.CreateRack(ctx, rack)
}
func (t *Tx) GetRack(ctx context.Context, id string) (*domain.Rack, error) {
	return t.store.GetRack(ctx, id)
}
func (t *Tx) ListRacks(ctx context.Context) ([]*domain.Rack, error) {
	return t.store.ListRacks(ctx)
}
func (t *Tx) UpdateRack(ctx context.Context, rack *domain.Rack) error {
	return t.store.UpdateRack(ctx, rack)
}
func (t *Tx) DeleteRack(ctx context.Context, id string) error {
	return t.store.DeleteRack(ctx, id)
}
func (t *Tx) CreateEquipment(ctx context.Context, eq *domain.Equipment) error {
	return t.store.CreateEquipment(ctx, eq)
}
func (t *Tx) GetEquipment(ctx context.Context, id string) (*domain.Equipment, error) {
	return t.store.GetEquipment(ctx, id)
}
func (t *Tx) ListEquipment(ctx context.Context, rackID string) ([]*domain.Equipment, error) {
	return t.store.ListEquipment(ctx, rackID)
}
func (t *Tx) ListAllEquipment(ctx context.Context) ([]*domain.Equipment, error) {
	return t.store.ListAllEquipment(ctx)
}
func (t *Tx) UpdateEquipment(ctx context.Context, eq *domain.Equipment) error {
	return t.store.UpdateEquipment(ctx, eq)
}
func (t *Tx) DeleteEquipment(ctx context.Context, id string) error {
	return t.store.DeleteEquipment(ctx, id)
}
func (t *Tx) ApplyLayout(ctx context.Context, rackID string, expectedVersion int, updates []domain.PositionUpdate) (int, error) {
	return t.store.ApplyLayout(ctx, rackID, expectedVersion, updates)
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apiKeys[key.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, existing := range s.apiKeys {
		if existing.KeyHash == key.KeyHash {
			return domain.ErrAlreadyExists
		}
	}
	s.apiKeys[key.ID] = clone(key)
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.apiKeys {
		if key.KeyHash == keyHash {
			return clone(key), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]*domain.APIKey, 0, len(s.apiKeys))
	for _, key := range s.apiKeys {
		keys = append(keys, clone(key))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apiKeys[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.apiKeys, id)
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, exists := s.apiKeys[id]; exists {
		now := time.Now()
		key.LastUsedAt = &now
	}
	return nil
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apiKeys), nil
}

// ============================================
// Bands
// ============================================

func (s *Store) CreateBand(ctx context.Context, band *domain.Band) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bands[band.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.bands[band.ID] = clone(band)
	return nil
}

func (s *Store) GetBand(ctx context.Context, id string) (*domain.Band, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	band, exists := s.bands[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return clone(band), nil
}

func (s *Store) ListBands(ctx context.Context, filter domain.BandFilter) ([]*domain.Band, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bands := make([]*domain.Band, 0, len(s.bands))
	for _, band := range s.bands {
		if filter.ActiveOnly && !band.IsActive {
			continue
		}
		bands = append(bands, clone(band))
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].Name < bands[j].Name })
	return bands, nil
}

func (s *Store) UpdateBand(ctx context.Context, band *domain.Band) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bands[band.ID]; !exists {
		return domain.ErrNotFound
	}
	band.UpdatedAt = time.Now()
	s.bands[band.ID] = clone(band)
	return nil
}

func (s *Store) DeleteBand(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bands[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.bands, id)
	for _, event := range s.events {
		if event.BandID != nil && *event.BandID == id {
			event.BandID = nil
		}
	}
	return nil
}

// ============================================
// Venues
// ============================================

func (s *Store) CreateVenue(ctx context.Context, venue *domain.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.venues[venue.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.venues[venue.ID] = clone(venue)
	return nil
}

func (s *Store) GetVenue(ctx context.Context, id string) (*domain.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	venue, exists := s.venues[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return clone(venue), nil
}

func (s *Store) ListVenues(ctx context.Context) ([]*domain.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	venues := make([]*domain.Venue, 0, len(s.venues))
	for _, venue := range s.venues {
		venues = append(venues, clone(venue))
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i].Name < venues[j].Name })
	return venues, nil
}

func (s *Store) UpdateVenue(ctx context.Context, venue *domain.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.venues[venue.ID]; !exists {
		return domain.ErrNotFound
	}
	venue.UpdatedAt = time.Now()
	s.venues[venue.ID] = clone(venue)
	return nil
}

func (s *Store) DeleteVenue(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.venues[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.venues, id)
	for _, event := range s.events {
		if event.VenueID != nil && *event.VenueID == id {
			event.VenueID = nil
		}
	}
	return nil
}

// ============================================
// Events
// ============================================

// checkEventRefs mirrors the foreign keys of the SQL schema. Caller holds the lock.
func (s *Store) checkEventRefs(event *domain.Event) error {
	if event.BandID != nil {
		if _, ok := s.bands[*event.BandID]; !ok {
			return fmt.Errorf("%w: band %s does not exist", domain.ErrInvalidInput, *event.BandID)
		}
	}
	if event.VenueID != nil {
		if _, ok := s.venues[*event.VenueID]; !ok {
			return fmt.Errorf("%w: venue %s does not exist", domain.ErrInvalidInput, *event.VenueID)
		}
	}
	return nil
}

func (s *Store) CreateEvent(ctx context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if err := s.checkEventRefs(event); err != nil {
		return err
	}
	s.events[event.ID] = clone(event)
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, exists := s.events[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return clone(event), nil
}

func (s *Store) ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]*domain.Event, 0, len(s.events))
	for _, event := range s.events {
		if filter.VenueID != "" && (event.VenueID == nil || *event.VenueID != filter.VenueID) {
			continue
		}
		if filter.BandID != "" && (event.BandID == nil || *event.BandID != filter.BandID) {
			continue
		}
		if filter.From != nil && event.Date.Before(*filter.From) {
			continue
		}
		events = append(events, clone(event))
	}
	sort.Slice(events, func(i, j int) bool {
		if filter.From != nil {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Date.After(events[j].Date)
	})
	return events, nil
}

func (s *Store) UpdateEvent(ctx context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.ID]; !exists {
		return domain.ErrNotFound
	}
	if err := s.checkEventRefs(event); err != nil {
		return err
	}
	event.UpdatedAt = time.Now()
	s.events[event.ID] = clone(event)
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// ============================================
// Blog Posts
// ============================================

func (s *Store) CreateBlogPost(ctx context.Context, post *domain.BlogPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blogPosts[post.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.blogPosts[post.ID] = clone(post)
	return nil
}

func (s *Store) GetBlogPost(ctx context.Context, id string) (*domain.BlogPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, exists := s.blogPosts[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return clone(post), nil
}

func (s *Store) ListBlogPosts(ctx context.Context) ([]*domain.BlogPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := make([]*domain.BlogPost, 0, len(s.blogPosts))
	for _, post := range s.blogPosts {
		posts = append(posts, clone(post))
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (s *Store) UpdateBlogPost(ctx context.Context, post *domain.BlogPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blogPosts[post.ID]; !exists {
		return domain.ErrNotFound
	}
	now := time.Now()
	post.UpdatedAt = &now
	s.blogPosts[post.ID] = clone(post)
	return nil
}

func (s *Store) DeleteBlogPost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blogPosts[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.blogPosts, id)
	return nil
}

// ============================================
// Racks
// ============================================

func (s *Store) CreateRack(ctx context.Context, rack *domain.Rack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.racks[rack.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if rack.LayoutVersion == 0 {
		rack.LayoutVersion = 1
	}
	s.racks[rack.ID] = clone(rack)
	return nil
}

func (s *Store) GetRack(ctx context.Context, id string) (*domain.Rack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rack, exists := s.racks[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return clone(rack), nil
}

func (s *Store) ListRacks(ctx context.Context) ([]*domain.Rack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	racks := make([]*domain.Rack, 0, len(s.racks))
	for _, rack := range s.racks {
		racks = append(racks, clone(rack))
	}
	sort.Slice(racks, func(i, j int) bool { return racks[i].Name < racks[j].Name })
	return racks, nil
}

func (s *Store) UpdateRack(ctx context.Context, rack *domain.Rack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.racks[rack.ID]
	if !exists {
		return domain.ErrNotFound
	}
	rack.LayoutVersion = existing.LayoutVersion + 1
	rack.UpdatedAt = time.Now()
	s.racks[rack.ID] = clone(rack)
	return nil
}

func (s *Store) DeleteRack(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.racks[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.racks, id)
	for eqID, eq := range s.equipment {
		if eq.RackID == id {
			delete(s.equipment, eqID)
		}
	}
	return nil
}

// bumpLayoutVersion increments a rack's layout version. Caller holds the lock.
func (s *Store) bumpLayoutVersion(rackID string) int {
	rack := s.racks[rackID]
	rack.LayoutVersion++
	rack.UpdatedAt = time.Now()
	return rack.LayoutVersion
}

// ============================================
// Equipment
// ============================================

func (s *Store) CreateEquipment(ctx context.Context, eq *domain.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.equipment[eq.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if _, ok := s.racks[eq.RackID]; !ok {
		return fmt.Errorf("%w: rack %s does not exist", domain.ErrInvalidInput, eq.RackID)
	}
	s.equipment[eq.ID] = clone(eq)
	s.bumpLayoutVersion(eq.RackID)
	return nil
}

func (s *Store) GetEquipment(ctx context.Context, id string) (*domain.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eq, exists := s.equipment[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return clone(eq), nil
}

func (s *Store) ListEquipment(ctx context.Context, rackID string) ([]*domain.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var equipment []*domain.Equipment
	for _, eq := range s.equipment {
		if eq.RackID == rackID {
			equipment = append(equipment, clone(eq))
		}
	}
	sortEquipment(equipment)
	if equipment == nil {
		equipment = []*domain.Equipment{}
	}
	return equipment, nil
}

func (s *Store) ListAllEquipment(ctx context.Context) ([]*domain.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	equipment := make([]*domain.Equipment, 0, len(s.equipment))
	for _, eq := range s.equipment {
		equipment = append(equipment, clone(eq))
	}
	sortEquipment(equipment)
	return equipment, nil
}

func sortEquipment(equipment []*domain.Equipment) {
	sort.Slice(equipment, func(i, j int) bool {
		a, b := equipment[i], equipment[j]
		if a.RackID != b.RackID {
			return a.RackID < b.RackID
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func (s *Store) UpdateEquipment(ctx context.Context, eq *domain.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.equipment[eq.ID]
	if !exists || existing.RackID != eq.RackID {
		return domain.ErrNotFound
	}
	eq.UpdatedAt = time.Now()
	s.equipment[eq.ID] = clone(eq)
	s.bumpLayoutVersion(eq.RackID)
	return nil
}

func (s *Store) DeleteEquipment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	eq, exists := s.equipment[id]
	if !exists {
		return domain.ErrNotFound
	}
	delete(s.equipment, id)
	s.bumpLayoutVersion(eq.RackID)
	return nil
}

func (s *Store) ApplyLayout(ctx context.Context, rackID string, expectedVersion int, updates []domain.PositionUpdate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rack, exists := s.racks[rackID]
	if !exists {
		return 0, domain.ErrNotFound
	}
	if rack.LayoutVersion != expectedVersion {
		return 0, fmt.Errorf("%w: rack %s layout version changed", domain.ErrConflict, rackID)
	}
	// Validate every update before touching anything.
	for _, u := range updates {
		eq, ok := s.equipment[u.EquipmentID]
		if !ok || eq.RackID != rackID {
			return 0, fmt.Errorf("%w: %s", domain.ErrUnknownEquipment, u.EquipmentID)
		}
	}
	now := time.Now()
	for _, u := range updates {
		eq := s.equipment[u.EquipmentID]
		eq.Position = u.Position
		eq.UpdatedAt = now
	}
	return s.bumpLayoutVersion(rackID), nil
}
