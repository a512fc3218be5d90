package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// isForeignKeyViolation checks if an error is a FOREIGN KEY constraint violation.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "FOREIGN KEY constraint failed") ||
		strings.Contains(errStr, "violates foreign key constraint")
}

// wrapWriteError converts constraint violations to domain errors.
func wrapWriteError(err error) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: referenced record does not exist", domain.ErrInvalidInput)
	}
	return wrapUniqueError(err)
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store and applies pending migrations.
func New(driver, dsn string) (*Store, error) {
	if driver == "sqlite3" {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// sqliteDSN turns on foreign keys and a busy timeout unless the DSN already sets them.
func sqliteDSN(dsn string) string {
	var opts []string
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		opts = append(opts, "_foreign_keys=on")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		opts = append(opts, "_busy_timeout=5000")
	}
	if len(opts) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(opts, "&")
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, driver: s.driver}, nil
}

// Tx wraps a database transaction.
type Tx struct {
	tx     *sqlx.Tx
	driver string
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Close is a no-op for transactions (they should be committed or rolled back).
func (t *Tx) Close() error {
	return nil
}

// Ping is a no-op inside a transaction.
func (t *Tx) Ping(ctx context.Context) error {
	return nil
}

// BeginTx is not supported within a transaction.
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// requireRows maps a zero-row write to domain.ErrNotFound.
func requireRows(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// utc normalizes an optional timestamp so SQLite text comparisons order correctly.
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// ============================================
// API Keys
// ============================================

func createAPIKey(ctx context.Context, db dbInterface, key *domain.APIKey) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, created_at, last_used_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt.UTC(), utc(key.LastUsedAt))
	return wrapUniqueError(err)
}

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	return createAPIKey(ctx, s.db, key)
}

func (t *Tx) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	return createAPIKey(ctx, t.tx, key)
}

func getAPIKeyByHash(ctx context.Context, db dbInterface, keyHash string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := db.GetContext(ctx, &key,
		`SELECT id, name, key_hash, key_prefix, created_at, last_used_at FROM api_keys WHERE key_hash = $1`, keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	return getAPIKeyByHash(ctx, s.db, keyHash)
}

func (t *Tx) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	return getAPIKeyByHash(ctx, t.tx, keyHash)
}

func listAPIKeys(ctx context.Context, db dbInterface) ([]*domain.APIKey, error) {
	keys := []*domain.APIKey{}
	err := db.SelectContext(ctx, &keys,
		`SELECT id, name, key_hash, key_prefix, created_at, last_used_at FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	return listAPIKeys(ctx, s.db)
}

func (t *Tx) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	return listAPIKeys(ctx, t.tx)
}

func deleteAPIKey(ctx context.Context, db dbInterface, id string) error {
	return requireRows(db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id))
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	return deleteAPIKey(ctx, s.db, id)
}

func (t *Tx) DeleteAPIKey(ctx context.Context, id string) error {
	return deleteAPIKey(ctx, t.tx, id)
}

func updateAPIKeyLastUsed(ctx context.Context, db dbInterface, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	return err
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	return updateAPIKeyLastUsed(ctx, s.db, id)
}

func (t *Tx) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	return updateAPIKeyLastUsed(ctx, t.tx, id)
}

func countAPIKeys(ctx context.Context, db dbInterface) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM api_keys`)
	return count, err
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	return countAPIKeys(ctx, s.db)
}

func (t *Tx) CountAPIKeys(ctx context.Context) (int, error) {
	return countAPIKeys(ctx, t.tx)
}

// ============================================
// Bands
// ============================================

const bandColumns = `id, name, logo_image_link, is_active, start_date, end_date, location, created_at, updated_at`

func createBand(ctx context.Context, db dbInterface, band *domain.Band) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO bands (`+bandColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		band.ID, band.Name, band.LogoImageLink, band.IsActive, utc(band.StartDate), utc(band.EndDate),
		band.Location, band.CreatedAt.UTC(), band.UpdatedAt.UTC())
	return wrapWriteError(err)
}

func (s *Store) CreateBand(ctx context.Context, band *domain.Band) error {
	return createBand(ctx, s.db, band)
}

func (t *Tx) CreateBand(ctx context.Context, band *domain.Band) error {
	return createBand(ctx, t.tx, band)
}

func getBand(ctx context.Context, db dbInterface, id string) (*domain.Band, error) {
	var band domain.Band
	err := db.GetContext(ctx, &band, `SELECT `+bandColumns+` FROM bands WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &band, nil
}

func (s *Store) GetBand(ctx context.Context, id string) (*domain.Band, error) {
	return getBand(ctx, s.db, id)
}

func (t *Tx) GetBand(ctx context.Context, id string) (*domain.Band, error) {
	return getBand(ctx, t.tx, id)
}

func listBands(ctx context.Context, db dbInterface, filter domain.BandFilter) ([]*domain.Band, error) {
	query := `SELECT ` + bandColumns + ` FROM bands`
	var args []any
	if filter.ActiveOnly {
		query += ` WHERE is_active = $1`
		args = append(args, true)
	}
	query += ` ORDER BY name`

	bands := []*domain.Band{}
	if err := db.SelectContext(ctx, &bands, query, args...); err != nil {
		return nil, err
	}
	return bands, nil
}

func (s *Store) ListBands(ctx context.Context, filter domain.BandFilter) ([]*domain.Band, error) {
	return listBands(ctx, s.db, filter)
}

func (t *Tx) ListBands(ctx context.Context, filter domain.BandFilter) ([]*domain.Band, error) {
	return listBands(ctx, t.tx, filter)
}

func updateBand(ctx context.Context, db dbInterface, band *domain.Band) error {
	band.UpdatedAt = time.Now().UTC()
	return requireRows(db.ExecContext(ctx,
		`UPDATE bands SET name = $1, logo_image_link = $2, is_active = $3, start_date = $4, end_date = $5,
		 location = $6, updated_at = $7 WHERE id = $8`,
		band.Name, band.LogoImageLink, band.IsActive, utc(band.StartDate), utc(band.EndDate),
		band.Location, band.UpdatedAt, band.ID))
}

func (s *Store) UpdateBand(ctx context.Context, band *domain.Band) error {
	return updateBand(ctx, s.db, band)
}

func (t *Tx) UpdateBand(ctx context.Context, band *domain.Band) error {
	return updateBand(ctx, t.tx, band)
}

func deleteBand(ctx context.Context, db dbInterface, id string) error {
	return requireRows(db.ExecContext(ctx, `DELETE FROM bands WHERE id = $1`, id))
}

func (s *Store) DeleteBand(ctx context.Context, id string) error {
	return deleteBand(ctx, s.db, id)
}

func (t *Tx) DeleteBand(ctx context.Context, id string) error {
	return deleteBand(ctx, t.tx, id)
}

// ============================================
// Venues
// ============================================

const venueColumns = `id, name, street, city, state, zip, country, address, google_maps_link, created_at, updated_at`

func createVenue(ctx context.Context, db dbInterface, venue *domain.Venue) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO venues (`+venueColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		venue.ID, venue.Name, venue.Street, venue.City, venue.State, venue.Zip, venue.Country,
		venue.Address, venue.GoogleMapsLink, venue.CreatedAt.UTC(), venue.UpdatedAt.UTC())
	return wrapWriteError(err)
}

func (s *Store) CreateVenue(ctx context.Context, venue *domain.Venue) error {
	return createVenue(ctx, s.db, venue)
}

func (t *Tx) CreateVenue(ctx context.Context, venue *domain.Venue) error {
	return createVenue(ctx, t.tx, venue)
}

func getVenue(ctx context.Context, db dbInterface, id string) (*domain.Venue, error) {
	var venue domain.Venue
	err := db.GetContext(ctx, &venue, `SELECT `+venueColumns+` FROM venues WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func (s *Store) GetVenue(ctx context.Context, id string) (*domain.Venue, error) {
	return getVenue(ctx, s.db, id)
}

func (t *Tx) GetVenue(ctx context.Context, id string) (*domain.Venue, error) {
	return getVenue(ctx, t.tx, id)
}

func listVenues(ctx context.Context, db dbInterface) ([]*domain.Venue, error) {
	venues := []*domain.Venue{}
	if err := db.SelectContext(ctx, &venues, `SELECT `+venueColumns+` FROM venues ORDER BY name`); err != nil {
		return nil, err
	}
	return venues, nil
}

func (s *Store) ListVenues(ctx context.Context) ([]*domain.Venue, error) {
	return listVenues(ctx, s.db)
}

func (t *Tx) ListVenues(ctx context.Context) ([]*domain.Venue, error) {
	return listVenues(ctx, t.tx)
}

func updateVenue(ctx context.Context, db dbInterface, venue *domain.Venue) error {
	venue.UpdatedAt = time.Now().UTC()
	return requireRows(db.ExecContext(ctx,
		`UPDATE venues SET name = $1, street = $2, city = $3, state = $4, zip = $5, country = $6,
		 address = $7, google_maps_link = $8, updated_at = $9 WHERE id = $10`,
		venue.Name, venue.Street, venue.City, venue.State, venue.Zip, venue.Country,
		venue.Address, venue.GoogleMapsLink, venue.UpdatedAt, venue.ID))
}

func (s *Store) UpdateVenue(ctx context.Context, venue *domain.Venue) error {
	return updateVenue(ctx, s.db, venue)
}

func (t *Tx) UpdateVenue(ctx context.Context, venue *domain.Venue) error {
	return updateVenue(ctx, t.tx, venue)
}

func deleteVenue(ctx context.Context, db dbInterface, id string) error {
	return requireRows(db.ExecContext(ctx, `DELETE FROM venues WHERE id = $1`, id))
}

func (s *Store) DeleteVenue(ctx context.Context, id string) error {
	return deleteVenue(ctx, s.db, id)
}

func (t *Tx) DeleteVenue(ctx context.Context, id string) error {
	return deleteVenue(ctx, t.tx, id)
}

// ============================================
// Events
// ============================================

const eventColumns = `id, band_id, venue_id, name, date, ticket_link, facebook_link, promo, created_at, updated_at`

func createEvent(ctx context.Context, db dbInterface, event *domain.Event) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.BandID, event.VenueID, event.Name, event.Date.UTC(), event.TicketLink,
		event.FacebookLink, event.Promo, event.CreatedAt.UTC(), event.UpdatedAt.UTC())
	return wrapWriteError(err)
}

func (s *Store) CreateEvent(ctx context.Context, event *domain.Event) error {
	return createEvent(ctx, s.db, event)
}

func (t *Tx) CreateEvent(ctx context.Context, event *domain.Event) error {
	return createEvent(ctx, t.tx, event)
}

func getEvent(ctx context.Context, db dbInterface, id string) (*domain.Event, error) {
	var event domain.Event
	err := db.GetContext(ctx, &event, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return getEvent(ctx, s.db, id)
}

func (t *Tx) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return getEvent(ctx, t.tx, id)
}

func listEvents(ctx context.Context, db dbInterface, filter domain.EventFilter) ([]*domain.Event, error) {
	var (
		where []string
		args  []any
	)
	// Placeholders must be numbered in order of appearance for SQLite.
	if filter.VenueID != "" {
		args = append(args, filter.VenueID)
		where = append(where, fmt.Sprintf("venue_id = $%d", len(args)))
	}
	if filter.BandID != "" {
		args = append(args, filter.BandID)
		where = append(where, fmt.Sprintf("band_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, filter.From.UTC())
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if filter.From != nil {
		query += ` ORDER BY date ASC`
	} else {
		query += ` ORDER BY date DESC`
	}

	events := []*domain.Event{}
	if err := db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	return listEvents(ctx, s.db, filter)
}

func (t *Tx) ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	return listEvents(ctx, t.tx, filter)
}

func updateEvent(ctx context.Context, db dbInterface, event *domain.Event) error {
	event.UpdatedAt = time.Now().UTC()
	err := requireRows(db.ExecContext(ctx,
		`UPDATE events SET band_id = $1, venue_id = $2, name = $3, date = $4, ticket_link = $5,
		 facebook_link = $6, promo = $7, updated_at = $8 WHERE id = $9`,
		event.BandID, event.VenueID, event.Name, event.Date.UTC(), event.TicketLink,
		event.FacebookLink, event.Promo, event.UpdatedAt, event.ID))
	return wrapWriteError(err)
}

func (s *Store) UpdateEvent(ctx context.Context, event *domain.Event) error {
	return updateEvent(ctx, s.db, event)
}

func (t *Tx) UpdateEvent(ctx context.Context, event *domain.Event) error {
	return updateEvent(ctx, t.tx, event)
}

func deleteEvent(ctx context.Context, db dbInterface, id string) error {
	return requireRows(db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id))
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return deleteEvent(ctx, s.db, id)
}

func (t *Tx) DeleteEvent(ctx context.Context, id string) error {
	return deleteEvent(ctx, t.tx, id)
}

// ============================================
// Blog Posts
// ============================================

const blogPostColumns = `id, title, body, author, created_at, updated_at`

func createBlogPost(ctx context.Context, db dbInterface, post *domain.BlogPost) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO blog_posts (`+blogPostColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		post.ID, post.Title, post.Body, post.Author, post.CreatedAt.UTC(), utc(post.UpdatedAt))
	return wrapWriteError(err)
}

func (s *Store) CreateBlogPost(ctx context.Context, post *domain.BlogPost) error {
	return createBlogPost(ctx, s.db, post)
}

func (t *Tx) CreateBlogPost(ctx context.Context, post *domain.BlogPost) error {
	return createBlogPost(ctx, t.tx, post)
}

func getBlogPost(ctx context.Context, db dbInterface, id string) (*domain.BlogPost, error) {
	var post domain.BlogPost
	err := db.GetContext(ctx, &post, `SELECT `+blogPostColumns+` FROM blog_posts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Store) GetBlogPost(ctx context.Context, id string) (*domain.BlogPost, error) {
	return getBlogPost(ctx, s.db, id)
}

func (t *Tx) GetBlogPost(ctx context.Context, id string) (*domain.BlogPost, error) {
	return getBlogPost(ctx, t.tx, id)
}

func listBlogPosts(ctx context.Context, db dbInterface) ([]*domain.BlogPost, error) {
	posts := []*domain.BlogPost{}
	if err := db.SelectContext(ctx, &posts, `SELECT `+blogPostColumns+` FROM blog_posts ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) ListBlogPosts(ctx context.Context) ([]*domain.BlogPost, error) {
	return listBlogPosts(ctx, s.db)
}

func (t *Tx) ListBlogPosts(ctx context.Context) ([]*domain.BlogPost, error) {
	return listBlogPosts(ctx, t.tx)
}

func updateBlogPost(ctx context.Context, db dbInterface, post *domain.BlogPost) error {
	now := time.Now().UTC()
	post.UpdatedAt = &now
	return requireRows(db.ExecContext(ctx,
		`UPDATE blog_posts SET title = $1, body = $2, author = $3, updated_at = $4 WHERE id = $5`,
		post.Title, post.Body, post.Author, now, post.ID))
}

func (s *Store) UpdateBlogPost(ctx context.Context, post *domain.BlogPost) error {
	return updateBlogPost(ctx, s.db, post)
}

func (t *Tx) UpdateBlogPost(ctx context.Context, post *domain.BlogPost) error {
	return updateBlogPost(ctx, t.tx, post)
}

func deleteBlogPost(ctx context.Context, db dbInterface, id string) error {
	return requireRows(db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1`, id))
}

func (s *Store) DeleteBlogPost(ctx context.Context, id string) error {
	return deleteBlogPost(ctx, s.db, id)
}

func (t *Tx) DeleteBlogPost(ctx context.Context, id string) error {
	return deleteBlogPost(ctx, t.tx, id)
}

// ============================================
// Racks
// ============================================

const rackColumns = `id, name, ru_capacity, model, brand, description, image_url, depth, cost, weight,
	power_capacity, layout_version, created_at, updated_at`

func createRack(ctx context.Context, db dbInterface, rack *domain.Rack) error {
	if rack.LayoutVersion == 0 {
		rack.LayoutVersion = 1
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO racks (`+rackColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rack.ID, rack.Name, rack.Capacity, rack.Model, rack.Brand, rack.Description, rack.ImageURL,
		rack.Depth, rack.Cost, rack.Weight, rack.PowerCapacity, rack.LayoutVersion,
		rack.CreatedAt.UTC(), rack.UpdatedAt.UTC())
	return wrapWriteError(err)
}

func (s *Store) CreateRack(ctx context.Context, rack *domain.Rack) error {
	return createRack(ctx, s.db, rack)
}

func (t *Tx) CreateRack(ctx context.Context, rack *domain.Rack) error {
	return createRack(ctx, t.tx, rack)
}

func getRack(ctx context.Context, db dbInterface, id string) (*domain.Rack, error) {
	var rack domain.Rack
	err := db.GetContext(ctx, &rack, `SELECT `+rackColumns+` FROM racks WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rack, nil
}

func (s *Store) GetRack(ctx context.Context, id string) (*domain.Rack, error) {
	return getRack(ctx, s.db, id)
}

func (t *Tx) GetRack(ctx context.Context, id string) (*domain.Rack, error) {
	return getRack(ctx, t.tx, id)
}

func listRacks(ctx context.Context, db dbInterface) ([]*domain.Rack, error) {
	racks := []*domain.Rack{}
	if err := db.SelectContext(ctx, &racks, `SELECT `+rackColumns+` FROM racks ORDER BY name`); err != nil {
		return nil, err
	}
	return racks, nil
}

func (s *Store) ListRacks(ctx context.Context) ([]*domain.Rack, error) {
	return listRacks(ctx, s.db)
}

func (t *Tx) ListRacks(ctx context.Context) ([]*domain.Rack, error) {
	return listRacks(ctx, t.tx)
}

func updateRack(ctx context.Context, db dbInterface, rack *domain.Rack) error {
	rack.UpdatedAt = time.Now().UTC()
	err := requireRows(db.ExecContext(ctx,
		`UPDATE racks SET name = $1, ru_capacity = $2, model = $3, brand = $4, description = $5,
		 image_url = $6, depth = $7, cost = $8, weight = $9, power_capacity = $10,
		 layout_version = layout_version + 1, updated_at = $11 WHERE id = $12`,
		rack.Name, rack.Capacity, rack.Model, rack.Brand, rack.Description, rack.ImageURL,
		rack.Depth, rack.Cost, rack.Weight, rack.PowerCapacity, rack.UpdatedAt, rack.ID))
	if err != nil {
		return err
	}
	return db.GetContext(ctx, &rack.LayoutVersion, `SELECT layout_version FROM racks WHERE id = $1`, rack.ID)
}

func (s *Store) UpdateRack(ctx context.Context, rack *domain.Rack) error {
	return updateRack(ctx, s.db, rack)
}

func (t *Tx) UpdateRack(ctx context.Context, rack *domain.Rack) error {
	return updateRack(ctx, t.tx, rack)
}

func deleteRack(ctx context.Context, db dbInterface, id string) error {
	// Equipment is removed explicitly as well so the cascade does not depend on
	// the driver enforcing foreign keys.
	if _, err := db.ExecContext(ctx, `DELETE FROM rack_equipment WHERE rack_id = $1`, id); err != nil {
		return err
	}
	return requireRows(db.ExecContext(ctx, `DELETE FROM racks WHERE id = $1`, id))
}

func (s *Store) DeleteRack(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *Tx) error {
		return deleteRack(ctx, tx.tx, id)
	})
}

func (t *Tx) DeleteRack(ctx context.Context, id string) error {
	return deleteRack(ctx, t.tx, id)
}

// bumpLayoutVersion increments a rack's layout version, optionally only when
// it still equals expected. It returns the new version.
func bumpLayoutVersion(ctx context.Context, db dbInterface, rackID string, expected *int) (int, error) {
	now := time.Now().UTC()
	var (
		result sql.Result
		err    error
	)
	if expected != nil {
		result, err = db.ExecContext(ctx,
			`UPDATE racks SET layout_version = layout_version + 1, updated_at = $1 WHERE id = $2 AND layout_version = $3`,
			now, rackID, *expected)
	} else {
		result, err = db.ExecContext(ctx,
			`UPDATE racks SET layout_version = layout_version + 1, updated_at = $1 WHERE id = $2`,
			now, rackID)
	}
	if err != nil {
		return 0, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, err := getRack(ctx, db, rackID); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: rack %s layout version changed", domain.ErrConflict, rackID)
	}

	var version int
	if err := db.GetContext(ctx, &version, `SELECT layout_version FROM racks WHERE id = $1`, rackID); err != nil {
		return 0, err
	}
	return version, nil
}

// ============================================
// Equipment
// ============================================

const equipmentColumns = `id, rack_id, model, brand, description, image_url, ru, ru_position, depth, cost,
	weight, is_backmounted, power_demand, created_at, updated_at`

func createEquipment(ctx context.Context, db dbInterface, eq *domain.Equipment) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO rack_equipment (`+equipmentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		eq.ID, eq.RackID, eq.Model, eq.Brand, eq.Description, eq.ImageURL, eq.Height, eq.Position,
		eq.Depth, eq.Cost, eq.Weight, eq.Backmounted, eq.PowerDemand, eq.CreatedAt.UTC(), eq.UpdatedAt.UTC())
	if err != nil {
		return wrapWriteError(err)
	}
	_, err = bumpLayoutVersion(ctx, db, eq.RackID, nil)
	return err
}

func (s *Store) CreateEquipment(ctx context.Context, eq *domain.Equipment) error {
	return s.inTx(ctx, func(tx *Tx) error {
		return createEquipment(ctx, tx.tx, eq)
	})
}

func (t *Tx) CreateEquipment(ctx context.Context, eq *domain.Equipment) error {
	return createEquipment(ctx, t.tx, eq)
}

func getEquipment(ctx context.Context, db dbInterface, id string) (*domain.Equipment, error) {
	var eq domain.Equipment
	err := db.GetContext(ctx, &eq, `SELECT `+equipmentColumns+` FROM rack_equipment WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &eq, nil
}

func (s *Store) GetEquipment(ctx context.Context, id string) (*domain.Equipment, error) {
	return getEquipment(ctx, s.db, id)
}

func (t *Tx) GetEquipment(ctx context.Context, id string) (*domain.Equipment, error) {
	return getEquipment(ctx, t.tx, id)
}

func listEquipment(ctx context.Context, db dbInterface, rackID string) ([]*domain.Equipment, error) {
	equipment := []*domain.Equipment{}
	err := db.SelectContext(ctx, &equipment,
		`SELECT `+equipmentColumns+` FROM rack_equipment WHERE rack_id = $1 ORDER BY ru_position, created_at`, rackID)
	if err != nil {
		return nil, err
	}
	return equipment, nil
}

func (s *Store) ListEquipment(ctx context.Context, rackID string) ([]*domain.Equipment, error) {
	return listEquipment(ctx, s.db, rackID)
}

func (t *Tx) ListEquipment(ctx context.Context, rackID string) ([]*domain.Equipment, error) {
	return listEquipment(ctx, t.tx, rackID)
}

func listAllEquipment(ctx context.Context, db dbInterface) ([]*domain.Equipment, error) {
	equipment := []*domain.Equipment{}
	err := db.SelectContext(ctx, &equipment,
		`SELECT `+equipmentColumns+` FROM rack_equipment ORDER BY rack_id, ru_position, created_at`)
	if err != nil {
		return nil, err
	}
	return equipment, nil
}

func (s *Store) ListAllEquipment(ctx context.Context) ([]*domain.Equipment, error) {
	return listAllEquipment(ctx, s.db)
}

func (t *Tx) ListAllEquipment(ctx context.Context) ([]*domain.Equipment, error) {
	return listAllEquipment(ctx, t.tx)
}

func updateEquipment(ctx context.Context, db dbInterface, eq *domain.Equipment) error {
	eq.UpdatedAt = time.Now().UTC()
	err := requireRows(db.ExecContext(ctx,
		`UPDATE rack_equipment SET model = $1, brand = $2, description = $3, image_url = $4, ru = $5,
		 ru_position = $6, depth = $7, cost = $8, weight = $9, is_backmounted = $10, power_demand = $11,
		 updated_at = $12 WHERE id = $13 AND rack_id = $14`,
		eq.Model, eq.Brand, eq.Description, eq.ImageURL, eq.Height, eq.Position, eq.Depth, eq.Cost,
		eq.Weight, eq.Backmounted, eq.PowerDemand, eq.UpdatedAt, eq.ID, eq.RackID))
	if err != nil {
		return err
	}
	_, err = bumpLayoutVersion(ctx, db, eq.RackID, nil)
	return err
}

func (s *Store) UpdateEquipment(ctx context.Context, eq *domain.Equipment) error {
	return s.inTx(ctx, func(tx *Tx) error {
		return updateEquipment(ctx, tx.tx, eq)
	})
}

func (t *Tx) UpdateEquipment(ctx context.Context, eq *domain.Equipment) error {
	return updateEquipment(ctx, t.tx, eq)
}

func deleteEquipment(ctx context.Context, db dbInterface, id string) error {
	eq, err := getEquipment(ctx, db, id)
	if err != nil {
		return err
	}
	if err := requireRows(db.ExecContext(ctx, `DELETE FROM rack_equipment WHERE id = $1`, id)); err != nil {
		return err
	}
	_, err = bumpLayoutVersion(ctx, db, eq.RackID, nil)
	return err
}

func (s *Store) DeleteEquipment(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *Tx) error {
		return deleteEquipment(ctx, tx.tx, id)
	})
}

func (t *Tx) DeleteEquipment(ctx context.Context, id string) error {
	return deleteEquipment(ctx, t.tx, id)
}

func applyLayout(ctx context.Context, db dbInterface, rackID string, expectedVersion int, updates []domain.PositionUpdate) (int, error) {
	version, err := bumpLayoutVersion(ctx, db, rackID, &expectedVersion)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for _, u := range updates {
		err := requireRows(db.ExecContext(ctx,
			`UPDATE rack_equipment SET ru_position = $1, updated_at = $2 WHERE id = $3 AND rack_id = $4`,
			u.Position, now, u.EquipmentID, rackID))
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", domain.ErrUnknownEquipment, u.EquipmentID)
		}
		if err != nil {
			return 0, err
		}
	}
	return version, nil
}

func (s *Store) ApplyLayout(ctx context.Context, rackID string, expectedVersion int, updates []domain.PositionUpdate) (int, error) {
	var version int
	err := s.inTx(ctx, func(tx *Tx) error {
		var err error
		version, err = applyLayout(ctx, tx.tx, rackID, expectedVersion, updates)
		return err
	})
	return version, err
}

func (t *Tx) ApplyLayout(ctx context.Context, rackID string, expectedVersion int, updates []domain.PositionUpdate) (int, error) {
	return applyLayout(ctx, t.tx, rackID, expectedVersion, updates)
}

// inTx runs fn in a new transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(&Tx{tx: tx, driver: s.driver}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
