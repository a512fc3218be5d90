package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/logging"
	"github.com/stagehand-music/stagehand/internal/metrics"
	"github.com/stagehand-music/stagehand/internal/rack"
	"github.com/stagehand-music/stagehand/internal/storage"
)

// LayoutService owns every write that can change where equipment sits in a
// rack. Writes to one rack are serialised in-process; across processes the
// rack's layout version guards against lost updates.
type LayoutService struct {
	store storage.Storage

	mu    sync.Mutex
	locks map[string]*rackLock
}

type rackLock struct {
	mu   sync.Mutex
	refs int
}

// NewLayoutService creates a new LayoutService.
func NewLayoutService(store storage.Storage) *LayoutService {
	return &LayoutService{
		store: store,
		locks: make(map[string]*rackLock),
	}
}

// lock acquires the per-rack mutex and returns its release func.
func (s *LayoutService) lock(rackID string) func() {
	s.mu.Lock()
	l, ok := s.locks[rackID]
	if !ok {
		l = &rackLock{}
		s.locks[rackID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, rackID)
		}
		s.mu.Unlock()
	}
}

// MoveEquipment moves one piece of equipment to the requested position,
// pushing colliding same-side equipment down, and persists every changed
// position as one batch.
//
// When expectedVersion is set and differs from the rack's current layout
// version the move is rejected with domain.ErrPreconditionFailed.
func (s *LayoutService) MoveEquipment(ctx context.Context, rackID, equipmentID string, requested int, expectedVersion *int) (*domain.MoveEquipmentResponse, error) {
	unlock := s.lock(rackID)
	defer unlock()

	logger := logging.Ctx(ctx).With().
		Str("rack_id", rackID).
		Str("equipment_id", equipmentID).
		Int("requested", requested).
		Logger()

	r, err := s.store.GetRack(ctx, rackID)
	if err != nil {
		metrics.RecordMove(moveOutcome(err), 0)
		return nil, persistErr("loading rack", err)
	}
	if expectedVersion != nil && *expectedVersion != r.LayoutVersion {
		metrics.RecordMove(metrics.OutcomeConflict, 0)
		return nil, fmt.Errorf("%w: rack %s is at layout version %d, not %d",
			domain.ErrPreconditionFailed, rackID, r.LayoutVersion, *expectedVersion)
	}

	equipment, err := s.store.ListEquipment(ctx, rackID)
	if err != nil {
		metrics.RecordMove(metrics.OutcomeError, 0)
		return nil, persistErr("loading equipment", err)
	}

	plan, err := rack.Resolve(rack.NewLayout(r.Capacity, equipment), equipmentID, requested)
	if err != nil {
		metrics.RecordMove(moveOutcome(err), 0)
		logger.Debug().Err(err).Msg("move rejected")
		return nil, err
	}

	resp := &domain.MoveEquipmentResponse{
		Unchanged:     plan.Unchanged,
		Position:      plan.Target,
		Updates:       []domain.PositionUpdate{},
		LayoutVersion: r.LayoutVersion,
	}
	if plan.Unchanged {
		metrics.RecordMove(metrics.OutcomeUnchanged, 0)
		return resp, nil
	}

	version, err := s.store.ApplyLayout(ctx, rackID, r.LayoutVersion, plan.Updates)
	if err != nil {
		metrics.RecordMove(moveOutcome(err), 0)
		logger.Warn().Err(err).Msg("applying layout failed")
		return nil, persistErr("applying layout", err)
	}

	resp.Updates = plan.Updates
	resp.LayoutVersion = version
	metrics.RecordMove(metrics.OutcomeMoved, len(plan.Updates)-1)

	logger.Info().
		Int("from", plan.From).
		Int("to", plan.Target).
		Int("displaced", len(plan.Updates)-1).
		Int("layout_version", version).
		Msg("equipment moved")

	return resp, nil
}

// CreateEquipment mounts new equipment after checking it fits the rack and
// does not overlap anything on its side.
func (s *LayoutService) CreateEquipment(ctx context.Context, eq *domain.Equipment) error {
	unlock := s.lock(eq.RackID)
	defer unlock()

	return s.inTx(ctx, func(tx storage.Transaction) error {
		layout, _, err := loadLayout(ctx, tx, eq.RackID)
		if err != nil {
			return err
		}
		if err := rack.CheckPlacement(layout, itemOf(eq)); err != nil {
			return err
		}
		return persistErr("creating equipment", tx.CreateEquipment(ctx, eq))
	})
}

// UpdateEquipment applies edits to equipment under the rack lock. The row
// is read inside the transaction so a concurrent move is never reverted;
// apply only touches the fields the caller changes. Placement is
// re-checked against the rest of the rack.
func (s *LayoutService) UpdateEquipment(ctx context.Context, rackID, equipmentID string, expectedVersion *int, apply func(*domain.Equipment)) (*domain.Equipment, error) {
	unlock := s.lock(rackID)
	defer unlock()

	var updated *domain.Equipment
	err := s.inTx(ctx, func(tx storage.Transaction) error {
		layout, r, err := loadLayout(ctx, tx, rackID)
		if err != nil {
			return err
		}
		if err := checkVersion(r, expectedVersion); err != nil {
			return err
		}
		eq, err := tx.GetEquipment(ctx, equipmentID)
		if err != nil {
			return persistErr("loading equipment", err)
		}
		if eq.RackID != rackID {
			return fmt.Errorf("%w: equipment %s is not in rack %s", domain.ErrNotFound, equipmentID, rackID)
		}

		apply(eq)
		eq.RackID = rackID
		if err := rack.CheckPlacement(layout, itemOf(eq)); err != nil {
			return err
		}
		if err := tx.UpdateEquipment(ctx, eq); err != nil {
			return persistErr("updating equipment", err)
		}
		updated = eq
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEquipment removes equipment from a rack.
func (s *LayoutService) DeleteEquipment(ctx context.Context, rackID, equipmentID string) error {
	unlock := s.lock(rackID)
	defer unlock()

	eq, err := s.store.GetEquipment(ctx, equipmentID)
	if err != nil {
		return persistErr("loading equipment", err)
	}
	if eq.RackID != rackID {
		return fmt.Errorf("%w: equipment %s is not in rack %s", domain.ErrNotFound, equipmentID, rackID)
	}
	return persistErr("deleting equipment", s.store.DeleteEquipment(ctx, equipmentID))
}

// UpdateRack saves rack edits. Shrinking the rack below any mounted
// equipment fails with domain.ErrConflict.
func (s *LayoutService) UpdateRack(ctx context.Context, r *domain.Rack, expectedVersion *int) error {
	unlock := s.lock(r.ID)
	defer unlock()

	return s.inTx(ctx, func(tx storage.Transaction) error {
		layout, current, err := loadLayout(ctx, tx, r.ID)
		if err != nil {
			return err
		}
		if err := checkVersion(current, expectedVersion); err != nil {
			return err
		}
		layout.Capacity = r.Capacity
		if err := rack.CheckCapacity(layout); err != nil {
			return err
		}
		return persistErr("updating rack", tx.UpdateRack(ctx, r))
	})
}

// DeleteRack removes a rack and its equipment.
func (s *LayoutService) DeleteRack(ctx context.Context, rackID string) error {
	unlock := s.lock(rackID)
	defer unlock()

	return persistErr("deleting rack", s.store.DeleteRack(ctx, rackID))
}

// Summary totals a rack's equipment.
func (s *LayoutService) Summary(ctx context.Context, rackID string) (*domain.RackSummary, error) {
	r, err := s.store.GetRack(ctx, rackID)
	if err != nil {
		return nil, persistErr("loading rack", err)
	}
	equipment, err := s.store.ListEquipment(ctx, rackID)
	if err != nil {
		return nil, persistErr("loading equipment", err)
	}
	summary := rack.Summarize(r, equipment)
	return &summary, nil
}

func (s *LayoutService) inTx(ctx context.Context, fn func(tx storage.Transaction) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return persistErr("starting transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return persistErr("committing", tx.Commit())
}

func loadLayout(ctx context.Context, st storage.Storage, rackID string) (rack.Layout, *domain.Rack, error) {
	r, err := st.GetRack(ctx, rackID)
	if err != nil {
		return rack.Layout{}, nil, persistErr("loading rack", err)
	}
	equipment, err := st.ListEquipment(ctx, rackID)
	if err != nil {
		return rack.Layout{}, nil, persistErr("loading equipment", err)
	}
	return rack.NewLayout(r.Capacity, equipment), r, nil
}

func checkVersion(r *domain.Rack, expected *int) error {
	if expected != nil && *expected != r.LayoutVersion {
		return fmt.Errorf("%w: rack %s is at layout version %d, not %d",
			domain.ErrPreconditionFailed, r.ID, r.LayoutVersion, *expected)
	}
	return nil
}

func itemOf(eq *domain.Equipment) rack.Item {
	return rack.Item{ID: eq.ID, Position: eq.Position, Height: eq.Height, Side: eq.Side()}
}

var domainErrors = []error{
	domain.ErrNotFound,
	domain.ErrAlreadyExists,
	domain.ErrInvalidInput,
	domain.ErrConflict,
	domain.ErrPreconditionFailed,
	domain.ErrUnknownEquipment,
	domain.ErrInsufficientSpace,
	domain.ErrPersistenceFailure,
}

// persistErr passes domain errors through and marks anything else from the
// storage layer as a persistence failure.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistenceFailure, err)
}

func moveOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientSpace):
		return metrics.OutcomeInsufficientSpace
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrPreconditionFailed):
		return metrics.OutcomeConflict
	case errors.Is(err, domain.ErrUnknownEquipment), errors.Is(err, domain.ErrNotFound):
		return metrics.OutcomeUnknownEquipment
	case errors.Is(err, domain.ErrInvalidInput):
		return metrics.OutcomeInvalidInput
	default:
		return metrics.OutcomeError
	}
}
