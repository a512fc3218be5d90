// Package rack computes equipment layouts for fixed-capacity racks.
//
// Everything in this package is pure: functions take a snapshot of a rack's
// equipment and return plans or errors, and never touch storage.
package rack

import (
	"fmt"
	"sort"

	"github.com/stagehand-music/stagehand/internal/domain"
)

// Item is the slice of equipment state the layout logic cares about.
type Item struct {
	ID       string
	Position int
	Height   int
	Side     domain.MountingSide
}

// End returns the last rack unit occupied by the item.
func (it Item) End() int {
	return it.Position + it.Height - 1
}

// overlaps reports whether the item intersects the inclusive range [start, end].
func (it Item) overlaps(start, end int) bool {
	return start <= it.End() && end >= it.Position
}

// Layout is an immutable snapshot of a rack: its capacity and every mounted item.
type Layout struct {
	Capacity int
	Items    []Item
}

// NewLayout builds a layout snapshot from stored equipment.
func NewLayout(capacity int, equipment []*domain.Equipment) Layout {
	items := make([]Item, 0, len(equipment))
	for _, eq := range equipment {
		items = append(items, Item{
			ID:       eq.ID,
			Position: eq.Position,
			Height:   eq.Height,
			Side:     eq.Side(),
		})
	}
	return Layout{Capacity: capacity, Items: items}
}

// Plan is the outcome of resolving a move.
type Plan struct {
	EquipmentID string
	From        int
	Target      int
	// Unchanged is true when the clamped target equals the current position.
	Unchanged bool
	// Updates lists the moved item first, then every displaced item in
	// reflow order. Items whose position does not change are omitted.
	Updates []domain.PositionUpdate
}

// Resolve computes the position updates needed to move one item to a new
// starting position while keeping same-side equipment non-overlapping.
//
// The requested position is clamped to the rack before collision checks.
// Colliding items on the moved item's side are pushed downward, in order of
// their current position, starting right after the moved item's new range.
// Items pushed into other items drag those along too. If the chain runs past
// the bottom of the rack the move is rejected with domain.ErrInsufficientSpace
// and no plan is returned.
func Resolve(layout Layout, equipmentID string, requested int) (*Plan, error) {
	if err := validateLayout(layout); err != nil {
		return nil, err
	}

	movedIdx := -1
	for i, it := range layout.Items {
		if it.ID == equipmentID {
			movedIdx = i
			break
		}
	}
	if movedIdx < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEquipment, equipmentID)
	}
	moved := layout.Items[movedIdx]

	maxStart := layout.Capacity - moved.Height + 1
	if maxStart < 1 {
		return nil, fmt.Errorf("%w: %dU equipment does not fit a %dU rack",
			domain.ErrInvalidInput, moved.Height, layout.Capacity)
	}
	target := clamp(requested, 1, maxStart)

	plan := &Plan{
		EquipmentID: moved.ID,
		From:        moved.Position,
		Target:      target,
	}
	if target == moved.Position {
		plan.Unchanged = true
		return plan, nil
	}

	start, end := target, target+moved.Height-1

	// Candidates are the other items sharing the moved item's side, in
	// position order. Stable so equal positions keep their input order.
	var candidates []Item
	for i, it := range layout.Items {
		if i == movedIdx || it.Side != moved.Side {
			continue
		}
		candidates = append(candidates, it)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Position < candidates[j].Position
	})

	inChain := make([]bool, len(candidates))
	var chain []int
	for i, it := range candidates {
		if it.overlaps(start, end) {
			chain = append(chain, i)
			inChain[i] = true
		}
	}

	plan.Updates = append(plan.Updates, domain.PositionUpdate{EquipmentID: moved.ID, Position: target})

	cursor := end + 1
	for n := 0; n < len(chain); n++ {
		it := candidates[chain[n]]
		if cursor+it.Height-1 > layout.Capacity {
			return nil, fmt.Errorf("%w: %s needs %dU at position %d in a %dU rack",
				domain.ErrInsufficientSpace, it.ID, it.Height, cursor, layout.Capacity)
		}
		if cursor != it.Position {
			plan.Updates = append(plan.Updates, domain.PositionUpdate{EquipmentID: it.ID, Position: cursor})
		}
		cursor += it.Height

		// Anything the pushed chain now lands on joins the chain.
		for i, other := range candidates {
			if inChain[i] || !other.overlaps(end+1, cursor-1) {
				continue
			}
			chain = append(chain, i)
			inChain[i] = true
		}
	}

	return plan, nil
}

// Apply returns a copy of the layout with the plan's updates applied.
// The input layout is not modified.
func Apply(layout Layout, plan *Plan) Layout {
	out := Layout{Capacity: layout.Capacity, Items: make([]Item, len(layout.Items))}
	copy(out.Items, layout.Items)
	if plan == nil {
		return out
	}
	positions := make(map[string]int, len(plan.Updates))
	for _, u := range plan.Updates {
		positions[u.EquipmentID] = u.Position
	}
	for i := range out.Items {
		if pos, ok := positions[out.Items[i].ID]; ok {
			out.Items[i].Position = pos
		}
	}
	return out
}

func validateLayout(layout Layout) error {
	if layout.Capacity < 1 {
		return fmt.Errorf("%w: rack capacity must be at least 1, got %d", domain.ErrInvalidInput, layout.Capacity)
	}
	for _, it := range layout.Items {
		if it.Height < 1 {
			return fmt.Errorf("%w: equipment %s height must be at least 1, got %d", domain.ErrInvalidInput, it.ID, it.Height)
		}
		if it.Position < 1 {
			return fmt.Errorf("%w: equipment %s position must be at least 1, got %d", domain.ErrInvalidInput, it.ID, it.Position)
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
