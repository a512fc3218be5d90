package rack

import (
	"fmt"

	"github.com/stagehand-music/stagehand/internal/domain"
)

// Conflict describes two same-side items whose ranges overlap.
type Conflict struct {
	A, B Item
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s [%d-%d] overlaps %s [%d-%d] on the %s",
		c.A.ID, c.A.Position, c.A.End(), c.B.ID, c.B.Position, c.B.End(), c.A.Side)
}

// Conflicts returns every pair of same-side items that overlap.
func Conflicts(layout Layout) []Conflict {
	var out []Conflict
	for i := 0; i < len(layout.Items); i++ {
		a := layout.Items[i]
		for j := i + 1; j < len(layout.Items); j++ {
			b := layout.Items[j]
			if a.Side == b.Side && b.overlaps(a.Position, a.End()) {
				out = append(out, Conflict{A: a, B: b})
			}
		}
	}
	return out
}

// CheckPlacement verifies that the candidate fits inside the rack and does
// not overlap any other item on the same side. An existing item with the
// candidate's ID is ignored, so the check also serves edits.
func CheckPlacement(layout Layout, candidate Item) error {
	if layout.Capacity < 1 {
		return fmt.Errorf("%w: rack capacity must be at least 1", domain.ErrInvalidInput)
	}
	if candidate.Height < 1 {
		return fmt.Errorf("%w: height must be at least 1", domain.ErrInvalidInput)
	}
	if candidate.Position < 1 || candidate.End() > layout.Capacity {
		return fmt.Errorf("%w: %dU at position %d does not fit a %dU rack",
			domain.ErrInvalidInput, candidate.Height, candidate.Position, layout.Capacity)
	}
	for _, it := range layout.Items {
		if it.ID == candidate.ID || it.Side != candidate.Side {
			continue
		}
		if it.overlaps(candidate.Position, candidate.End()) {
			return fmt.Errorf("%w: %s", domain.ErrConflict, Conflict{A: candidate, B: it})
		}
	}
	return nil
}

// CheckCapacity verifies that every item still fits after a capacity change.
func CheckCapacity(layout Layout) error {
	for _, it := range layout.Items {
		if it.End() > layout.Capacity {
			return fmt.Errorf("%w: %s ends at %dU, beyond a %dU rack",
				domain.ErrConflict, it.ID, it.End(), layout.Capacity)
		}
	}
	return nil
}
