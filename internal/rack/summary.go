package rack

import "github.com/stagehand-music/stagehand/internal/domain"

// Summarize totals the physical properties of a rack and its equipment.
// Cost and weight include the rack itself.
func Summarize(r *domain.Rack, equipment []*domain.Equipment) domain.RackSummary {
	s := domain.RackSummary{
		RackID:         r.ID,
		Capacity:       r.Capacity,
		EquipmentCount: len(equipment),
		PowerCapacity:  r.PowerCapacity,
		HeightInches:   float64(r.Capacity) * domain.RackUnitInches,
	}
	if r.Cost != nil {
		s.TotalCost += *r.Cost
	}
	if r.Weight != nil {
		s.TotalWeight += *r.Weight
	}
	for _, eq := range equipment {
		if eq.Side() == domain.SideBack {
			s.UsedBack += eq.Height
		} else {
			s.UsedFront += eq.Height
		}
		if eq.Cost != nil {
			s.TotalCost += *eq.Cost
		}
		if eq.Weight != nil {
			s.TotalWeight += *eq.Weight
		}
		if eq.PowerDemand != nil {
			s.PowerDemand += *eq.PowerDemand
		}
	}
	if r.PowerCapacity != nil && s.PowerDemand > *r.PowerCapacity {
		s.OverPower = true
	}
	return s
}
