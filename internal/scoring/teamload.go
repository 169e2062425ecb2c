package scoring

import "opsdesk/internal/domain"

// Utilization is one member's workload as a percentage of capacity.
func Utilization(m domain.StaffMember) float64 {
	if m.MaxCapacity <= 0 {
		return 0
	}
	return float64(m.CurrentWorkload) / float64(m.MaxCapacity) * 100
}

// TeamLoad aggregates workload over capacity across staff with positive
// capacity, clamped to [0,100]. No staff means no load.
func TeamLoad(staff []domain.StaffMember) float64 {
	var current, capacity int
	for _, m := range staff {
		if m.MaxCapacity <= 0 {
			continue
		}
		current += m.CurrentWorkload
		capacity += m.MaxCapacity
	}
	if capacity == 0 {
		return 0
	}
	load := float64(current) / float64(capacity) * 100
	if load < 0 {
		return 0
	}
	if load > 100 {
		return 100
	}
	return load
}
