package proposals

import (
	"fmt"

	"opsdesk/internal/decisions"
	"opsdesk/internal/domain"
)

// IsLowStock reports whether a resource is at or below its minimum threshold.
func IsLowStock(r domain.Resource) bool {
	return r.Quantity <= r.MinThreshold
}

// UrgencyFor grades a low-stock resource: under half the minimum is high,
// under the minimum is medium and exactly at the minimum is low.
func UrgencyFor(r domain.Resource) string {
	switch {
	case r.Quantity < r.MinThreshold*0.5:
		return UrgencyHigh
	case r.Quantity < r.MinThreshold:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// SuggestedReorder tops the resource up to its maximum threshold, or to
// twice the minimum when no maximum is set.
func SuggestedReorder(r domain.Resource) float64 {
	target := r.MaxThreshold
	if target <= 0 {
		target = 2 * r.MinThreshold
	}
	qty := target - r.Quantity
	if qty < 0 {
		return 0
	}
	return qty
}

// RestockFor builds a restock draft for a low-stock resource with urgency and
// quantity derived from its thresholds. ok is false when the resource is not low.
func RestockFor(r domain.Resource) (decisions.Draft, bool, error) {
	if !IsLowStock(r) {
		return decisions.Draft{}, false, nil
	}
	qty := SuggestedReorder(r)
	if qty <= 0 {
		return decisions.Draft{}, false, nil
	}
	reason := fmt.Sprintf("%s is at %s %s, minimum is %s.", r.Name, num(r.Quantity), r.Unit, num(r.MinThreshold))
	d, err := RestockAlert(r, UrgencyFor(r), qty, reason)
	if err != nil {
		return decisions.Draft{}, false, err
	}
	return d, true, nil
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}
