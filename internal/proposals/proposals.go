// Package proposals builds decision drafts from operational context. Nothing
// here writes to storage.
package proposals

import (
	"fmt"

	"opsdesk/internal/decisions"
	"opsdesk/internal/domain"
)

// Urgency tiers for restock alerts.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Optimization areas.
const (
	AreaStaffing  = "staffing"
	AreaInventory = "inventory"
	AreaWorkflow  = "workflow"
	AreaCost      = "cost"
)

const (
	taskAssignmentConfidence = 0.85
	optimizationConfidence   = 0.75
)

var restockConfidence = map[string]float64{
	UrgencyHigh:   0.95,
	UrgencyMedium: 0.8,
	UrgencyLow:    0.7,
}

// RestockConfidence returns the confidence for an urgency tier.
func RestockConfidence(urgency string) (float64, error) {
	c, ok := restockConfidence[urgency]
	if !ok {
		return 0, domain.Invalid("urgency", "must be low, medium or high, got %q", urgency)
	}
	return c, nil
}

func TaskAssignment(task domain.Task, staff domain.StaffMember, reason string) (decisions.Draft, error) {
	if task.ID == "" {
		return decisions.Draft{}, domain.Invalid("task_id", "required")
	}
	if staff.ID == "" {
		return decisions.Draft{}, domain.Invalid("staff_id", "required")
	}
	return decisions.Draft{
		AgentType:    domain.AgentTaskCoordinator,
		DecisionType: domain.DecisionTaskAssignment,
		Title:        fmt.Sprintf("Assign %q to %s", task.Title, staff.Name),
		Description:  reason,
		Confidence:   taskAssignmentConfidence,
		Context: domain.DecisionContext{TaskAssignment: &domain.TaskAssignmentContext{
			TaskID:    task.ID,
			StaffID:   staff.ID,
			StaffName: staff.Name,
			TaskTitle: task.Title,
		}},
	}, nil
}

func RestockAlert(r domain.Resource, urgency string, suggestedQty float64, reason string) (decisions.Draft, error) {
	conf, err := RestockConfidence(urgency)
	if err != nil {
		return decisions.Draft{}, err
	}
	if r.ID == "" {
		return decisions.Draft{}, domain.Invalid("resource_id", "required")
	}
	if suggestedQty <= 0 {
		return decisions.Draft{}, domain.Invalid("suggested_quantity", "must be positive, got %v", suggestedQty)
	}
	return decisions.Draft{
		AgentType:    domain.AgentInventoryMonitor,
		DecisionType: domain.DecisionRestockAlert,
		Title:        "Restock " + r.Name,
		Description:  reason,
		Confidence:   conf,
		Context: domain.DecisionContext{Restock: &domain.RestockContext{
			ResourceID:        r.ID,
			ResourceName:      r.Name,
			SuggestedQuantity: suggestedQty,
			Urgency:           urgency,
			Supplier:          r.Supplier,
		}},
	}, nil
}

func Optimization(area, title, suggestion, impact string) (decisions.Draft, error) {
	switch area {
	case AreaStaffing, AreaInventory, AreaWorkflow, AreaCost:
	default:
		return decisions.Draft{}, domain.Invalid("area", "must be staffing, inventory, workflow or cost, got %q", area)
	}
	if title == "" {
		return decisions.Draft{}, domain.Invalid("title", "required")
	}
	return decisions.Draft{
		AgentType:    domain.AgentResourceOptimizer,
		DecisionType: domain.DecisionOptimization,
		Title:        title,
		Description:  suggestion + "\n\nEstimated Impact: " + impact,
		Confidence:   optimizationConfidence,
		Context: domain.DecisionContext{Optimization: &domain.OptimizationContext{
			Area:            area,
			EstimatedImpact: impact,
		}},
	}, nil
}
