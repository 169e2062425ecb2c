package proposals_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdesk/internal/domain"
	"opsdesk/internal/proposals"
)

func TestLowStockProducesHighUrgencyRestock(t *testing.T) {
	r := domain.Resource{ID: "res-1", Name: "Cotton Fabric", Quantity: 12, MinThreshold: 25, MaxThreshold: 100, Unit: "m", Supplier: "Mills"}
	require.True(t, proposals.IsLowStock(r))

	d, ok, err := proposals.RestockFor(r)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.DecisionRestockAlert, d.DecisionType)
	assert.Equal(t, domain.AgentInventoryMonitor, d.AgentType)
	assert.Equal(t, 0.95, d.Confidence)
	require.NotNil(t, d.Context.Restock)
	assert.Equal(t, proposals.UrgencyHigh, d.Context.Restock.Urgency)
	assert.Equal(t, 88.0, d.Context.Restock.SuggestedQuantity)
	assert.Equal(t, "Mills", d.Context.Restock.Supplier)
	assert.Equal(t, "Cotton Fabric is at 12 m, minimum is 25.", d.Description)
}

func TestRestockConfidenceTable(t *testing.T) {
	for urgency, want := range map[string]float64{"high": 0.95, "medium": 0.8, "low": 0.7} {
		got, err := proposals.RestockConfidence(urgency)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := proposals.RestockConfidence("urgent")
	assert.True(t, domain.IsValidation(err))
}

func TestUrgencyAndLowStockBoundaries(t *testing.T) {
	at := domain.Resource{Quantity: 25, MinThreshold: 25}
	assert.True(t, proposals.IsLowStock(at))
	assert.Equal(t, proposals.UrgencyLow, proposals.UrgencyFor(at))
	assert.Equal(t, proposals.UrgencyMedium, proposals.UrgencyFor(domain.Resource{Quantity: 13, MinThreshold: 25}))
	assert.Equal(t, proposals.UrgencyHigh, proposals.UrgencyFor(domain.Resource{Quantity: 12.4, MinThreshold: 25}))
	assert.False(t, proposals.IsLowStock(domain.Resource{Quantity: 26, MinThreshold: 25}))

	_, ok, err := proposals.RestockFor(domain.Resource{ID: "r", Quantity: 26, MinThreshold: 25})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSuggestedReorderWithoutMax(t *testing.T) {
	assert.Equal(t, 40.0, proposals.SuggestedReorder(domain.Resource{Quantity: 10, MinThreshold: 25}))
	assert.Equal(t, 0.0, proposals.SuggestedReorder(domain.Resource{Quantity: 120, MinThreshold: 25, MaxThreshold: 100}))
}

func TestTaskAssignmentDraft(t *testing.T) {
	task := domain.Task{ID: "task-1", Title: "Stitch order 42"}
	staff := domain.StaffMember{ID: "staff-1", Name: "Priya"}
	d, err := proposals.TaskAssignment(task, staff, "Has tailoring skills and spare capacity")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentTaskCoordinator, d.AgentType)
	assert.Equal(t, domain.DecisionTaskAssignment, d.DecisionType)
	assert.Equal(t, 0.85, d.Confidence)
	assert.Equal(t, "Has tailoring skills and spare capacity", d.Description)
	assert.Equal(t, &domain.TaskAssignmentContext{TaskID: "task-1", StaffID: "staff-1", StaffName: "Priya", TaskTitle: "Stitch order 42"}, d.Context.TaskAssignment)

	_, err = proposals.TaskAssignment(domain.Task{}, staff, "")
	assert.True(t, domain.IsValidation(err))
}

func TestOptimizationDraft(t *testing.T) {
	d, err := proposals.Optimization(proposals.AreaCost, "Consolidate suppliers", "Buy thread from one mill.", "Save 8% monthly")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentResourceOptimizer, d.AgentType)
	assert.Equal(t, 0.75, d.Confidence)
	assert.Equal(t, "Buy thread from one mill.\n\nEstimated Impact: Save 8% monthly", d.Description)
	assert.Equal(t, &domain.OptimizationContext{Area: "cost", EstimatedImpact: "Save 8% monthly"}, d.Context.Optimization)

	_, err = proposals.Optimization("marketing", "x", "y", "z")
	assert.True(t, domain.IsValidation(err))
}
