package engine

import (
	"context"

	"opsdesk/internal/domain"
	"opsdesk/internal/proposals"
	"opsdesk/internal/repo"
)

// Stats summarises tasks, inventory, staff and the decision queue.
func (e Engine) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	tasks, err := e.Repo.CountBy(ctx, "tasks", "status")
	if err != nil {
		return s, err
	}
	for _, n := range tasks {
		s.TotalTasks += n
	}
	s.PendingTasks = tasks["pending"]
	s.CompletedTasks = tasks["completed"]

	resources, err := e.Repo.ListResources(ctx)
	if err != nil {
		return s, err
	}
	s.TotalResources = len(resources)
	for _, r := range resources {
		if proposals.IsLowStock(r) {
			s.LowStockItems++
		}
	}

	staff, err := e.Repo.ListStaff(ctx)
	if err != nil {
		return s, err
	}
	s.StaffCount = len(staff)
	for _, m := range staff {
		if m.Available {
			s.AvailableStaff++
		}
	}

	pending, err := e.Store().List(ctx, domain.DecisionPending)
	if err != nil {
		return s, err
	}
	s.PendingDecisions = len(pending)

	open, err := e.Repo.ListRequests(ctx, repo.RequestFilters{Open: true})
	if err != nil {
		return s, err
	}
	s.OpenRequests = len(open)

	if s.TeamLoadPercent, err = e.TeamLoad(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// RecentEvents returns the latest events matching f.
func (e Engine) RecentEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, f)
}
