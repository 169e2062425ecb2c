package engine

import (
	"context"
	"database/sql"

	"opsdesk/internal/decisions"
	"opsdesk/internal/domain"
	"opsdesk/internal/events"
)

// executors returns the configured registry plus the built-in executors bound
// to e as it is now, so later changes to Now, Log or Events are honoured.
// Executors registered by the caller take precedence.
func (e Engine) executors() *decisions.Registry {
	if e.Executors == nil {
		return nil
	}
	reg := e.Executors.Clone()
	if !reg.Has(domain.DecisionTaskAssignment) {
		reg.Register(domain.DecisionTaskAssignment, decisions.ExecutorFunc(e.assignTask))
	}
	return reg
}

// assignTask sets the assignee named in an approved task assignment.
func (e Engine) assignTask(ctx context.Context, d domain.AIDecision) error {
	c := d.Context.TaskAssignment
	if c == nil || c.TaskID == "" || c.StaffID == "" {
		return domain.Invalid("context", "task assignment needs task_id and staff_id")
	}
	approver := ""
	if d.ApprovedBy != nil {
		approver = *d.ApprovedBy
	}
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.Repo.GetStaffTx(ctx, tx, c.StaffID); err != nil {
			return err
		}
		if _, err := e.Repo.GetTaskTx(ctx, tx, c.TaskID); err != nil {
			return err
		}
		if err := e.Repo.AssignTaskTx(ctx, tx, c.TaskID, c.StaffID, e.stamp()); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.TaskAssigned, "task", c.TaskID, approver, events.EventPayload{
			"staff_id":    c.StaffID,
			"decision_id": d.ID,
		})
	})
}
