package engine

import (
	"context"
	"errors"
	"math"

	"github.com/sirupsen/logrus"

	"opsdesk/internal/decisions"
	"opsdesk/internal/domain"
	"opsdesk/internal/events"
	"opsdesk/internal/proposals"
)

// DecisionCreateOptions is a free-form proposal as an agent tool would submit it.
type DecisionCreateOptions struct {
	AgentType    string
	DecisionType string
	Title        string
	Description  string
	Confidence   float64
	Context      map[string]any
}

// CreateDecision records an arbitrary proposal. The context is decoded into
// the variant for the decision type.
func (e Engine) CreateDecision(ctx context.Context, opts DecisionCreateOptions) (domain.AIDecision, error) {
	if opts.AgentType == "" {
		return domain.AIDecision{}, domain.Invalid("agent_type", "required")
	}
	if opts.DecisionType == "" {
		return domain.AIDecision{}, domain.Invalid("decision_type", "required")
	}
	if opts.Title == "" {
		return domain.AIDecision{}, domain.Invalid("title", "required")
	}
	if math.IsNaN(opts.Confidence) || opts.Confidence < 0 || opts.Confidence > 1 {
		return domain.AIDecision{}, domain.Invalid("confidence", "must be within [0,1], got %v", opts.Confidence)
	}
	dc, err := domain.ContextFromMap(opts.DecisionType, opts.Context)
	if err != nil {
		return domain.AIDecision{}, err
	}
	return e.record(ctx, decisions.Draft{
		AgentType:    opts.AgentType,
		DecisionType: opts.DecisionType,
		Title:        opts.Title,
		Description:  opts.Description,
		Confidence:   opts.Confidence,
		Context:      dc,
	})
}

// ProposeTaskAssignment suggests giving a pending task to a staff member.
func (e Engine) ProposeTaskAssignment(ctx context.Context, taskID, staffID, reason string) (domain.AIDecision, error) {
	task, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.AIDecision{}, err
	}
	if task.Status != "pending" {
		return domain.AIDecision{}, domain.Invalid("task_id", "task %s is %s, not pending", taskID, task.Status)
	}
	staff, err := e.Repo.GetStaff(ctx, staffID)
	if err != nil {
		return domain.AIDecision{}, err
	}
	d, err := proposals.TaskAssignment(task, staff, reason)
	if err != nil {
		return domain.AIDecision{}, err
	}
	return e.record(ctx, d)
}

// ProposeRestock suggests reordering a low-stock resource. An empty urgency
// is graded from the thresholds and a non-positive quantity tops the
// resource up to its target level.
func (e Engine) ProposeRestock(ctx context.Context, resourceID, urgency string, qty float64, reason string) (domain.AIDecision, error) {
	r, err := e.Repo.GetResource(ctx, resourceID)
	if err != nil {
		return domain.AIDecision{}, err
	}
	if !proposals.IsLowStock(r) {
		return domain.AIDecision{}, domain.Invalid("resource_id", "%s is above its minimum threshold", r.Name)
	}
	if urgency == "" {
		urgency = proposals.UrgencyFor(r)
	}
	if qty <= 0 {
		qty = proposals.SuggestedReorder(r)
	}
	d, err := proposals.RestockAlert(r, urgency, qty, reason)
	if err != nil {
		return domain.AIDecision{}, err
	}
	return e.record(ctx, d)
}

func (e Engine) ProposeOptimization(ctx context.Context, area, title, suggestion, impact string) (domain.AIDecision, error) {
	d, err := proposals.Optimization(area, title, suggestion, impact)
	if err != nil {
		return domain.AIDecision{}, err
	}
	return e.record(ctx, d)
}

// record stores a draft. Non-ledger backends get their event written here.
func (e Engine) record(ctx context.Context, d decisions.Draft) (domain.AIDecision, error) {
	rec, err := e.Store().Create(ctx, d)
	if err != nil {
		e.log().WithError(err).WithField("decision_type", d.DecisionType).Error("decision create failed")
		return domain.AIDecision{}, err
	}
	if !e.ledgerBacked() {
		if err := e.appendEvent(ctx, events.DecisionCreated, "decision", rec.ID, rec.AgentType, events.EventPayload{
			"decision_type": rec.DecisionType,
			"title":         rec.Title,
			"confidence":    rec.Confidence,
		}); err != nil {
			return rec, err
		}
	}
	e.log().WithFields(logrus.Fields{
		"decision_id":   rec.ID,
		"decision_type": rec.DecisionType,
		"actor_id":      rec.AgentType,
	}).Info("decision proposed")
	return rec, nil
}

func (e Engine) ListDecisions(ctx context.Context, status string) ([]domain.AIDecision, error) {
	if status != "" {
		switch status {
		case domain.DecisionPending, domain.DecisionApproved, domain.DecisionRejected, domain.DecisionImplemented:
		default:
			return nil, domain.Invalid("status", "unknown decision status %q", status)
		}
	}
	return e.Store().List(ctx, status)
}

func (e Engine) GetDecision(ctx context.Context, id string) (domain.AIDecision, error) {
	return e.Store().Get(ctx, id)
}

func (e Engine) ApproveDecision(ctx context.Context, id, approverID string) (domain.AIDecision, error) {
	d, err := e.Workflow().Approve(ctx, id, approverID)
	return e.resolved(ctx, d, approverID, events.DecisionApproved, err)
}

func (e Engine) RejectDecision(ctx context.Context, id, approverID string) (domain.AIDecision, error) {
	d, err := e.Workflow().Reject(ctx, id, approverID)
	return e.resolved(ctx, d, approverID, events.DecisionRejected, err)
}

func (e Engine) resolved(ctx context.Context, d domain.AIDecision, approverID, evtType string, err error) (domain.AIDecision, error) {
	fields := logrus.Fields{"decision_id": d.ID, "decision_type": d.DecisionType, "actor_id": approverID}
	if err != nil {
		entry := e.log().WithFields(fields).WithError(err)
		if isStorage(err) {
			entry.Error("decision resolve failed")
		} else {
			entry.Warn("decision resolve refused")
		}
		return d, err
	}
	if !e.ledgerBacked() {
		if err := e.appendEvent(ctx, evtType, "decision", d.ID, approverID, events.EventPayload{
			"from_status": domain.DecisionPending,
			"to_status":   d.Status,
		}); err != nil {
			return d, err
		}
	}
	e.log().WithFields(fields).Info("decision " + d.Status)
	return d, nil
}

// ExecuteDecision runs the registered executor for an approved decision.
// The decision status is not changed.
func (e Engine) ExecuteDecision(ctx context.Context, id, actorID string) (domain.AIDecision, error) {
	d, err := e.Store().Get(ctx, id)
	if err != nil {
		return domain.AIDecision{}, err
	}
	reg := e.executors()
	if reg == nil {
		return d, decisions.ErrNoExecutor
	}
	fields := logrus.Fields{"decision_id": d.ID, "decision_type": d.DecisionType, "actor_id": actorID}
	if err := reg.Execute(ctx, d); err != nil {
		e.log().WithFields(fields).WithError(err).Warn("decision execute failed")
		return d, err
	}
	if err := e.appendEvent(ctx, events.DecisionExecuted, "decision", d.ID, actorID, events.EventPayload{
		"decision_type": d.DecisionType,
	}); err != nil {
		return d, err
	}
	e.log().WithFields(fields).Info("decision executed")
	return d, nil
}

// SweepResult lists the restock proposals created by one sweep.
type SweepResult struct {
	Checked int                 `json:"checked"`
	Created []domain.AIDecision `json:"created"`
	Skipped []string            `json:"skipped"`
}

// SweepRestock proposes a restock for every low-stock resource that does not
// already have a pending restock decision.
func (e Engine) SweepRestock(ctx context.Context) (SweepResult, error) {
	res := SweepResult{Created: []domain.AIDecision{}, Skipped: []string{}}
	resources, err := e.Repo.ListResources(ctx)
	if err != nil {
		return res, err
	}
	pending, err := e.Store().List(ctx, domain.DecisionPending)
	if err != nil {
		return res, err
	}
	open := map[string]bool{}
	for _, d := range pending {
		if d.DecisionType == domain.DecisionRestockAlert && d.Context.Restock != nil {
			open[d.Context.Restock.ResourceID] = true
		}
	}
	for _, r := range resources {
		res.Checked++
		if open[r.ID] {
			res.Skipped = append(res.Skipped, r.ID)
			continue
		}
		draft, ok, err := proposals.RestockFor(r)
		if err != nil {
			return res, err
		}
		if !ok {
			continue
		}
		rec, err := e.record(ctx, draft)
		if err != nil {
			return res, err
		}
		res.Created = append(res.Created, rec)
	}
	if len(res.Created) > 0 {
		e.log().WithField("created", len(res.Created)).Info("restock sweep")
	}
	return res, nil
}

// IsAlreadyResolved reports whether err is a refused second resolution.
func IsAlreadyResolved(err error) bool {
	return errors.Is(err, decisions.ErrAlreadyResolved)
}
