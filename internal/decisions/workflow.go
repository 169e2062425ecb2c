package decisions

import (
	"context"
	"errors"
	"strings"
	"time"

	"opsdesk/internal/domain"
)

// Workflow resolves pending decisions. It only records the owner's verdict;
// carrying out an approved decision is the job of a Registry.
type Workflow struct {
	Store Store
}

func NewWorkflow(s Store) Workflow {
	return Workflow{Store: s}
}

func (w Workflow) Approve(ctx context.Context, id, approverID string) (domain.AIDecision, error) {
	return w.resolve(ctx, id, approverID, domain.DecisionApproved)
}

func (w Workflow) Reject(ctx context.Context, id, approverID string) (domain.AIDecision, error) {
	return w.resolve(ctx, id, approverID, domain.DecisionRejected)
}

func (w Workflow) resolve(ctx context.Context, id, approverID, to string) (domain.AIDecision, error) {
	if strings.TrimSpace(approverID) == "" {
		return domain.AIDecision{}, domain.Invalid("approver_id", "required")
	}
	d, err := w.Store.Get(ctx, id)
	if err != nil {
		return domain.AIDecision{}, err
	}
	if err := ensureDecisionTransition(d, to); err != nil {
		return d, err
	}
	at := w.Store.now().UTC().Format(time.RFC3339)
	err = w.Store.P.UpdateDecisionStatus(ctx, id, domain.DecisionPending, to, approverID, at)
	if errors.Is(err, ErrStatusConflict) {
		// lost the race; report what the winner left behind
		cur, gerr := w.Store.Get(ctx, id)
		if gerr != nil {
			return domain.AIDecision{}, gerr
		}
		return cur, &AlreadyResolvedError{ID: id, Status: cur.Status}
	}
	if err != nil {
		return domain.AIDecision{}, storageErr("update", err)
	}
	d.Status = to
	d.ApprovedBy = &approverID
	d.ApprovedAt = &at
	return d, nil
}

func ensureDecisionTransition(d domain.AIDecision, to string) error {
	if d.Status == domain.DecisionPending && (to == domain.DecisionApproved || to == domain.DecisionRejected) {
		return nil
	}
	return &AlreadyResolvedError{ID: d.ID, Status: d.Status}
}
