package engine

import (
	"context"
	"database/sql"
	"errors"

	"opsdesk/internal/decisions"
	"opsdesk/internal/domain"
	"opsdesk/internal/events"
	"opsdesk/internal/repo"
)

// Ledger keeps decisions in SQLite and appends the matching event in the
// same transaction as each write.
type Ledger struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
}

var _ decisions.Persistence = Ledger{}

func (l Ledger) InsertDecision(ctx context.Context, d domain.AIDecision) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := l.Repo.InsertDecisionTx(ctx, tx, d); err != nil {
		return err
	}
	if err := l.Events.Append(ctx, tx, events.DecisionCreated, "decision", d.ID, d.AgentType, events.EventPayload{
		"decision_type": d.DecisionType,
		"title":         d.Title,
		"confidence":    d.Confidence,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (l Ledger) ListDecisionsByStatus(ctx context.Context, status string) ([]domain.AIDecision, error) {
	return l.Repo.ListDecisions(ctx, status)
}

func (l Ledger) GetDecision(ctx context.Context, id string) (domain.AIDecision, error) {
	return l.Repo.GetDecision(ctx, id)
}

func (l Ledger) UpdateDecisionStatus(ctx context.Context, id, from, to, approver, at string) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	changed, err := l.Repo.ResolveDecisionTx(ctx, tx, id, from, to, approver, at)
	if err != nil {
		return err
	}
	if !changed {
		if _, err := l.Repo.GetDecisionTx(ctx, tx, id); err != nil {
			return err
		}
		return decisions.ErrStatusConflict
	}
	if err := l.Events.Append(ctx, tx, resolutionEvent(to), "decision", id, approver, events.EventPayload{
		"from_status": from,
		"to_status":   to,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func resolutionEvent(status string) string {
	if status == domain.DecisionRejected {
		return events.DecisionRejected
	}
	return events.DecisionApproved
}

// isStorage reports whether err came from the persistence layer rather than the workflow.
func isStorage(err error) bool {
	var se *decisions.StorageError
	return errors.As(err, &se)
}
