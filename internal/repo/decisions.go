package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"opsdesk/internal/domain"
)

const decisionColumns = `id,agent_type,decision_type,title,description,confidence,context_json,status,approved_by,approved_at,created_at`

func (r Repo) InsertDecisionTx(ctx context.Context, tx *sql.Tx, d domain.AIDecision) error {
	ctxJSON, err := json.Marshal(d.Context)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO ai_decisions(`+decisionColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.AgentType, d.DecisionType, d.Title, nullable(d.Description), d.Confidence, string(ctxJSON),
		d.Status, nullableStringPtr(d.ApprovedBy), nullableStringPtr(d.ApprovedAt), d.CreatedAt)
	return err
}

// ResolveDecisionTx sets the status only while it still equals from and
// reports whether a row changed.
func (r Repo) ResolveDecisionTx(ctx context.Context, tx *sql.Tx, id, from, to, approver, at string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE ai_decisions SET status=?, approved_by=?, approved_at=? WHERE id=? AND status=?`,
		to, approver, at, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanDecision(scan func(dest ...any) error) (domain.AIDecision, error) {
	var d domain.AIDecision
	var desc, ctxJSON, approvedBy, approvedAt sql.NullString
	if err := scan(&d.ID, &d.AgentType, &d.DecisionType, &d.Title, &desc, &d.Confidence, &ctxJSON,
		&d.Status, &approvedBy, &approvedAt, &d.CreatedAt); err != nil {
		return d, err
	}
	d.Description = desc.String
	d.ApprovedBy = stringPtr(approvedBy)
	d.ApprovedAt = stringPtr(approvedAt)
	c, err := domain.ParseDecisionContext(d.DecisionType, []byte(ctxJSON.String))
	if err != nil {
		return d, err
	}
	d.Context = c
	return d, nil
}

func (r Repo) GetDecision(ctx context.Context, id string) (domain.AIDecision, error) {
	return r.GetDecisionTx(ctx, nil, id)
}

func (r Repo) GetDecisionTx(ctx context.Context, tx *sql.Tx, id string) (domain.AIDecision, error) {
	d, err := scanDecision(r.on(tx).QueryRowContext(ctx, `SELECT `+decisionColumns+` FROM ai_decisions WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

// ListDecisions returns decisions in creation order; empty status means all.
func (r Repo) ListDecisions(ctx context.Context, status string) ([]domain.AIDecision, error) {
	query := `SELECT ` + decisionColumns + ` FROM ai_decisions`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY seq ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.AIDecision{}
	for rows.Next() {
		d, err := scanDecision(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}
