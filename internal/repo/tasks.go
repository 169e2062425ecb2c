package repo

import (
	"context"
	"database/sql"

	"opsdesk/internal/domain"
)

const taskColumns = `id,title,description,status,priority,assignee_id,due_date,created_at,updated_at`

func (r Repo) InsertTaskTx(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, nullable(t.Description), t.Status, t.Priority, nullableStringPtr(t.AssigneeID),
		nullableStringPtr(t.DueDate), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) AssignTaskTx(ctx context.Context, tx *sql.Tx, id, assigneeID, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET assignee_id=?, updated_at=? WHERE id=?`, nullable(assigneeID), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var desc, assignee, due sql.NullString
	err := scan(&t.ID, &t.Title, &desc, &t.Status, &t.Priority, &assignee, &due, &t.CreatedAt, &t.UpdatedAt)
	t.Description = desc.String
	t.AssigneeID = stringPtr(assignee)
	t.DueDate = stringPtr(due)
	return t, err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return r.GetTaskTx(ctx, nil, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	t, err := scanTask(r.on(tx).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) ListTasks(ctx context.Context, status string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC, rowid ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
