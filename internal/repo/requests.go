package repo

import (
	"context"
	"database/sql"
	"strings"

	"opsdesk/internal/domain"
)

const requestColumns = `id,client_name,client_company,client_email,raw_content,project_type,deadline,budget,advance_paid,advance_amount,estimated_effort_days,status,created_at,updated_at`

func (r Repo) InsertRequestTx(ctx context.Context, tx *sql.Tx, p domain.ProjectRequest) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO project_requests(`+requestColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.ClientName, nullable(p.ClientCompany), nullable(p.ClientEmail), nullable(p.RawContent), nullable(p.ProjectType),
		p.Deadline, p.Budget, boolInt(p.AdvancePaid), nullableFloatPtr(p.AdvanceAmount), p.EstimatedEffortDays,
		p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) UpdateRequestStatusTx(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE project_requests SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRequest(scan func(dest ...any) error) (domain.ProjectRequest, error) {
	var p domain.ProjectRequest
	var company, email, raw, ptype sql.NullString
	var advance sql.NullFloat64
	var effort sql.NullInt64
	var paid int
	err := scan(&p.ID, &p.ClientName, &company, &email, &raw, &ptype, &p.Deadline, &p.Budget, &paid, &advance, &effort,
		&p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.ClientCompany = company.String
	p.ClientEmail = email.String
	p.RawContent = raw.String
	p.ProjectType = ptype.String
	p.AdvancePaid = paid != 0
	if advance.Valid {
		v := advance.Float64
		p.AdvanceAmount = &v
	}
	p.EstimatedEffortDays = int(effort.Int64)
	return p, nil
}

func (r Repo) GetRequest(ctx context.Context, id string) (domain.ProjectRequest, error) {
	return r.GetRequestTx(ctx, nil, id)
}

func (r Repo) GetRequestTx(ctx context.Context, tx *sql.Tx, id string) (domain.ProjectRequest, error) {
	row := r.on(tx).QueryRowContext(ctx, `SELECT `+requestColumns+` FROM project_requests WHERE id=?`, id)
	p, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

type RequestFilters struct {
	Status string
	// Open excludes completed requests.
	Open bool
}

// ListRequests returns requests in ingestion order.
func (r Repo) ListRequests(ctx context.Context, f RequestFilters) ([]domain.ProjectRequest, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Open {
		clauses = append(clauses, "status<>?")
		args = append(args, domain.RequestCompleted)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+requestColumns+` FROM project_requests`+where+` ORDER BY created_at ASC, rowid ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ProjectRequest
	for rows.Next() {
		p, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
