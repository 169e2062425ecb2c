package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"opsdesk/internal/domain"
)

func (r Repo) InsertStaffTx(ctx context.Context, tx *sql.Tx, s domain.StaffMember) error {
	skills, err := json.Marshal(s.Skills)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO staff(id,name,email,skills_json,available,current_workload,max_capacity,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, s.Name, nullable(s.Email), string(skills), boolInt(s.Available), s.CurrentWorkload, s.MaxCapacity, s.CreatedAt)
	return err
}

func (r Repo) UpdateStaffTx(ctx context.Context, tx *sql.Tx, s domain.StaffMember) error {
	res, err := tx.ExecContext(ctx, `UPDATE staff SET available=?, current_workload=?, max_capacity=? WHERE id=?`,
		boolInt(s.Available), s.CurrentWorkload, s.MaxCapacity, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const staffColumns = `id,name,email,skills_json,available,current_workload,max_capacity,created_at`

func scanStaff(scan func(dest ...any) error) (domain.StaffMember, error) {
	var s domain.StaffMember
	var email, skills sql.NullString
	var available int
	if err := scan(&s.ID, &s.Name, &email, &skills, &available, &s.CurrentWorkload, &s.MaxCapacity, &s.CreatedAt); err != nil {
		return s, err
	}
	s.Email = email.String
	s.Available = available != 0
	if skills.Valid && skills.String != "" && skills.String != "null" {
		if err := json.Unmarshal([]byte(skills.String), &s.Skills); err != nil {
			return s, fmt.Errorf("staff %s skills: %w", s.ID, err)
		}
	}
	return s, nil
}

func (r Repo) GetStaff(ctx context.Context, id string) (domain.StaffMember, error) {
	return r.GetStaffTx(ctx, nil, id)
}

func (r Repo) GetStaffTx(ctx context.Context, tx *sql.Tx, id string) (domain.StaffMember, error) {
	s, err := scanStaff(r.on(tx).QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+staffColumns+` FROM staff ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StaffMember
	for rows.Next() {
		s, err := scanStaff(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

const resourceColumns = `id,name,type,quantity,unit,min_threshold,max_threshold,cost_per_unit,supplier,created_at,updated_at`

func (r Repo) InsertResourceTx(ctx context.Context, tx *sql.Tx, res domain.Resource) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO resources(`+resourceColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		res.ID, res.Name, nullable(res.Type), res.Quantity, nullable(res.Unit), res.MinThreshold, res.MaxThreshold,
		res.CostPerUnit, nullable(res.Supplier), res.CreatedAt, res.UpdatedAt)
	return err
}

func (r Repo) UpdateResourceQuantityTx(ctx context.Context, tx *sql.Tx, id string, qty float64, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE resources SET quantity=?, updated_at=? WHERE id=?`, qty, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanResource(scan func(dest ...any) error) (domain.Resource, error) {
	var res domain.Resource
	var typ, unit, supplier sql.NullString
	err := scan(&res.ID, &res.Name, &typ, &res.Quantity, &unit, &res.MinThreshold, &res.MaxThreshold,
		&res.CostPerUnit, &supplier, &res.CreatedAt, &res.UpdatedAt)
	res.Type = typ.String
	res.Unit = unit.String
	res.Supplier = supplier.String
	return res, err
}

func (r Repo) GetResource(ctx context.Context, id string) (domain.Resource, error) {
	return r.GetResourceTx(ctx, nil, id)
}

func (r Repo) GetResourceTx(ctx context.Context, tx *sql.Tx, id string) (domain.Resource, error) {
	res, err := scanResource(r.on(tx).QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return res, ErrNotFound
	}
	return res, err
}

func (r Repo) ListResources(ctx context.Context) ([]domain.Resource, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Resource
	for rows.Next() {
		res, err := scanResource(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
