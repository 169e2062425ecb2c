package engine

import (
	"context"
	"database/sql"
	"strings"

	"opsdesk/internal/domain"
	"opsdesk/internal/events"
)

type StaffCreateOptions struct {
	ID              string
	Name            string
	Email           string
	Skills          []string
	Available       bool
	CurrentWorkload int
	MaxCapacity     int
	ActorID         string
}

func (e Engine) AddStaff(ctx context.Context, opts StaffCreateOptions) (domain.StaffMember, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return domain.StaffMember{}, domain.Invalid("name", "required")
	}
	if opts.CurrentWorkload < 0 || opts.MaxCapacity < 0 {
		return domain.StaffMember{}, domain.Invalid("workload", "workload and capacity must be non-negative")
	}
	s := domain.StaffMember{
		ID:              newID(opts.ID),
		Name:            opts.Name,
		Email:           opts.Email,
		Skills:          opts.Skills,
		Available:       opts.Available,
		CurrentWorkload: opts.CurrentWorkload,
		MaxCapacity:     opts.MaxCapacity,
		CreatedAt:       e.stamp(),
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertStaffTx(ctx, tx, s); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.StaffAdded, "staff", s.ID, opts.ActorID, events.EventPayload{"name": s.Name})
	})
	return s, err
}

// StaffUpdateOptions changes availability and load; nil fields are left alone.
type StaffUpdateOptions struct {
	ID              string
	Available       *bool
	CurrentWorkload *int
	MaxCapacity     *int
	ActorID         string
}

func (e Engine) UpdateStaff(ctx context.Context, opts StaffUpdateOptions) (domain.StaffMember, error) {
	var s domain.StaffMember
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := e.Repo.GetStaffTx(ctx, tx, opts.ID)
		if err != nil {
			return err
		}
		if opts.Available != nil {
			cur.Available = *opts.Available
		}
		if opts.CurrentWorkload != nil {
			cur.CurrentWorkload = *opts.CurrentWorkload
		}
		if opts.MaxCapacity != nil {
			cur.MaxCapacity = *opts.MaxCapacity
		}
		if cur.CurrentWorkload < 0 || cur.MaxCapacity < 0 {
			return domain.Invalid("workload", "workload and capacity must be non-negative")
		}
		if err := e.Repo.UpdateStaffTx(ctx, tx, cur); err != nil {
			return err
		}
		s = cur
		return e.Events.Append(ctx, tx, events.StaffUpdated, "staff", cur.ID, opts.ActorID, events.EventPayload{
			"available":        cur.Available,
			"current_workload": cur.CurrentWorkload,
			"max_capacity":     cur.MaxCapacity,
		})
	})
	return s, err
}

func (e Engine) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	return e.Repo.ListStaff(ctx)
}

type ResourceCreateOptions struct {
	ID           string
	Name         string
	Type         string
	Quantity     float64
	Unit         string
	MinThreshold float64
	MaxThreshold float64
	CostPerUnit  float64
	Supplier     string
	ActorID      string
}

func (e Engine) AddResource(ctx context.Context, opts ResourceCreateOptions) (domain.Resource, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Resource{}, domain.Invalid("name", "required")
	}
	if opts.Quantity < 0 || opts.MinThreshold < 0 || opts.MaxThreshold < 0 || opts.CostPerUnit < 0 {
		return domain.Resource{}, domain.Invalid("quantity", "quantities, thresholds and cost must be non-negative")
	}
	if opts.MaxThreshold > 0 && opts.MaxThreshold < opts.MinThreshold {
		return domain.Resource{}, domain.Invalid("max_threshold", "must not be below min_threshold")
	}
	now := e.stamp()
	r := domain.Resource{
		ID:           newID(opts.ID),
		Name:         opts.Name,
		Type:         opts.Type,
		Quantity:     opts.Quantity,
		Unit:         opts.Unit,
		MinThreshold: opts.MinThreshold,
		MaxThreshold: opts.MaxThreshold,
		CostPerUnit:  opts.CostPerUnit,
		Supplier:     opts.Supplier,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertResourceTx(ctx, tx, r); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.ResourceAdded, "resource", r.ID, opts.ActorID, events.EventPayload{
			"name":     r.Name,
			"quantity": r.Quantity,
		})
	})
	return r, err
}

// SetResourceQuantity records a stock count.
func (e Engine) SetResourceQuantity(ctx context.Context, id string, qty float64, actorID string) (domain.Resource, error) {
	if qty < 0 {
		return domain.Resource{}, domain.Invalid("quantity", "must be non-negative")
	}
	var r domain.Resource
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := e.Repo.GetResourceTx(ctx, tx, id)
		if err != nil {
			return err
		}
		from := cur.Quantity
		cur.Quantity = qty
		cur.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateResourceQuantityTx(ctx, tx, id, qty, cur.UpdatedAt); err != nil {
			return err
		}
		r = cur
		return e.Events.Append(ctx, tx, events.ResourceUpdated, "resource", id, actorID, events.EventPayload{
			"from_quantity": from,
			"to_quantity":   qty,
		})
	})
	return r, err
}

func (e Engine) ListResources(ctx context.Context) ([]domain.Resource, error) {
	return e.Repo.ListResources(ctx)
}

type TaskCreateOptions struct {
	ID          string
	Title       string
	Description string
	Priority    string
	DueDate     string
	ActorID     string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Task{}, domain.Invalid("title", "required")
	}
	if opts.Priority == "" {
		opts.Priority = "medium"
	}
	switch opts.Priority {
	case "low", "medium", "high", "urgent":
	default:
		return domain.Task{}, domain.Invalid("priority", "must be low, medium, high or urgent")
	}
	now := e.stamp()
	t := domain.Task{
		ID:          newID(opts.ID),
		Title:       opts.Title,
		Description: opts.Description,
		Status:      "pending",
		Priority:    opts.Priority,
		DueDate:     optionalString(opts.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertTaskTx(ctx, tx, t); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.TaskCreated, "task", t.ID, opts.ActorID, events.EventPayload{
			"title":  t.Title,
			"status": t.Status,
		})
	})
	return t, err
}

func (e Engine) ListTasks(ctx context.Context, status string) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, status)
}
