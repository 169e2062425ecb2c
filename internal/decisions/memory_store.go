package decisions

import (
	"context"
	"fmt"
	"sync"

	"opsdesk/internal/domain"
)

// MemoryPersistence implements Persistence in memory.
// Thread-safe via RWMutex; records keep insertion order.
type MemoryPersistence struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]domain.AIDecision
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{byID: make(map[string]domain.AIDecision)}
}

func (m *MemoryPersistence) InsertDecision(ctx context.Context, d domain.AIDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[d.ID]; ok {
		return fmt.Errorf("decision %s already exists", d.ID)
	}
	m.byID[d.ID] = cloneDecision(d)
	m.order = append(m.order, d.ID)
	return nil
}

func (m *MemoryPersistence) ListDecisionsByStatus(ctx context.Context, status string) ([]domain.AIDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.AIDecision, 0, len(m.order))
	for _, id := range m.order {
		d := m.byID[id]
		if status != "" && d.Status != status {
			continue
		}
		res = append(res, cloneDecision(d))
	}
	return res, nil
}

func (m *MemoryPersistence) GetDecision(ctx context.Context, id string) (domain.AIDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.byID[id]
	if !ok {
		return domain.AIDecision{}, ErrNotFound
	}
	return cloneDecision(d), nil
}

func (m *MemoryPersistence) UpdateDecisionStatus(ctx context.Context, id, from, to, approver, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	if d.Status != from {
		return ErrStatusConflict
	}
	d.Status = to
	d.ApprovedBy = &approver
	d.ApprovedAt = &at
	m.byID[id] = d
	return nil
}

// cloneDecision copies d so callers cannot mutate stored state through pointers.
func cloneDecision(d domain.AIDecision) domain.AIDecision {
	out := d
	if d.ApprovedBy != nil {
		v := *d.ApprovedBy
		out.ApprovedBy = &v
	}
	if d.ApprovedAt != nil {
		v := *d.ApprovedAt
		out.ApprovedAt = &v
	}
	c := d.Context
	if c.TaskAssignment != nil {
		v := *c.TaskAssignment
		out.Context.TaskAssignment = &v
	}
	if c.Restock != nil {
		v := *c.Restock
		out.Context.Restock = &v
	}
	if c.Optimization != nil {
		v := *c.Optimization
		out.Context.Optimization = &v
	}
	if c.Extra != nil {
		out.Context.Extra = make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			out.Context.Extra[k] = v
		}
	}
	return out
}
