package decisions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"opsdesk/internal/domain"
)

// Executor carries out an approved decision of one type.
type Executor interface {
	Execute(ctx context.Context, d domain.AIDecision) error
}

type ExecutorFunc func(ctx context.Context, d domain.AIDecision) error

func (f ExecutorFunc) Execute(ctx context.Context, d domain.AIDecision) error { return f(ctx, d) }

// Registry maps decision types to executors. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

func (r *Registry) Register(decisionType string, ex Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[decisionType] = ex
}

// Has reports whether decisionType has an executor.
func (r *Registry) Has(decisionType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.executors[decisionType]
	return ok
}

// Clone returns an independent copy of r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewRegistry()
	for t, ex := range r.executors {
		out.executors[t] = ex
	}
	return out
}

// Types lists registered decision types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.executors))
	for t := range r.executors {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Execute runs the executor for d. The decision must be approved; its status is left as is.
func (r *Registry) Execute(ctx context.Context, d domain.AIDecision) error {
	if d.Status != domain.DecisionApproved {
		return fmt.Errorf("decision %s is %s: %w", d.ID, d.Status, ErrNotApproved)
	}
	r.mu.RLock()
	ex, ok := r.executors[d.DecisionType]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", d.DecisionType, ErrNoExecutor)
	}
	return ex.Execute(ctx, d)
}
