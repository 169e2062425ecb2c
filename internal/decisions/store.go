// Package decisions holds proposed actions and the owner approval workflow
// that resolves them.
package decisions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"opsdesk/internal/domain"
)

// Persistence is the storage contract behind a Store. UpdateDecisionStatus
// must only apply when the stored status still equals from; otherwise it
// returns ErrStatusConflict. Unknown ids return ErrNotFound.
type Persistence interface {
	InsertDecision(ctx context.Context, d domain.AIDecision) error
	ListDecisionsByStatus(ctx context.Context, status string) ([]domain.AIDecision, error)
	GetDecision(ctx context.Context, id string) (domain.AIDecision, error)
	UpdateDecisionStatus(ctx context.Context, id, from, to, approver, at string) error
}

// Draft is a decision before it is recorded.
type Draft struct {
	AgentType    string
	DecisionType string
	Title        string
	Description  string
	Confidence   float64
	Context      domain.DecisionContext
}

type Store struct {
	P     Persistence
	Now   func() time.Time
	NewID func() string
}

func NewStore(p Persistence) Store {
	return Store{P: p, Now: time.Now, NewID: func() string { return uuid.New().String() }}
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Store) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.New().String()
}

// Create records a draft as a pending decision. Confidence is stored as given.
func (s Store) Create(ctx context.Context, d Draft) (domain.AIDecision, error) {
	rec := domain.AIDecision{
		ID:           s.newID(),
		AgentType:    d.AgentType,
		DecisionType: d.DecisionType,
		Title:        d.Title,
		Description:  d.Description,
		Confidence:   d.Confidence,
		Context:      d.Context,
		Status:       domain.DecisionPending,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}
	if err := s.P.InsertDecision(ctx, rec); err != nil {
		return domain.AIDecision{}, storageErr("insert", err)
	}
	return rec, nil
}

// List returns decisions in creation order, filtered by status when non-empty.
func (s Store) List(ctx context.Context, status string) ([]domain.AIDecision, error) {
	res, err := s.P.ListDecisionsByStatus(ctx, status)
	if err != nil {
		return nil, storageErr("list", err)
	}
	return res, nil
}

func (s Store) Get(ctx context.Context, id string) (domain.AIDecision, error) {
	d, err := s.P.GetDecision(ctx, id)
	if err != nil {
		return domain.AIDecision{}, storageErr("get", err)
	}
	return d, nil
}
