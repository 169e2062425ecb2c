package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"opsdesk/internal/domain"
	"opsdesk/internal/events"
	"opsdesk/internal/ranking"
	"opsdesk/internal/repo"
	"opsdesk/internal/scoring"
)

// RequestCreateOptions is the structured record handed over by ingestion.
type RequestCreateOptions struct {
	ID                  string
	ClientName          string
	ClientCompany       string
	ClientEmail         string
	RawContent          string
	ProjectType         string
	Deadline            string
	Budget              float64
	AdvancePaid         bool
	AdvanceAmount       *float64
	EstimatedEffortDays int
	ActorID             string
}

// IngestRequest validates and stores a new request with status new.
func (e Engine) IngestRequest(ctx context.Context, opts RequestCreateOptions) (domain.ProjectRequest, error) {
	if strings.TrimSpace(opts.ClientName) == "" {
		return domain.ProjectRequest{}, domain.Invalid("client_name", "required")
	}
	if opts.EstimatedEffortDays < 0 {
		return domain.ProjectRequest{}, domain.Invalid("estimated_effort_days", "must be non-negative")
	}
	now := e.stamp()
	p := domain.ProjectRequest{
		ID:                  newID(opts.ID),
		ClientName:          opts.ClientName,
		ClientCompany:       opts.ClientCompany,
		ClientEmail:         strings.TrimSpace(opts.ClientEmail),
		RawContent:          opts.RawContent,
		ProjectType:         opts.ProjectType,
		Deadline:            opts.Deadline,
		Budget:              opts.Budget,
		AdvancePaid:         opts.AdvancePaid,
		AdvanceAmount:       opts.AdvanceAmount,
		EstimatedEffortDays: opts.EstimatedEffortDays,
		Status:              domain.RequestNew,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if _, err := scoring.ValidateRequest(p); err != nil {
		return domain.ProjectRequest{}, err
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertRequestTx(ctx, tx, p); err != nil {
			return fmt.Errorf("insert request: %w", err)
		}
		return e.Events.Append(ctx, tx, events.RequestIngested, "request", p.ID, opts.ActorID, events.EventPayload{
			"client_name": p.ClientName,
			"deadline":    p.Deadline,
			"budget":      p.Budget,
		})
	})
	if err != nil {
		return domain.ProjectRequest{}, err
	}
	e.log().WithFields(logrus.Fields{"request_id": p.ID, "actor_id": opts.ActorID}).Info("request ingested")
	return p, nil
}

// AdvanceRequest moves a request forward in its lifecycle.
func (e Engine) AdvanceRequest(ctx context.Context, id, status, actorID string) (domain.ProjectRequest, error) {
	var p domain.ProjectRequest
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := e.Repo.GetRequestTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := ensureRequestTransition(cur.Status, status); err != nil {
			return err
		}
		from := cur.Status
		cur.Status = status
		cur.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateRequestStatusTx(ctx, tx, id, cur.Status, cur.UpdatedAt); err != nil {
			return err
		}
		p = cur
		return e.Events.Append(ctx, tx, events.RequestAdvanced, "request", id, actorID, events.EventPayload{
			"from_status": from,
			"to_status":   status,
		})
	})
	if err != nil {
		return domain.ProjectRequest{}, err
	}
	return p, nil
}

func requestStage(status string) int {
	for i, s := range domain.RequestStatuses {
		if s == status {
			return i
		}
	}
	return -1
}

func ensureRequestTransition(oldStatus, newStatus string) error {
	from, to := requestStage(oldStatus), requestStage(newStatus)
	if to < 0 {
		return domain.Invalid("status", "unknown request status %q", newStatus)
	}
	if to <= from {
		return domain.Invalid("status", "invalid request status transition %s -> %s", oldStatus, newStatus)
	}
	return nil
}

func (e Engine) GetRequest(ctx context.Context, id string) (domain.ProjectRequest, error) {
	return e.Repo.GetRequest(ctx, id)
}

// ListRequests returns stored requests without score annotations.
func (e Engine) ListRequests(ctx context.Context, status string) ([]domain.ProjectRequest, error) {
	return e.Repo.ListRequests(ctx, repo.RequestFilters{Status: status})
}

// TeamLoad is the configured override or the aggregate over current staff.
func (e Engine) TeamLoad(ctx context.Context) (float64, error) {
	if v := e.config().Scoring.TeamLoad; v != nil {
		return *v, nil
	}
	staff, err := e.Repo.ListStaff(ctx)
	if err != nil {
		return 0, err
	}
	return scoring.TeamLoad(staff), nil
}

// Ranked is a scored snapshot of the open requests.
type Ranked struct {
	TeamLoad float64                 `json:"team_load"`
	Requests []domain.ProjectRequest `json:"requests"`
}

// RankRequests scores every open request against the current team load.
func (e Engine) RankRequests(ctx context.Context) (Ranked, error) {
	load, err := e.TeamLoad(ctx)
	if err != nil {
		return Ranked{}, err
	}
	open, err := e.Repo.ListRequests(ctx, repo.RequestFilters{Open: true})
	if err != nil {
		return Ranked{}, err
	}
	scorer, err := e.scorer(ctx)
	if err != nil {
		return Ranked{}, err
	}
	out, err := ranking.New(scorer).Rank(open, load)
	if err != nil {
		return Ranked{}, err
	}
	return Ranked{TeamLoad: load, Requests: out}, nil
}

func (e Engine) scorer(ctx context.Context) (scoring.Scorer, error) {
	s := scoring.New()
	s.Now = e.now
	if e.config().Scoring.ClientRule != "history" {
		return s, nil
	}
	all, err := e.Repo.ListRequests(ctx, repo.RequestFilters{})
	if err != nil {
		return s, err
	}
	earlier := clientHistory(all)
	return s.WithRule(scoring.ClientHistoryRule(func(r domain.ProjectRequest) int {
		return earlier[r.ID]
	})), nil
}

// clientHistory counts, per request, how many requests the same client email
// made before it in ingestion order.
func clientHistory(all []domain.ProjectRequest) map[string]int {
	seen := map[string]int{}
	out := make(map[string]int, len(all))
	for _, r := range all {
		key := strings.ToLower(r.ClientEmail)
		if key == "" {
			continue
		}
		out[r.ID] = seen[key]
		seen[key]++
	}
	return out
}
