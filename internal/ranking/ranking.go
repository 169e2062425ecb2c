// Package ranking orders open requests by priority score.
package ranking

import (
	"fmt"
	"sort"

	"opsdesk/internal/domain"
	"opsdesk/internal/scoring"
)

type Service struct {
	Scorer scoring.Scorer
}

func New(s scoring.Scorer) Service {
	return Service{Scorer: s}
}

// Rank returns annotated copies of requests sorted by score, highest first.
// Equal scores keep their input order. The input slice is not modified.
func (s Service) Rank(requests []domain.ProjectRequest, teamLoad float64) ([]domain.ProjectRequest, error) {
	out := make([]domain.ProjectRequest, 0, len(requests))
	for _, req := range requests {
		res, err := s.Scorer.Score(req, teamLoad)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", req.ID, err)
		}
		out = append(out, annotate(req, res))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].PriorityScore > *out[j].PriorityScore
	})
	return out, nil
}

func annotate(req domain.ProjectRequest, res scoring.Result) domain.ProjectRequest {
	score := res.TotalScore
	factors := res.Factors
	req.PriorityScore = &score
	req.PriorityLevel = res.Level
	req.Reasoning = append([]string(nil), res.Reasoning...)
	req.Factors = &factors
	return req
}
