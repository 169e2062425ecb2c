package scoring_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"opsdesk/internal/domain"
	"opsdesk/internal/scoring"
)

func levelRank(level string) int {
	switch level {
	case domain.LevelCritical:
		return 3
	case domain.LevelHigh:
		return 2
	case domain.LevelNormal:
		return 1
	}
	return 0
}

func TestNearDeadlineAlwaysCritical(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("deadline within 3 days scores 40", prop.ForAll(
		func(days int, budget, advanceShare, load float64, paid bool) bool {
			adv := budget * advanceShare
			req := domain.ProjectRequest{
				Deadline:      fixedNow.Add(time.Duration(days) * 24 * time.Hour).Format(time.RFC3339),
				Budget:        budget,
				AdvancePaid:   paid,
				AdvanceAmount: &adv,
			}
			res, err := newScorer().Score(req, load)
			return err == nil && res.Factors.DeadlineUrgency == 40
		},
		gen.IntRange(-60, 3),
		gen.Float64Range(0, 500000),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 100),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestTotalIsSumOfFactors(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("total equals the sum of the five components", prop.ForAll(
		func(days int, budget, advanceShare, load float64, paid bool) bool {
			adv := budget * advanceShare
			req := domain.ProjectRequest{
				Deadline:      fixedNow.Add(time.Duration(days) * 24 * time.Hour).Format(time.RFC3339),
				Budget:        budget,
				AdvancePaid:   paid,
				AdvanceAmount: &adv,
			}
			res, err := newScorer().Score(req, load)
			if err != nil {
				return false
			}
			f := res.Factors
			sum := f.DeadlineUrgency + f.PaymentStatus + f.ProjectValue + f.ClientImportance + f.TeamLoadPenalty
			return sum == res.TotalScore && f.TotalScore == res.TotalScore && len(res.Reasoning) == 5
		},
		gen.IntRange(-30, 90),
		gen.Float64Range(0, 500000),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 100),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestLevelMonotone(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("higher totals never level lower", prop.ForAll(
		func(a, b int) bool {
			if a > b {
				a, b = b, a
			}
			return levelRank(scoring.Level(a)) <= levelRank(scoring.Level(b))
		},
		gen.IntRange(-10, 100),
		gen.IntRange(-10, 100),
	))

	properties.TestingRun(t)
}
