package scoring_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdesk/internal/domain"
	"opsdesk/internal/scoring"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newScorer() scoring.Scorer {
	s := scoring.New()
	s.Now = func() time.Time { return fixedNow }
	return s
}

func deadlineIn(days int) string {
	return fixedNow.Add(time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)
}

func amount(v float64) *float64 { return &v }

func TestScoreUrgentPaidHighValue(t *testing.T) {
	req := domain.ProjectRequest{
		ID:            "req-a",
		Deadline:      deadlineIn(2),
		Budget:        250000,
		AdvancePaid:   true,
		AdvanceAmount: amount(100000),
	}
	res, err := newScorer().Score(req, 50)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityFactors{
		DeadlineUrgency:  40,
		PaymentStatus:    25,
		ProjectValue:     15,
		ClientImportance: 10,
		TeamLoadPenalty:  0,
		TotalScore:       90,
	}, res.Factors)
	assert.Equal(t, 90, res.TotalScore)
	assert.Equal(t, domain.LevelCritical, res.Level)
	assert.Equal(t, []string{
		"CRITICAL: Deadline in 2 days",
		"Advance paid: 100K (40%)",
		"High-value project: 250K",
		"New client engagement",
		"Team available (50% capacity)",
	}, res.Reasoning)
}

func TestScoreDistantUnpaidOverloaded(t *testing.T) {
	req := domain.ProjectRequest{ID: "req-b", Deadline: deadlineIn(20), Budget: 50000}
	res, err := newScorer().Score(req, 85)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Factors.DeadlineUrgency)
	assert.Equal(t, 0, res.Factors.PaymentStatus)
	assert.Equal(t, 5, res.Factors.ProjectValue)
	assert.Equal(t, 10, res.Factors.ClientImportance)
	assert.Equal(t, -10, res.Factors.TeamLoadPenalty)
	assert.Equal(t, 15, res.TotalScore)
	assert.Equal(t, domain.LevelLow, res.Level)
	assert.Equal(t, "Standard timeline: 20 days", res.Reasoning[0])
	assert.Equal(t, "Team overloaded (85% capacity)", res.Reasoning[4])
}

func TestDeadlineBuckets(t *testing.T) {
	cases := []struct {
		days   int
		points int
		reason string
	}{
		{-4, 40, "CRITICAL: Deadline in -4 days"},
		{3, 40, "CRITICAL: Deadline in 3 days"},
		{4, 30, "HIGH URGENCY: Deadline in 4 days"},
		{7, 30, "HIGH URGENCY: Deadline in 7 days"},
		{14, 20, "Moderate urgency: 14 days deadline"},
		{15, 10, "Standard timeline: 15 days"},
	}
	for _, c := range cases {
		res, err := newScorer().Score(domain.ProjectRequest{Deadline: deadlineIn(c.days)}, 0)
		require.NoError(t, err)
		assert.Equal(t, c.points, res.Factors.DeadlineUrgency, "days=%d", c.days)
		assert.Equal(t, c.reason, res.Reasoning[0])
	}
}

func TestDeadlineRoundsPartialDaysUp(t *testing.T) {
	d := fixedNow.Add(3*24*time.Hour + time.Hour).Format(time.RFC3339)
	res, err := newScorer().Score(domain.ProjectRequest{Deadline: d}, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, res.Factors.DeadlineUrgency)
}

func TestDateOnlyDeadline(t *testing.T) {
	res, err := newScorer().Score(domain.ProjectRequest{Deadline: "2024-03-30"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Factors.DeadlineUrgency)
}

func TestPaymentBranches(t *testing.T) {
	partial := domain.ProjectRequest{Deadline: deadlineIn(30), Budget: 100000, AdvancePaid: true, AdvanceAmount: amount(10000)}
	res, err := newScorer().Score(partial, 0)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Factors.PaymentStatus)
	assert.Equal(t, "Partial advance received", res.Reasoning[1])

	flagOnly := domain.ProjectRequest{Deadline: deadlineIn(30), Budget: 100000, AdvancePaid: true}
	res, err = newScorer().Score(flagOnly, 0)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Factors.PaymentStatus)

	exact := domain.ProjectRequest{Deadline: deadlineIn(30), Budget: 100000, AdvancePaid: true, AdvanceAmount: amount(30000)}
	res, err = newScorer().Score(exact, 0)
	require.NoError(t, err)
	assert.Equal(t, 25, res.Factors.PaymentStatus)
	assert.Equal(t, "Advance paid: 30K (30%)", res.Reasoning[1])
	assert.Equal(t, "Medium-value project: 100K", res.Reasoning[2])
}

func TestAmountsRenderInWholeThousands(t *testing.T) {
	req := domain.ProjectRequest{Deadline: deadlineIn(30), Budget: 125500, AdvancePaid: true, AdvanceAmount: amount(62500)}
	res, err := newScorer().Score(req, 0)
	require.NoError(t, err)
	assert.Equal(t, "Advance paid: 63K (50%)", res.Reasoning[1])
	assert.Equal(t, "Medium-value project: 126K", res.Reasoning[2])

	small := domain.ProjectRequest{Deadline: deadlineIn(30), Budget: 800}
	res, err = newScorer().Score(small, 0)
	require.NoError(t, err)
	assert.Equal(t, "Standard project value: 1K", res.Reasoning[2])
}

func TestTeamLoadPenaltyThresholds(t *testing.T) {
	req := domain.ProjectRequest{Deadline: deadlineIn(30)}
	for load, want := range map[float64]int{0: 0, 60: 0, 61: -5, 80: -5, 80.5: -10, 100: -10} {
		res, err := newScorer().Score(req, load)
		require.NoError(t, err)
		assert.Equal(t, want, res.Factors.TeamLoadPenalty, "load=%v", load)
	}
}

func TestLevelThresholds(t *testing.T) {
	assert.Equal(t, domain.LevelCritical, scoring.Level(75))
	assert.Equal(t, domain.LevelHigh, scoring.Level(74))
	assert.Equal(t, domain.LevelHigh, scoring.Level(60))
	assert.Equal(t, domain.LevelNormal, scoring.Level(40))
	assert.Equal(t, domain.LevelLow, scoring.Level(39))
	assert.Equal(t, domain.LevelLow, scoring.Level(-10))
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]struct {
		req  domain.ProjectRequest
		load float64
	}{
		"deadline":         {domain.ProjectRequest{Deadline: "next tuesday"}, 10},
		"empty deadline":   {domain.ProjectRequest{}, 10},
		"negative budget":  {domain.ProjectRequest{Deadline: deadlineIn(1), Budget: -1}, 10},
		"negative advance": {domain.ProjectRequest{Deadline: deadlineIn(1), Budget: 10, AdvanceAmount: amount(-1)}, 10},
		"advance > budget": {domain.ProjectRequest{Deadline: deadlineIn(1), Budget: 10, AdvanceAmount: amount(11)}, 10},
		"load high":        {domain.ProjectRequest{Deadline: deadlineIn(1)}, 101},
		"load negative":    {domain.ProjectRequest{Deadline: deadlineIn(1)}, -1},
	}
	for name, c := range cases {
		_, err := newScorer().Score(c.req, c.load)
		var ve *scoring.ValidationError
		assert.True(t, errors.As(err, &ve), "%s: expected validation error, got %v", name, err)
	}
}

func TestWithRuleReplacesClientImportance(t *testing.T) {
	history := func(r domain.ProjectRequest) int {
		if r.ClientEmail == "repeat@example.com" {
			return 3
		}
		return 0
	}
	s := newScorer().WithRule(scoring.ClientHistoryRule(history))
	require.Len(t, s.Rules, 5)

	res, err := s.Score(domain.ProjectRequest{Deadline: deadlineIn(30), ClientEmail: "repeat@example.com"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Factors.ClientImportance)
	assert.Equal(t, "Repeat client (3 earlier requests)", res.Reasoning[3])

	res, err = s.Score(domain.ProjectRequest{Deadline: deadlineIn(30), ClientEmail: "new@example.com"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Factors.ClientImportance)
	assert.Equal(t, "New client engagement", res.Reasoning[3])
}

func TestTeamLoadAggregate(t *testing.T) {
	assert.Equal(t, 0.0, scoring.TeamLoad(nil))
	staff := []domain.StaffMember{
		{CurrentWorkload: 3, MaxCapacity: 5},
		{CurrentWorkload: 4, MaxCapacity: 5},
		{CurrentWorkload: 9, MaxCapacity: 0},
	}
	assert.InDelta(t, 70.0, scoring.TeamLoad(staff), 0.0001)
	assert.Equal(t, 100.0, scoring.TeamLoad([]domain.StaffMember{{CurrentWorkload: 8, MaxCapacity: 5}}))
	assert.InDelta(t, 60.0, scoring.Utilization(staff[0]), 0.0001)
}
