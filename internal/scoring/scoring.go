// Package scoring turns a project request and the current team load into an
// explainable priority score.
package scoring

import (
	"fmt"
	"math"
	"time"

	"opsdesk/internal/domain"
)

// ValidationError is returned for malformed requests or out-of-range team load.
type ValidationError = domain.ValidationError

// Rule names, in evaluation order.
const (
	RuleDeadline = "deadline_urgency"
	RulePayment  = "payment_status"
	RuleValue    = "project_value"
	RuleClient   = "client_importance"
	RuleTeamLoad = "team_load"
)

// Input is what a rule sees for one request.
type Input struct {
	Request  domain.ProjectRequest
	Deadline time.Time
	TeamLoad float64
	Now      time.Time
}

// Rule contributes points and one reason line to a score.
type Rule struct {
	Name string
	Eval func(Input) (int, string)
}

// Result is the outcome of scoring one request.
type Result struct {
	TotalScore int
	Level      string
	Factors    domain.PriorityFactors
	Reasoning  []string
}

type Scorer struct {
	Rules []Rule
	Now   func() time.Time
}

// DefaultRules returns the standard five rules.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleDeadline, Eval: DeadlineUrgency},
		{Name: RulePayment, Eval: PaymentStatus},
		{Name: RuleValue, Eval: ProjectValue},
		{Name: RuleClient, Eval: ConstantClientImportance},
		{Name: RuleTeamLoad, Eval: TeamLoadPenalty},
	}
}

func New() Scorer {
	return Scorer{Rules: DefaultRules(), Now: time.Now}
}

// WithRule returns a copy of the scorer with the rule of the same name
// replaced, or appended when no rule has that name.
func (s Scorer) WithRule(r Rule) Scorer {
	rules := make([]Rule, 0, len(s.Rules)+1)
	replaced := false
	for _, existing := range s.Rules {
		if existing.Name == r.Name {
			rules = append(rules, r)
			replaced = true
			continue
		}
		rules = append(rules, existing)
	}
	if !replaced {
		rules = append(rules, r)
	}
	s.Rules = rules
	return s
}

func (s Scorer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Score evaluates every rule in order. The total is the plain sum of the rule points.
func (s Scorer) Score(req domain.ProjectRequest, teamLoad float64) (Result, error) {
	deadline, err := validate(req, teamLoad)
	if err != nil {
		return Result{}, err
	}
	rules := s.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	in := Input{Request: req, Deadline: deadline, TeamLoad: teamLoad, Now: s.now()}
	res := Result{Reasoning: make([]string, 0, len(rules))}
	for _, r := range rules {
		points, reason := r.Eval(in)
		res.TotalScore += points
		res.Reasoning = append(res.Reasoning, reason)
		switch r.Name {
		case RuleDeadline:
			res.Factors.DeadlineUrgency = points
		case RulePayment:
			res.Factors.PaymentStatus = points
		case RuleValue:
			res.Factors.ProjectValue = points
		case RuleClient:
			res.Factors.ClientImportance = points
		case RuleTeamLoad:
			res.Factors.TeamLoadPenalty = points
		}
	}
	res.Factors.TotalScore = res.TotalScore
	res.Level = Level(res.TotalScore)
	return res, nil
}

// Level maps a total score to a priority level.
func Level(total int) string {
	switch {
	case total >= 75:
		return domain.LevelCritical
	case total >= 60:
		return domain.LevelHigh
	case total >= 40:
		return domain.LevelNormal
	default:
		return domain.LevelLow
	}
}

// ParseDeadline accepts RFC3339 timestamps and plain YYYY-MM-DD dates (UTC midnight).
func ParseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable deadline %q", s)
	}
	return t, nil
}

func validate(req domain.ProjectRequest, teamLoad float64) (time.Time, error) {
	if math.IsNaN(teamLoad) || teamLoad < 0 || teamLoad > 100 {
		return time.Time{}, domain.Invalid("team_load", "must be within [0,100], got %v", teamLoad)
	}
	return ValidateRequest(req)
}

// ValidateRequest checks the fields scoring depends on and returns the parsed deadline.
func ValidateRequest(req domain.ProjectRequest) (time.Time, error) {
	deadline, err := ParseDeadline(req.Deadline)
	if err != nil {
		return time.Time{}, domain.Invalid("deadline", "%v", err)
	}
	if math.IsNaN(req.Budget) || req.Budget < 0 {
		return time.Time{}, domain.Invalid("budget", "must be non-negative, got %v", req.Budget)
	}
	if req.AdvanceAmount != nil {
		adv := *req.AdvanceAmount
		if math.IsNaN(adv) || adv < 0 {
			return time.Time{}, domain.Invalid("advance_amount", "must be non-negative, got %v", adv)
		}
		if adv > req.Budget {
			return time.Time{}, domain.Invalid("advance_amount", "%v exceeds budget %v", adv, req.Budget)
		}
	}
	return deadline, nil
}

// DaysUntil is the whole number of days left, rounded up. Past deadlines are negative or zero.
func DaysUntil(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}
