package scoring

import (
	"fmt"
	"math"

	"opsdesk/internal/domain"
)

// DeadlineUrgency awards up to 40 points. Overdue requests count as critical.
func DeadlineUrgency(in Input) (int, string) {
	days := DaysUntil(in.Deadline, in.Now)
	switch {
	case days <= 3:
		return 40, fmt.Sprintf("CRITICAL: Deadline in %d days", days)
	case days <= 7:
		return 30, fmt.Sprintf("HIGH URGENCY: Deadline in %d days", days)
	case days <= 14:
		return 20, fmt.Sprintf("Moderate urgency: %d days deadline", days)
	default:
		return 10, fmt.Sprintf("Standard timeline: %d days", days)
	}
}

// PaymentStatus awards 25 points for an advance of at least 30% of budget,
// 15 for a smaller advance and nothing otherwise.
func PaymentStatus(in Input) (int, string) {
	req := in.Request
	if !req.AdvancePaid {
		return 0, "No advance payment"
	}
	if req.AdvanceAmount != nil && *req.AdvanceAmount > 0 && req.Budget > 0 {
		adv := *req.AdvanceAmount
		if adv >= 0.30*req.Budget {
			pct := math.Round(adv / req.Budget * 100)
			return 25, fmt.Sprintf("Advance paid: %s (%.0f%%)", thousands(adv), pct)
		}
	}
	return 15, "Partial advance received"
}

// ProjectValue awards points on absolute budget thresholds.
func ProjectValue(in Input) (int, string) {
	b := in.Request.Budget
	switch {
	case b >= 200000:
		return 15, "High-value project: " + thousands(b)
	case b >= 100000:
		return 10, "Medium-value project: " + thousands(b)
	default:
		return 5, "Standard project value: " + thousands(b)
	}
}

// ConstantClientImportance gives every client the same weight.
func ConstantClientImportance(Input) (int, string) {
	return 10, "New client engagement"
}

// ClientHistoryRule scores repeat clients above first-time ones. History
// returns how many earlier requests the client has made.
func ClientHistoryRule(history func(domain.ProjectRequest) int) Rule {
	return Rule{
		Name: RuleClient,
		Eval: func(in Input) (int, string) {
			n := history(in.Request)
			if n > 0 {
				return 10, fmt.Sprintf("Repeat client (%d earlier requests)", n)
			}
			return 5, "New client engagement"
		},
	}
}

// TeamLoadPenalty subtracts points when the team is busy.
func TeamLoadPenalty(in Input) (int, string) {
	load := math.Round(in.TeamLoad)
	switch {
	case in.TeamLoad > 80:
		return -10, fmt.Sprintf("Team overloaded (%.0f%% capacity)", load)
	case in.TeamLoad > 60:
		return -5, fmt.Sprintf("Team moderately busy (%.0f%% capacity)", load)
	default:
		return 0, fmt.Sprintf("Team available (%.0f%% capacity)", load)
	}
}

// thousands renders an amount in whole thousands, halves rounded up:
// 250000 -> "250K", 125500 -> "126K".
func thousands(v float64) string {
	return fmt.Sprintf("%.0fK", math.Round(v/1000))
}
