package server

import (
	"opsdesk/internal/domain"
	"opsdesk/internal/engine"
)

// Request payloads

type IngestRequestRequest struct {
	ID                  string   `json:"id,omitempty"`
	ClientName          string   `json:"client_name"`
	ClientCompany       string   `json:"client_company,omitempty"`
	ClientEmail         string   `json:"client_email,omitempty"`
	RawContent          string   `json:"raw_content,omitempty"`
	ProjectType         string   `json:"project_type,omitempty"`
	Deadline            string   `json:"deadline" example:"2024-06-30"`
	Budget              float64  `json:"budget,omitempty"`
	AdvancePaid         bool     `json:"advance_paid,omitempty"`
	AdvanceAmount       *float64 `json:"advance_amount,omitempty"`
	EstimatedEffortDays int      `json:"estimated_effort_days,omitempty"`
}

type AdvanceRequestRequest struct {
	Status string `json:"status" enum:"analyzed,prioritized,assigned,in_progress,delayed,completed"`
}

type CreateStaffRequest struct {
	ID              string   `json:"id,omitempty"`
	Name            string   `json:"name"`
	Email           string   `json:"email,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	Available       *bool    `json:"available,omitempty"`
	CurrentWorkload int      `json:"current_workload,omitempty"`
	MaxCapacity     int      `json:"max_capacity,omitempty"`
}

type UpdateStaffRequest struct {
	Available       *bool `json:"available,omitempty"`
	CurrentWorkload *int  `json:"current_workload,omitempty"`
	MaxCapacity     *int  `json:"max_capacity,omitempty"`
}

type CreateResourceRequest struct {
	ID           string  `json:"id,omitempty"`
	Name         string  `json:"name"`
	Type         string  `json:"type,omitempty"`
	Quantity     float64 `json:"quantity,omitempty"`
	Unit         string  `json:"unit,omitempty"`
	MinThreshold float64 `json:"min_threshold,omitempty"`
	MaxThreshold float64 `json:"max_threshold,omitempty"`
	CostPerUnit  float64 `json:"cost_per_unit,omitempty"`
	Supplier     string  `json:"supplier,omitempty"`
}

type SetQuantityRequest struct {
	Quantity float64 `json:"quantity" minimum:"0"`
}

type CreateTaskRequest struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	DueDate     string `json:"due_date,omitempty"`
}

type CreateDecisionRequest struct {
	AgentType    string         `json:"agent_type"`
	DecisionType string         `json:"decision_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Confidence   float64        `json:"confidence"`
	Context      map[string]any `json:"context,omitempty"`
}

type TaskAssignmentProposalRequest struct {
	TaskID  string `json:"task_id"`
	StaffID string `json:"staff_id"`
	Reason  string `json:"reason,omitempty"`
}

type RestockProposalRequest struct {
	ResourceID        string  `json:"resource_id"`
	Urgency           string  `json:"urgency,omitempty" enum:"low,medium,high"`
	SuggestedQuantity float64 `json:"suggested_quantity,omitempty"`
	Reason            string  `json:"reason,omitempty"`
}

type OptimizationProposalRequest struct {
	Area       string `json:"area" enum:"staffing,inventory,workflow,cost"`
	Title      string `json:"title"`
	Suggestion string `json:"suggestion"`
	Impact     string `json:"impact"`
}

// Response payloads

// DecisionResponse flattens the decision context into a plain object.
type DecisionResponse struct {
	ID           string         `json:"id"`
	AgentType    string         `json:"agent_type"`
	DecisionType string         `json:"decision_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Confidence   float64        `json:"confidence"`
	Context      map[string]any `json:"context"`
	Status       string         `json:"status" enum:"pending,approved,rejected,implemented"`
	ApprovedBy   *string        `json:"approved_by"`
	ApprovedAt   *string        `json:"approved_at"`
	CreatedAt    string         `json:"created_at" format:"date-time"`
}

type RankedResponse struct {
	TeamLoad float64                 `json:"team_load"`
	Requests []domain.ProjectRequest `json:"requests"`
}

type SweepResponse struct {
	Checked int                `json:"checked"`
	Created []DecisionResponse `json:"created"`
	Skipped []string           `json:"skipped"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func decisionResponse(d domain.AIDecision) DecisionResponse {
	ctx, err := d.Context.Map()
	if err != nil {
		ctx = map[string]any{}
	}
	return DecisionResponse{
		ID:           d.ID,
		AgentType:    d.AgentType,
		DecisionType: d.DecisionType,
		Title:        d.Title,
		Description:  d.Description,
		Confidence:   d.Confidence,
		Context:      ctx,
		Status:       d.Status,
		ApprovedBy:   d.ApprovedBy,
		ApprovedAt:   d.ApprovedAt,
		CreatedAt:    d.CreatedAt,
	}
}

func mapDecisions(items []domain.AIDecision) []DecisionResponse {
	out := make([]DecisionResponse, 0, len(items))
	for _, d := range items {
		out = append(out, decisionResponse(d))
	}
	return out
}

func sweepResponse(res engine.SweepResult) SweepResponse {
	return SweepResponse{Checked: res.Checked, Created: mapDecisions(res.Created), Skipped: res.Skipped}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    e.Payload,
	}
}

func nonNilRequests(items []domain.ProjectRequest) []domain.ProjectRequest {
	if items == nil {
		return []domain.ProjectRequest{}
	}
	return items
}
