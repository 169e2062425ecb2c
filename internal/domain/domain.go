package domain

// Request lifecycle states, in the order a request advances through them.
const (
	RequestNew         = "new"
	RequestAnalyzed    = "analyzed"
	RequestPrioritized = "prioritized"
	RequestAssigned    = "assigned"
	RequestInProgress  = "in_progress"
	RequestDelayed     = "delayed"
	RequestCompleted   = "completed"
)

// RequestStatuses lists request states in lifecycle order.
var RequestStatuses = []string{
	RequestNew, RequestAnalyzed, RequestPrioritized, RequestAssigned,
	RequestInProgress, RequestDelayed, RequestCompleted,
}

// Priority levels produced by scoring.
const (
	LevelCritical = "CRITICAL"
	LevelHigh     = "HIGH"
	LevelNormal   = "NORMAL"
	LevelLow      = "LOW"
)

// ProjectRequest is an inbound business opportunity produced by ingestion.
// PriorityScore, PriorityLevel, Reasoning and Factors are derived on demand and never stored.
type ProjectRequest struct {
	ID                  string           `json:"id"`
	ClientName          string           `json:"client_name"`
	ClientCompany       string           `json:"client_company,omitempty"`
	ClientEmail         string           `json:"client_email,omitempty"`
	RawContent          string           `json:"raw_content,omitempty"`
	ProjectType         string           `json:"project_type,omitempty"`
	Deadline            string           `json:"deadline" format:"date-time"`
	Budget              float64          `json:"budget"`
	AdvancePaid         bool             `json:"advance_paid"`
	AdvanceAmount       *float64         `json:"advance_amount,omitempty"`
	EstimatedEffortDays int              `json:"estimated_effort_days,omitempty"`
	Status              string           `json:"status" enum:"new,analyzed,prioritized,assigned,in_progress,delayed,completed"`
	CreatedAt           string           `json:"created_at" format:"date-time"`
	UpdatedAt           string           `json:"updated_at" format:"date-time"`
	PriorityScore       *int             `json:"priority_score,omitempty"`
	PriorityLevel       string           `json:"priority_level,omitempty"`
	Reasoning           []string         `json:"reasoning,omitempty"`
	Factors             *PriorityFactors `json:"factors,omitempty"`
}

// PriorityFactors is the decomposed score for one request.
type PriorityFactors struct {
	DeadlineUrgency  int `json:"deadline_urgency"`
	PaymentStatus    int `json:"payment_status"`
	ProjectValue     int `json:"project_value"`
	ClientImportance int `json:"client_importance"`
	TeamLoadPenalty  int `json:"team_load_penalty"`
	TotalScore       int `json:"total_score"`
}

// StaffMember feeds the aggregate team load.
type StaffMember struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	Available       bool     `json:"available"`
	CurrentWorkload int      `json:"current_workload"`
	MaxCapacity     int      `json:"max_capacity"`
	CreatedAt       string   `json:"created_at" format:"date-time"`
}

// Resource is an inventory item.
type Resource struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type,omitempty"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit,omitempty"`
	MinThreshold float64 `json:"min_threshold"`
	MaxThreshold float64 `json:"max_threshold"`
	CostPerUnit  float64 `json:"cost_per_unit"`
	Supplier     string  `json:"supplier,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
	UpdatedAt    string  `json:"updated_at" format:"date-time"`
}

// Task is an operational work item that assignment proposals target.
type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status" enum:"pending,in_progress,completed,cancelled"`
	Priority    string  `json:"priority" enum:"low,medium,high,urgent"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// Stats is the dashboard summary.
type Stats struct {
	TotalTasks       int     `json:"total_tasks"`
	PendingTasks     int     `json:"pending_tasks"`
	CompletedTasks   int     `json:"completed_tasks"`
	TotalResources   int     `json:"total_resources"`
	LowStockItems    int     `json:"low_stock_items"`
	StaffCount       int     `json:"staff_count"`
	AvailableStaff   int     `json:"available_staff"`
	PendingDecisions int     `json:"pending_decisions"`
	OpenRequests     int     `json:"open_requests"`
	TeamLoadPercent  float64 `json:"team_load_percent"`
}

// Decision statuses. DecisionImplemented is part of the vocabulary but no
// workflow transition produces it.
const (
	DecisionPending     = "pending"
	DecisionApproved    = "approved"
	DecisionRejected    = "rejected"
	DecisionImplemented = "implemented"
)

// Agent kinds that produce decisions.
const (
	AgentTaskCoordinator   = "task_coordinator"
	AgentInventoryMonitor  = "inventory_monitor"
	AgentResourceOptimizer = "resource_optimizer"
	AgentOperations        = "operations_agent"
)

// Known decision types.
const (
	DecisionTaskAssignment = "task_assignment"
	DecisionRestockAlert   = "restock_alert"
	DecisionOptimization   = "optimization"
)

// AIDecision is a proposed action awaiting owner judgement.
type AIDecision struct {
	ID           string          `json:"id"`
	AgentType    string          `json:"agent_type"`
	DecisionType string          `json:"decision_type"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Confidence   float64         `json:"confidence"`
	Context      DecisionContext `json:"context"`
	Status       string          `json:"status"`
	ApprovedBy   *string         `json:"approved_by"`
	ApprovedAt   *string         `json:"approved_at"`
	CreatedAt    string          `json:"created_at"`
}
