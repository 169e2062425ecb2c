package opsdesksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal opsdesk HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	// ActorID is sent as X-Actor-Id when no bearer token is set.
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Request is a project request, with score annotations on ranked listings.
type Request struct {
	ID            string   `json:"id"`
	ClientName    string   `json:"client_name"`
	ClientEmail   string   `json:"client_email,omitempty"`
	Deadline      string   `json:"deadline"`
	Budget        float64  `json:"budget"`
	AdvancePaid   bool     `json:"advance_paid"`
	AdvanceAmount *float64 `json:"advance_amount,omitempty"`
	Status        string   `json:"status"`
	PriorityScore *int     `json:"priority_score,omitempty"`
	PriorityLevel string   `json:"priority_level,omitempty"`
	Reasoning     []string `json:"reasoning,omitempty"`
}

// NewRequest is the ingestion payload.
type NewRequest struct {
	ClientName          string   `json:"client_name"`
	ClientCompany       string   `json:"client_company,omitempty"`
	ClientEmail         string   `json:"client_email,omitempty"`
	RawContent          string   `json:"raw_content,omitempty"`
	ProjectType         string   `json:"project_type,omitempty"`
	Deadline            string   `json:"deadline"`
	Budget              float64  `json:"budget,omitempty"`
	AdvancePaid         bool     `json:"advance_paid,omitempty"`
	AdvanceAmount       *float64 `json:"advance_amount,omitempty"`
	EstimatedEffortDays int      `json:"estimated_effort_days,omitempty"`
}

type Ranked struct {
	TeamLoad float64   `json:"team_load"`
	Requests []Request `json:"requests"`
}

// Decision is a proposed action and its approval state.
type Decision struct {
	ID           string         `json:"id"`
	AgentType    string         `json:"agent_type"`
	DecisionType string         `json:"decision_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Confidence   float64        `json:"confidence"`
	Context      map[string]any `json:"context"`
	Status       string         `json:"status"`
	ApprovedBy   *string        `json:"approved_by"`
	ApprovedAt   *string        `json:"approved_at"`
	CreatedAt    string         `json:"created_at"`
}

type Sweep struct {
	Checked int        `json:"checked"`
	Created []Decision `json:"created"`
	Skipped []string   `json:"skipped"`
}

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

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsAlreadyResolved reports whether err is the conflict returned for a
// decision that is no longer pending.
func IsAlreadyResolved(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == "already_resolved"
}

// IngestRequest stores a new project request.
func (c *Client) IngestRequest(ctx context.Context, r NewRequest) (Request, error) {
	var resp Request
	err := c.do(ctx, http.MethodPost, "requests", r, &resp)
	return resp, err
}

// Ranked returns open requests ordered by priority.
func (c *Client) Ranked(ctx context.Context) (Ranked, error) {
	var resp Ranked
	err := c.do(ctx, http.MethodGet, "requests/ranked", nil, &resp)
	return resp, err
}

// Decisions lists decisions, optionally filtered by status.
func (c *Client) Decisions(ctx context.Context, status string) ([]Decision, error) {
	endpoint := "decisions"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []Decision
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) Decision(ctx context.Context, id string) (Decision, error) {
	var resp Decision
	err := c.do(ctx, http.MethodGet, "decisions/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) Approve(ctx context.Context, id string) (Decision, error) {
	return c.decisionAction(ctx, id, "approve")
}

func (c *Client) Reject(ctx context.Context, id string) (Decision, error) {
	return c.decisionAction(ctx, id, "reject")
}

// Execute carries out an approved decision.
func (c *Client) Execute(ctx context.Context, id string) (Decision, error) {
	return c.decisionAction(ctx, id, "execute")
}

func (c *Client) decisionAction(ctx context.Context, id, action string) (Decision, error) {
	var resp Decision
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("decisions/%s/%s", url.PathEscape(id), action), nil, &resp)
	return resp, err
}

func (c *Client) ProposeTaskAssignment(ctx context.Context, taskID, staffID, reason string) (Decision, error) {
	var resp Decision
	err := c.do(ctx, http.MethodPost, "proposals/task-assignment", map[string]any{
		"task_id":  taskID,
		"staff_id": staffID,
		"reason":   reason,
	}, &resp)
	return resp, err
}

// ProposeRestock leaves urgency and quantity to the server when empty.
func (c *Client) ProposeRestock(ctx context.Context, resourceID, urgency string, qty float64, reason string) (Decision, error) {
	body := map[string]any{"resource_id": resourceID, "reason": reason}
	if urgency != "" {
		body["urgency"] = urgency
	}
	if qty > 0 {
		body["suggested_quantity"] = qty
	}
	var resp Decision
	err := c.do(ctx, http.MethodPost, "proposals/restock", body, &resp)
	return resp, err
}

func (c *Client) ProposeOptimization(ctx context.Context, area, title, suggestion, impact string) (Decision, error) {
	var resp Decision
	err := c.do(ctx, http.MethodPost, "proposals/optimization", map[string]any{
		"area":       area,
		"title":      title,
		"suggestion": suggestion,
		"impact":     impact,
	}, &resp)
	return resp, err
}

func (c *Client) SweepRestock(ctx context.Context) (Sweep, error) {
	var resp Sweep
	err := c.do(ctx, http.MethodPost, "sweeps/restock", nil, &resp)
	return resp, err
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var resp Stats
	err := c.do(ctx, http.MethodGet, "stats", nil, &resp)
	return resp, err
}

// EventsPage returns a paginated event listing, newest first.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string         `json:"code"`
				Message string         `json:"message"`
				Details map[string]any `json:"details"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
