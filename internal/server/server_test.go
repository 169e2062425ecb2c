package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"opsdesk/internal/config"
	"opsdesk/internal/db"
	"opsdesk/internal/domain"
	"opsdesk/internal/engine"
	"opsdesk/internal/migrate"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
}

func newTestServer(t *testing.T, configure ...func(*engine.Engine)) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("test shop"))
	e.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	for _, fn := range configure {
		fn(&e)
	}
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{JWTSecret: testSecret, AllowActorHeader: true}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		conn.Close()
	})
	return &testServer{URL: srv.URL, Engine: e, client: srv.Client()}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

var owner = map[string]string{"X-Actor-Id": "owner-1"}

func decodeError(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode error envelope: %v: %s", err, string(data))
	}
	return env.Error
}

func TestHealthIsOpenAndStatsNeedAuth(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/stats", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	if body := decodeError(t, data); body.Code != "unauthorized" {
		t.Fatalf("unexpected code %q", body.Code)
	}
	res, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/stats", nil, owner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats status %d: %s", res.StatusCode, string(data))
	}
}

func TestRankedRequests(t *testing.T) {
	srv := newTestServer(t)
	for _, body := range []map[string]any{
		{"client_name": "Slow Co", "deadline": "2024-02-15", "budget": 50000},
		{"client_name": "Urgent Ltd", "deadline": "2024-01-03", "budget": 250000, "advance_paid": true, "advance_amount": 100000},
	} {
		res, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/requests", body, owner)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("ingest status %d: %s", res.StatusCode, string(data))
		}
	}
	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/requests/ranked", nil, owner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("rank status %d: %s", res.StatusCode, string(data))
	}
	var ranked RankedResponse
	if err := json.Unmarshal(data, &ranked); err != nil {
		t.Fatalf("decode ranked: %v", err)
	}
	if len(ranked.Requests) != 2 || ranked.Requests[0].ClientName != "Urgent Ltd" {
		t.Fatalf("unexpected ranking: %s", string(data))
	}
	top := ranked.Requests[0]
	if *top.PriorityScore != 90 || top.PriorityLevel != domain.LevelCritical || len(top.Reasoning) != 5 {
		t.Fatalf("unexpected top request: %+v", top)
	}
}

func TestIngestValidation(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/requests", map[string]any{
		"client_name": "Bad", "deadline": "soon",
	}, owner)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
	body := decodeError(t, data)
	if body.Code != "validation_failed" || body.Details["field"] != "deadline" {
		t.Fatalf("unexpected error body: %+v", body)
	}
	res, _ = doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/requests", map[string]any{"deadline": "2024-01-05"}, owner)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing client_name should be 400, got %d", res.StatusCode)
	}
}

func TestCreateDecisionRejectsMistypedContext(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/decisions", map[string]any{
		"agent_type":    "operations_agent",
		"decision_type": "task_assignment",
		"title":         "Assign packing",
		"confidence":    0.7,
		"context":       map[string]any{"task_id": 5},
	}, owner)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
	body := decodeError(t, data)
	if body.Code != "validation_failed" || body.Details["field"] != "context" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestDecisionApprovalFlow(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{"title": "Pack orders"}, owner)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task %d: %s", res.StatusCode, string(data))
	}
	var task domain.Task
	_ = json.Unmarshal(data, &task)
	res, data = doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/staff", map[string]any{"name": "Ravi", "max_capacity": 8}, owner)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add staff %d: %s", res.StatusCode, string(data))
	}
	var staff domain.StaffMember
	_ = json.Unmarshal(data, &staff)
	if !staff.Available {
		t.Fatalf("staff should default to available")
	}

	res, data = doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/proposals/task-assignment", map[string]any{
		"task_id": task.ID, "staff_id": staff.ID, "reason": "free capacity",
	}, owner)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("propose %d: %s", res.StatusCode, string(data))
	}
	var proposed DecisionResponse
	_ = json.Unmarshal(data, &proposed)
	if proposed.Status != domain.DecisionPending || proposed.Context["staff_id"] != staff.ID {
		t.Fatalf("unexpected proposal: %s", string(data))
	}

	token, err := IssueToken(testSecret, "owner-jwt")
	if err != nil {
		t.Fatal(err)
	}
	bearer := map[string]string{"Authorization": "Bearer " + token}
	res, data = doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/decisions/"+proposed.ID+"/approve", nil, bearer)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approve %d: %s", res.StatusCode, string(data))
	}
	var approved DecisionResponse
	_ = json.Unmarshal(data, &approved)
	if approved.Status != domain.DecisionApproved || approved.ApprovedBy == nil || *approved.ApprovedBy != "owner-jwt" {
		t.Fatalf("unexpected approval: %s", string(data))
	}

	res, data = doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/decisions/"+proposed.ID+"/reject", nil, owner)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", res.StatusCode, string(data))
	}
	if body := decodeError(t, data); body.Code != "already_resolved" || body.Details["status"] != domain.DecisionApproved {
		t.Fatalf("unexpected conflict body: %+v", body)
	}

	res, data = doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/decisions/"+proposed.ID+"/execute", nil, owner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("execute %d: %s", res.StatusCode, string(data))
	}
	stored, err := srv.Engine.Repo.GetTask(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.AssigneeID == nil || *stored.AssigneeID != staff.ID {
		t.Fatalf("task not assigned: %+v", stored)
	}

	res, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/decisions?status=approved", nil, owner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list %d: %s", res.StatusCode, string(data))
	}
	var listed []DecisionResponse
	_ = json.Unmarshal(data, &listed)
	if len(listed) != 1 || listed[0].ID != proposed.ID {
		t.Fatalf("unexpected list: %s", string(data))
	}

	res, _ = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/decisions/missing", nil, owner)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
}

func TestInvalidBearerToken(t *testing.T) {
	srv := newTestServer(t)
	token, err := IssueToken("other-secret", "intruder")
	if err != nil {
		t.Fatal(err)
	}
	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/decisions", nil, map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	if body := decodeError(t, data); body.Code != "invalid_credentials" {
		t.Fatalf("unexpected code %q", body.Code)
	}
}

type brokenPersistence struct{}

var errBroken = errors.New("connection refused")

func (brokenPersistence) InsertDecision(context.Context, domain.AIDecision) error { return errBroken }
func (brokenPersistence) ListDecisionsByStatus(context.Context, string) ([]domain.AIDecision, error) {
	return nil, errBroken
}
func (brokenPersistence) GetDecision(context.Context, string) (domain.AIDecision, error) {
	return domain.AIDecision{}, errBroken
}
func (brokenPersistence) UpdateDecisionStatus(context.Context, string, string, string, string, string) error {
	return errBroken
}

func TestStorageFailureIs503(t *testing.T) {
	srv := newTestServer(t, func(e *engine.Engine) { e.Decisions = brokenPersistence{} })
	res, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/proposals/optimization", map[string]any{
		"area": "cost", "title": "Switch courier", "suggestion": "Cheaper rates", "impact": "5%",
	}, owner)
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", res.StatusCode, string(data))
	}
	if body := decodeError(t, data); body.Code != "storage_unavailable" {
		t.Fatalf("unexpected code %q", body.Code)
	}
}

func TestEventsPagination(t *testing.T) {
	srv := newTestServer(t)
	for _, name := range []string{"a", "b", "c"} {
		res, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/resources", map[string]any{"name": name, "quantity": 5}, owner)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("add resource %d: %s", res.StatusCode, string(data))
		}
	}
	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/events?limit=2", nil, owner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events %d: %s", res.StatusCode, string(data))
	}
	var page paginatedEvents
	_ = json.Unmarshal(data, &page)
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("unexpected first page: %s", string(data))
	}
	res, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/events?limit=2&cursor="+page.NextCursor, nil, owner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events %d: %s", res.StatusCode, string(data))
	}
	var next paginatedEvents
	_ = json.Unmarshal(data, &next)
	if len(next.Items) != 1 || next.NextCursor != "" {
		t.Fatalf("unexpected second page: %s", string(data))
	}
	if next.Items[0].ID >= page.Items[1].ID {
		t.Fatalf("pages overlap: %d >= %d", next.Items[0].ID, page.Items[1].ID)
	}
}

func TestWebhookDelivery(t *testing.T) {
	var mu sync.Mutex
	var got []webhookEvent
	var secrets []string
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt webhookEvent
		_ = json.NewDecoder(r.Body).Decode(&evt)
		mu.Lock()
		got = append(got, evt)
		secrets = append(secrets, r.Header.Get("X-Opsdesk-Secret"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer sink.Close()

	srv := newTestServer(t)
	ctx := context.Background()
	if _, err := srv.Engine.AddResource(ctx, engine.ResourceCreateOptions{Name: "before", Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	d := NewWebhookDispatcher(srv.Engine, []config.Webhook{{URL: sink.URL, Events: []string{"decision.created"}, Secret: "s3"}}, nil)
	d.DispatchAll(ctx)

	if _, err := srv.Engine.AddResource(ctx, engine.ResourceCreateOptions{Name: "Tape", Quantity: 1, MinThreshold: 5}); err != nil {
		t.Fatal(err)
	}
	if _, err := srv.Engine.SweepRestock(ctx); err != nil {
		t.Fatal(err)
	}
	d.DispatchAll(ctx)
	d.DispatchAll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Type != "decision.created" || got[0].EntityKind != "decision" {
		t.Fatalf("unexpected deliveries: %+v", got)
	}
	if secrets[0] != "s3" {
		t.Fatalf("secret header missing")
	}
}
