package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"opsdesk/internal/config"
	"opsdesk/internal/db"
	"opsdesk/internal/decisions"
	"opsdesk/internal/domain"
	"opsdesk/internal/engine"
	"opsdesk/internal/migrate"
	"opsdesk/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("test shop")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func ptr[T any](v T) *T { return &v }

func ingest(t *testing.T, env testEnv, opts engine.RequestCreateOptions) domain.ProjectRequest {
	t.Helper()
	if opts.ActorID == "" {
		opts.ActorID = "ingest"
	}
	p, err := env.Engine.IngestRequest(env.Ctx, opts)
	if err != nil {
		t.Fatalf("ingest %s: %v", opts.ClientName, err)
	}
	return p
}

func TestIngestAndRank(t *testing.T) {
	env := newTestEnv(t)
	slow := ingest(t, env, engine.RequestCreateOptions{ClientName: "Slow Co", Deadline: "2024-02-15", Budget: 50000})
	urgent := ingest(t, env, engine.RequestCreateOptions{
		ClientName:    "Urgent Ltd",
		Deadline:      "2024-01-03",
		Budget:        250000,
		AdvancePaid:   true,
		AdvanceAmount: ptr(100000.0),
	})
	if urgent.Status != domain.RequestNew {
		t.Fatalf("expected new status, got %s", urgent.Status)
	}

	ranked, err := env.Engine.RankRequests(env.Ctx)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if ranked.TeamLoad != 0 {
		t.Fatalf("expected zero team load without staff, got %v", ranked.TeamLoad)
	}
	if len(ranked.Requests) != 2 || ranked.Requests[0].ID != urgent.ID || ranked.Requests[1].ID != slow.ID {
		t.Fatalf("unexpected order: %+v", ranked.Requests)
	}
	top := ranked.Requests[0]
	if top.PriorityScore == nil || *top.PriorityScore != 90 || top.PriorityLevel != domain.LevelCritical {
		t.Fatalf("unexpected top score: %v %s", top.PriorityScore, top.PriorityLevel)
	}
	if got := *ranked.Requests[1].PriorityScore; got != 25 {
		t.Fatalf("expected 25 for slow request, got %d", got)
	}

	stored, err := env.Engine.GetRequest(env.Ctx, urgent.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.PriorityScore != nil {
		t.Fatalf("scores must not be persisted")
	}
}

func TestRankUsesStaffLoad(t *testing.T) {
	env := newTestEnv(t)
	ingest(t, env, engine.RequestCreateOptions{ClientName: "A", Deadline: "2024-01-03", Budget: 1000})
	if _, err := env.Engine.AddStaff(env.Ctx, engine.StaffCreateOptions{Name: "Asha", CurrentWorkload: 9, MaxCapacity: 10, Available: true}); err != nil {
		t.Fatalf("add staff: %v", err)
	}
	ranked, err := env.Engine.RankRequests(env.Ctx)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if ranked.TeamLoad != 90 {
		t.Fatalf("expected 90%% load, got %v", ranked.TeamLoad)
	}
	f := ranked.Requests[0].Factors
	if f == nil || f.TeamLoadPenalty != -10 {
		t.Fatalf("expected overload penalty, got %+v", f)
	}
}

func TestRankHistoryRule(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Scoring.ClientRule = "history"
	first := ingest(t, env, engine.RequestCreateOptions{ClientName: "Repeat", ClientEmail: "r@example.com", Deadline: "2024-03-01", Budget: 1000})
	second := ingest(t, env, engine.RequestCreateOptions{ClientName: "Repeat", ClientEmail: "R@example.com", Deadline: "2024-03-01", Budget: 1000})
	ranked, err := env.Engine.RankRequests(env.Ctx)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	byID := map[string]domain.ProjectRequest{}
	for _, r := range ranked.Requests {
		byID[r.ID] = r
	}
	if got := byID[first.ID].Factors.ClientImportance; got != 5 {
		t.Fatalf("first request should be new client, got %d", got)
	}
	if got := byID[second.ID].Factors.ClientImportance; got != 10 {
		t.Fatalf("second request should be repeat client, got %d", got)
	}
	if ranked.Requests[0].ID != second.ID {
		t.Fatalf("repeat client should rank first")
	}
}

func TestIngestValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []engine.RequestCreateOptions{
		{ClientName: "", Deadline: "2024-01-10"},
		{ClientName: "x", Deadline: "next week"},
		{ClientName: "x", Deadline: "2024-01-10", Budget: -1},
		{ClientName: "x", Deadline: "2024-01-10", Budget: 100, AdvancePaid: true, AdvanceAmount: ptr(200.0)},
	}
	for i, c := range cases {
		if _, err := env.Engine.IngestRequest(env.Ctx, c); !domain.IsValidation(err) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	list, err := env.Engine.ListRequests(env.Ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("invalid requests must not be stored")
	}
}

func TestAdvanceRequestForwardOnly(t *testing.T) {
	env := newTestEnv(t)
	p := ingest(t, env, engine.RequestCreateOptions{ClientName: "A", Deadline: "2024-01-10"})
	p, err := env.Engine.AdvanceRequest(env.Ctx, p.ID, domain.RequestPrioritized, "owner")
	if err != nil || p.Status != domain.RequestPrioritized {
		t.Fatalf("advance: %v", err)
	}
	if _, err := env.Engine.AdvanceRequest(env.Ctx, p.ID, domain.RequestAnalyzed, "owner"); !domain.IsValidation(err) {
		t.Fatalf("expected backwards transition to fail, got %v", err)
	}
	if _, err := env.Engine.AdvanceRequest(env.Ctx, p.ID, "archived", "owner"); !domain.IsValidation(err) {
		t.Fatalf("expected unknown status to fail, got %v", err)
	}
	if _, err := env.Engine.AdvanceRequest(env.Ctx, "missing", domain.RequestAnalyzed, "owner"); !engine.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.Engine.AdvanceRequest(env.Ctx, p.ID, domain.RequestCompleted, "owner"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	ranked, err := env.Engine.RankRequests(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked.Requests) != 0 {
		t.Fatalf("completed requests are not ranked")
	}
}

func seedTaskAndStaff(t *testing.T, env testEnv) (domain.Task, domain.StaffMember) {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "Pack orders", Priority: "high", ActorID: "owner"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	staff, err := env.Engine.AddStaff(env.Ctx, engine.StaffCreateOptions{Name: "Ravi", Available: true, CurrentWorkload: 2, MaxCapacity: 8, ActorID: "owner"})
	if err != nil {
		t.Fatalf("add staff: %v", err)
	}
	return task, staff
}

func TestApproveAndExecuteTaskAssignment(t *testing.T) {
	env := newTestEnv(t)
	task, staff := seedTaskAndStaff(t, env)

	d, err := env.Engine.ProposeTaskAssignment(env.Ctx, task.ID, staff.ID, "Ravi has the most free capacity")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if d.Status != domain.DecisionPending || d.Confidence != 0.85 || d.AgentType != domain.AgentTaskCoordinator {
		t.Fatalf("unexpected proposal: %+v", d)
	}

	if _, err := env.Engine.ExecuteDecision(env.Ctx, d.ID, "owner"); !errors.Is(err, decisions.ErrNotApproved) {
		t.Fatalf("pending decisions must not execute, got %v", err)
	}

	approved, err := env.Engine.ApproveDecision(env.Ctx, d.ID, "owner-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.DecisionApproved || approved.ApprovedBy == nil || *approved.ApprovedBy != "owner-1" {
		t.Fatalf("unexpected approval: %+v", approved)
	}
	got, err := env.Engine.GetDecision(env.Ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != d.Title || got.Confidence != d.Confidence || got.CreatedAt != d.CreatedAt {
		t.Fatalf("approval changed immutable fields: %+v", got)
	}
	if got.Context.TaskAssignment == nil || got.Context.TaskAssignment.StaffID != staff.ID {
		t.Fatalf("context lost: %+v", got.Context)
	}

	stored, err := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.AssigneeID != nil {
		t.Fatalf("approval alone must not assign the task")
	}

	if _, err := env.Engine.ExecuteDecision(env.Ctx, d.ID, "owner-1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	stored, err = env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.AssigneeID == nil || *stored.AssigneeID != staff.ID {
		t.Fatalf("expected task assigned to %s, got %v", staff.ID, stored.AssigneeID)
	}
	if stored.UpdatedAt != "2024-01-01T00:00:00Z" {
		t.Fatalf("executor ignored the engine clock: updated_at=%s", stored.UpdatedAt)
	}
	after, err := env.Engine.GetDecision(env.Ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != domain.DecisionApproved {
		t.Fatalf("execution must leave status approved, got %s", after.Status)
	}

	evts, err := env.Engine.RecentEvents(env.Ctx, repo.EventFilters{EntityKind: "decision", EntityID: d.ID})
	if err != nil {
		t.Fatal(err)
	}
	var types []string
	for _, e := range evts {
		types = append(types, e.Type)
	}
	if strings.Join(types, ",") != "decision.executed,decision.approved,decision.created" {
		t.Fatalf("unexpected decision events: %v", types)
	}
}

func TestCallerExecutorOverridesBuiltin(t *testing.T) {
	env := newTestEnv(t)
	task, staff := seedTaskAndStaff(t, env)
	var ran []string
	env.Engine.Executors.Register(domain.DecisionTaskAssignment, decisions.ExecutorFunc(func(ctx context.Context, d domain.AIDecision) error {
		ran = append(ran, d.ID)
		return nil
	}))

	d, err := env.Engine.ProposeTaskAssignment(env.Ctx, task.ID, staff.ID, "")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := env.Engine.ApproveDecision(env.Ctx, d.ID, "owner"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.Engine.ExecuteDecision(env.Ctx, d.ID, "owner"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(ran) != 1 || ran[0] != d.ID {
		t.Fatalf("custom executor not used: %v", ran)
	}
	stored, err := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.AssigneeID != nil {
		t.Fatalf("built-in executor ran as well")
	}
}

func TestRejectThenApproveIsRefused(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.ProposeOptimization(env.Ctx, "staffing", "Hire part-time packer", "Weekend orders pile up", "20% faster dispatch")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if d.Description != "Weekend orders pile up\n\nEstimated Impact: 20% faster dispatch" {
		t.Fatalf("unexpected description %q", d.Description)
	}
	if _, err := env.Engine.RejectDecision(env.Ctx, d.ID, "owner"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	_, err = env.Engine.ApproveDecision(env.Ctx, d.ID, "owner")
	var already *decisions.AlreadyResolvedError
	if !errors.As(err, &already) || already.Status != domain.DecisionRejected {
		t.Fatalf("expected already resolved as rejected, got %v", err)
	}
	if !engine.IsAlreadyResolved(err) {
		t.Fatalf("IsAlreadyResolved should match %v", err)
	}
	if _, err := env.Engine.ApproveDecision(env.Ctx, "missing", "owner"); !engine.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.Engine.ApproveDecision(env.Ctx, d.ID, ""); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for empty approver, got %v", err)
	}
}

func TestListDecisionsByStatus(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.ProposeOptimization(env.Ctx, "cost", "Switch courier", "Cheaper rates", "5% savings")
	if err != nil {
		t.Fatal(err)
	}
	b, err := env.Engine.ProposeOptimization(env.Ctx, "workflow", "Batch packing", "Pack twice daily", "1h saved")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.ApproveDecision(env.Ctx, a.ID, "owner"); err != nil {
		t.Fatal(err)
	}
	all, err := env.Engine.ListDecisions(env.Ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != b.ID {
		t.Fatalf("expected insertion order, got %+v", all)
	}
	pending, err := env.Engine.ListDecisions(env.Ctx, domain.DecisionPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("expected only b pending, got %+v", pending)
	}
	rejected, err := env.Engine.ListDecisions(env.Ctx, domain.DecisionRejected)
	if err != nil {
		t.Fatal(err)
	}
	if rejected == nil || len(rejected) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", rejected)
	}
	if _, err := env.Engine.ListDecisions(env.Ctx, "unknown"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateDecisionContext(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.CreateDecision(env.Ctx, engine.DecisionCreateOptions{
		AgentType:    domain.AgentOperations,
		DecisionType: domain.DecisionRestockAlert,
		Title:        "Restock tape",
		Confidence:   0.6,
		Context:      map[string]any{"resource_id": "r1", "urgency": "low", "suggested_quantity": 4.0, "note": "seasonal"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := env.Engine.GetDecision(env.Ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Context.Restock == nil || got.Context.Restock.ResourceID != "r1" || got.Context.Restock.SuggestedQuantity != 4 {
		t.Fatalf("unexpected restock context: %+v", got.Context)
	}
	if got.Context.Extra["note"] != "seasonal" {
		t.Fatalf("extra keys lost: %+v", got.Context.Extra)
	}
	_, err = env.Engine.CreateDecision(env.Ctx, engine.DecisionCreateOptions{
		AgentType: domain.AgentOperations, DecisionType: domain.DecisionOptimization, Title: "x", Confidence: 1.5,
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected confidence validation, got %v", err)
	}
}

func TestRestockProposalAndSweep(t *testing.T) {
	env := newTestEnv(t)
	low, err := env.Engine.AddResource(env.Ctx, engine.ResourceCreateOptions{
		Name: "Bubble wrap", Unit: "m", Quantity: 12, MinThreshold: 25, MaxThreshold: 100, Supplier: "PackRight",
	})
	if err != nil {
		t.Fatalf("add resource: %v", err)
	}
	ok, err := env.Engine.AddResource(env.Ctx, engine.ResourceCreateOptions{Name: "Boxes", Quantity: 300, MinThreshold: 50})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.ProposeRestock(env.Ctx, ok.ID, "", 0, "check"); !domain.IsValidation(err) {
		t.Fatalf("well stocked resource should not get a restock proposal, got %v", err)
	}

	res, err := env.Engine.SweepRestock(env.Ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Checked != 2 || len(res.Created) != 1 {
		t.Fatalf("unexpected sweep result: %+v", res)
	}
	d := res.Created[0]
	if d.Confidence != 0.95 || d.Context.Restock == nil || d.Context.Restock.Urgency != "high" || d.Context.Restock.SuggestedQuantity != 88 {
		t.Fatalf("unexpected restock decision: %+v", d)
	}
	if d.Context.Restock.ResourceID != low.ID || d.Context.Restock.Supplier != "PackRight" {
		t.Fatalf("unexpected restock context: %+v", d.Context.Restock)
	}

	again, err := env.Engine.SweepRestock(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Created) != 0 || len(again.Skipped) != 1 {
		t.Fatalf("second sweep should skip the pending resource: %+v", again)
	}

	if _, err := env.Engine.RejectDecision(env.Ctx, d.ID, "owner"); err != nil {
		t.Fatal(err)
	}
	third, err := env.Engine.SweepRestock(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(third.Created) != 1 {
		t.Fatalf("after rejection the resource is proposed again: %+v", third)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	seedTaskAndStaff(t, env)
	if _, err := env.Engine.AddStaff(env.Ctx, engine.StaffCreateOptions{Name: "Off", Available: false, MaxCapacity: 8}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddResource(env.Ctx, engine.ResourceCreateOptions{Name: "Tape", Quantity: 1, MinThreshold: 5}); err != nil {
		t.Fatal(err)
	}
	ingest(t, env, engine.RequestCreateOptions{ClientName: "A", Deadline: "2024-01-10"})
	if _, err := env.Engine.SweepRestock(env.Ctx); err != nil {
		t.Fatal(err)
	}
	s, err := env.Engine.Stats(env.Ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.Stats{
		TotalTasks:       1,
		PendingTasks:     1,
		TotalResources:   1,
		LowStockItems:    1,
		StaffCount:       2,
		AvailableStaff:   1,
		PendingDecisions: 1,
		OpenRequests:     1,
		TeamLoadPercent:  12.5,
	}
	if s != want {
		t.Fatalf("unexpected stats:\n got %+v\nwant %+v", s, want)
	}
}

func TestMemoryBackendWritesEvents(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Decisions = decisions.NewMemoryPersistence()
	d, err := env.Engine.ProposeOptimization(env.Ctx, "inventory", "Trim slow SKUs", "Drop three items", "less dead stock")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.ApproveDecision(env.Ctx, d.ID, "owner"); err != nil {
		t.Fatal(err)
	}
	evts, err := env.Engine.RecentEvents(env.Ctx, repo.EventFilters{EntityID: d.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 2 || evts[0].Type != "decision.approved" || evts[0].ActorID != "owner" {
		t.Fatalf("unexpected events: %+v", evts)
	}
	rows, err := env.Engine.Repo.ListDecisions(env.Ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("memory backend must not write the sqlite table")
	}
}
