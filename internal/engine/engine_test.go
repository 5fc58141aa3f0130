package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"giglane/internal/config"
	"giglane/internal/db"
	"giglane/internal/engine"
	"giglane/internal/handle"
	"giglane/internal/ledger"
	"giglane/internal/migrate"
	"giglane/internal/money"
	"giglane/internal/repo"
	"giglane/internal/storage"
)

type testEnv struct {
	Engine engine.Engine
	Store  *storage.FSStore
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
	store, err := storage.NewFSStore(db.BlobRoot(dir))
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	cfg := config.Default("ws-1")
	eng := engine.New(conn, cfg, store)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if _, err := eng.InitWorkspace(ctx, "ws-1", "test workspace", "tester"); err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	return testEnv{Engine: eng, Store: store, Ctx: ctx}
}

func mustProject(t *testing.T, env testEnv, total string) string {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		WorkspaceID: "ws-1",
		Title:       "Website revamp",
		BudgetTotal: money.MustParse(total),
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p.ID
}

func TestTaskCostCommitsAgainstBudget(t *testing.T) {
	env := newTestEnv(t)
	projectID := mustProject(t, env, "500.00")

	// fill allocation to 450.00
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID: projectID, Title: "phase one", Cost: money.MustParse("450.00"), ActorID: "tester",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	// 100.00 does not fit: 50.00 remaining
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID: projectID, Title: "too big", Cost: money.MustParse("100.00"), ActorID: "tester",
	})
	var exceeded *ledger.ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected ExceededError, got %v", err)
	}
	if exceeded.Remaining != money.MustParse("50.00") {
		t.Fatalf("remaining = %s", exceeded.Remaining)
	}
	if exceeded.OverBy != money.MustParse("50.00") {
		t.Fatalf("over_by = %s", exceeded.OverBy)
	}

	// rejection must not change the stored allocation
	report, err := env.Engine.ProjectBudget(env.Ctx, projectID)
	if err != nil {
		t.Fatalf("budget: %v", err)
	}
	if report.Allocated != money.MustParse("450.00") {
		t.Fatalf("allocation mutated by rejected task: %s", report.Allocated)
	}

	// 40.00 fits
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID: projectID, Title: "fits", Cost: money.MustParse("40.00"), ActorID: "tester",
	}); err != nil {
		t.Fatalf("create fitting task: %v", err)
	}
	report, _ = env.Engine.ProjectBudget(env.Ctx, projectID)
	if report.Allocated != money.MustParse("490.00") {
		t.Fatalf("allocated = %s, want 490.00", report.Allocated)
	}
	if report.Remaining != money.MustParse("10.00") {
		t.Fatalf("remaining = %s, want 10.00", report.Remaining)
	}
	if report.Tier != ledger.TierWarning {
		t.Fatalf("tier = %s, want warning", report.Tier)
	}
}

func TestCancelTaskFreesAllocation(t *testing.T) {
	env := newTestEnv(t)
	projectID := mustProject(t, env, "100.00")
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID: projectID, Title: "temp", Cost: money.MustParse("60.00"), ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetTaskStatus(env.Ctx, task.ID, "canceled", "tester"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	report, _ := env.Engine.ProjectBudget(env.Ctx, projectID)
	if report.Allocated != 0 {
		t.Fatalf("allocated = %s after cancel, want 0.00", report.Allocated)
	}
	if report.Tier != ledger.TierHealthy {
		t.Fatalf("tier = %s, want healthy", report.Tier)
	}
}

func TestTaskStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	projectID := mustProject(t, env, "100.00")
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID: projectID, Title: "Do work", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	for _, status := range []string{"in_progress", "review", "done"} {
		task, err = env.Engine.SetTaskStatus(env.Ctx, task.ID, status, "tester")
		if err != nil || task.Status != status {
			t.Fatalf("to %s: %v", status, err)
		}
	}
	if task.CompletedAt == nil {
		t.Fatal("done task missing completed_at")
	}
	if _, err := env.Engine.SetTaskStatus(env.Ctx, task.ID, "open", "tester"); err == nil {
		t.Fatal("expected transition error from done")
	}
}

func TestReviewCanBounceBackToInProgress(t *testing.T) {
	env := newTestEnv(t)
	projectID := mustProject(t, env, "100.00")
	task, _ := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: projectID, Title: "t", ActorID: "tester"})
	task, _ = env.Engine.SetTaskStatus(env.Ctx, task.ID, "in_progress", "tester")
	task, _ = env.Engine.SetTaskStatus(env.Ctx, task.ID, "review", "tester")
	task, err := env.Engine.SetTaskStatus(env.Ctx, task.ID, "in_progress", "tester")
	if err != nil || task.Status != "in_progress" {
		t.Fatalf("review -> in_progress: %v", err)
	}
}

func TestCreateAgencyUploadsLogoFirst(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.CreateAgency(env.Ctx, engine.AgencyCreateOptions{
		WorkspaceID:  "ws-1",
		Name:         "Garden Agency",
		Handle:       "garden",
		AgencyType:   "va",
		OwnerEmail:   "hello@garden.com",
		LogoFilename: "logo.png",
		Logo:         []byte("png-bytes"),
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatalf("create agency: %v", err)
	}
	if a.AgencyType != "va_collective" {
		t.Fatalf("alias not resolved: %s", a.AgencyType)
	}
	if !strings.HasPrefix(a.LogoURL, "file://") {
		t.Fatalf("logo url = %q", a.LogoURL)
	}
	path := strings.TrimPrefix(a.LogoURL, "file://")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("uploaded blob missing: %v", err)
	}
}

func TestCreateAgencyHandleConflictCleansUpBlob(t *testing.T) {
	env := newTestEnv(t)
	first, err := env.Engine.CreateAgency(env.Ctx, engine.AgencyCreateOptions{
		WorkspaceID: "ws-1", Name: "First", Handle: "garden", AgencyType: "va_collective",
		OwnerEmail: "a@garden.com", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.CreateAgency(env.Ctx, engine.AgencyCreateOptions{
		WorkspaceID: "ws-1", Name: "Second", Handle: "garden", AgencyType: "va_collective",
		OwnerEmail: "b@garden.com", LogoFilename: "logo.png", Logo: []byte("x"), ActorID: "tester",
	})
	if !errors.Is(err, engine.ErrHandleTaken) {
		t.Fatalf("expected ErrHandleTaken, got %v", err)
	}
	// the loser's upload must have been deleted
	blobPath := filepath.Join(env.Store.Root, "agency", "ws-1", "garden", "logo.png")
	if _, statErr := os.Stat(blobPath); !os.IsNotExist(statErr) {
		t.Fatalf("orphaned blob still present: %v", statErr)
	}
	got, err := env.Engine.Repo.GetAgencyByHandle(env.Ctx, "ws-1", "garden")
	if err != nil || got.ID != first.ID {
		t.Fatalf("surviving agency = %v, %v", got, err)
	}
}

func TestCreateAgencyIdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	opts := engine.AgencyCreateOptions{
		WorkspaceID: "ws-1", Name: "Replay Co", Handle: "replay", AgencyType: "dev",
		OwnerEmail: "hi@replay.com", IdempotencyKey: "key-123", ActorID: "tester",
	}
	first, err := env.Engine.CreateAgency(env.Ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.Engine.CreateAgency(env.Ctx, opts)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("replay created a duplicate: %s vs %s", second.ID, first.ID)
	}
	all, _ := env.Engine.Repo.ListAgencies(env.Ctx, "ws-1")
	if len(all) != 1 {
		t.Fatalf("agencies = %d, want 1", len(all))
	}
}

func TestCheckHandleReasons(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateAgency(env.Ctx, engine.AgencyCreateOptions{
		WorkspaceID: "ws-1", Name: "Taken", Handle: "taken_one", AgencyType: "va",
		OwnerEmail: "t@t.com", ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		candidate string
		reason    handle.Reason
		available bool
	}{
		{"ab", handle.ReasonTooShort, false},
		{"bad handle!", handle.ReasonInvalidChars, false},
		{"taken_one", handle.ReasonTaken, false},
		{"fresh_one", handle.ReasonOK, true},
	}
	for _, tc := range cases {
		res := env.Engine.CheckHandle(env.Ctx, "ws-1", tc.candidate)
		if res.Reason != tc.reason || res.Available != tc.available {
			t.Fatalf("%q: got %+v", tc.candidate, res)
		}
	}
}

func TestContractSettlementMovesFunds(t *testing.T) {
	env := newTestEnv(t)
	projectID := mustProject(t, env, "1000.00")
	if _, err := env.Engine.Deposit(env.Ctx, "ws-1", "client-1", money.MustParse("300.00"), "tester"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	c, err := env.Engine.CreateContract(env.Ctx, engine.ContractCreateOptions{
		ProjectID: projectID, ClientID: "client-1", ContractorID: "freelancer-1",
		Amount: money.MustParse("200.00"), ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, status := range []string{"sent", "accepted", "completed"} {
		if c, err = env.Engine.SetContractStatus(env.Ctx, c.ID, status, "tester"); err != nil {
			t.Fatalf("to %s: %v", status, err)
		}
	}
	client, err := env.Engine.Repo.GetWalletAccount(env.Ctx, "ws-1", "client-1")
	if err != nil {
		t.Fatal(err)
	}
	if client.Balance != money.MustParse("100.00") {
		t.Fatalf("client balance = %s", client.Balance)
	}
	contractor, err := env.Engine.Repo.GetWalletAccount(env.Ctx, "ws-1", "freelancer-1")
	if err != nil {
		t.Fatal(err)
	}
	if contractor.Balance != money.MustParse("200.00") {
		t.Fatalf("contractor balance = %s", contractor.Balance)
	}
	entries, err := env.Engine.Repo.ListWalletEntries(env.Ctx, contractor.ID, 10)
	if err != nil || len(entries) != 1 {
		t.Fatalf("entries = %v, %v", entries, err)
	}
	if entries[0].Kind != "credit" || entries[0].RefID != c.ID {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestContractSettlementRequiresFunds(t *testing.T) {
	env := newTestEnv(t)
	projectID := mustProject(t, env, "1000.00")
	c, err := env.Engine.CreateContract(env.Ctx, engine.ContractCreateOptions{
		ProjectID: projectID, ClientID: "client-1", ContractorID: "freelancer-1",
		Amount: money.MustParse("200.00"), ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	c, _ = env.Engine.SetContractStatus(env.Ctx, c.ID, "sent", "tester")
	c, _ = env.Engine.SetContractStatus(env.Ctx, c.ID, "accepted", "tester")
	_, err = env.Engine.SetContractStatus(env.Ctx, c.ID, "completed", "tester")
	if !errors.Is(err, engine.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	// failed settlement must not change the contract status
	got, _ := env.Engine.Repo.GetContract(env.Ctx, c.ID)
	if got.Status != "accepted" {
		t.Fatalf("status = %s after failed settlement", got.Status)
	}
}

func TestContractTransitions(t *testing.T) {
	env := newTestEnv(t)
	projectID := mustProject(t, env, "1000.00")
	c, err := env.Engine.CreateContract(env.Ctx, engine.ContractCreateOptions{
		ProjectID: projectID, ClientID: "a", ContractorID: "b",
		Amount: money.MustParse("10.00"), ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetContractStatus(env.Ctx, c.ID, "accepted", "tester"); err == nil {
		t.Fatal("draft -> accepted should fail")
	}
	c, _ = env.Engine.SetContractStatus(env.Ctx, c.ID, "sent", "tester")
	c, err = env.Engine.SetContractStatus(env.Ctx, c.ID, "declined", "tester")
	if err != nil || c.Status != "declined" {
		t.Fatalf("sent -> declined: %v", err)
	}
}

func TestTasksRequireActiveProject(t *testing.T) {
	env := newTestEnv(t)
	projectID := mustProject(t, env, "100.00")
	if _, err := env.Engine.SetProjectStatus(env.Ctx, projectID, "paused", "tester"); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID: projectID, Title: "nope", ActorID: "tester",
	})
	if err == nil {
		t.Fatal("expected paused project to reject tasks")
	}
}

func TestEventsRecorded(t *testing.T) {
	env := newTestEnv(t)
	projectID := mustProject(t, env, "100.00")
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID: projectID, Title: "t", Cost: money.MustParse("5.00"), ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 50, "ws-1", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	types := map[string]bool{}
	for _, e := range evts {
		types[e.Type] = true
	}
	for _, want := range []string{"workspace.init", "project.created", "task.created"} {
		if !types[want] {
			t.Fatalf("missing event %s in %v", want, types)
		}
	}
}

func TestUnknownProjectIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.ProjectBudget(env.Ctx, "nope")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
