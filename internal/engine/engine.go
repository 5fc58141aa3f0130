package engine

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"giglane/internal/config"
	"giglane/internal/domain"
	"giglane/internal/events"
	"giglane/internal/handle"
	"giglane/internal/ledger"
	"giglane/internal/money"
	"giglane/internal/repo"
	"giglane/internal/storage"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Store  storage.BlobStore
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, store storage.BlobStore) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Store:  store,
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ErrHandleTaken is returned when the agencies unique index rejects a
// handle at insert time. The directory lookup is advisory only; this
// constraint is the authoritative check.
var ErrHandleTaken = errors.New("handle already taken")

// ErrInsufficientFunds is returned when a wallet cannot cover a transfer.
var ErrInsufficientFunds = errors.New("insufficient wallet balance")

// InitWorkspace creates the workspace row plus its default config.
func (e Engine) InitWorkspace(ctx context.Context, workspaceID, name, actorID string) (domain.Workspace, error) {
	if workspaceID == "" {
		return domain.Workspace{}, errors.New("workspace id required")
	}
	if name == "" {
		name = workspaceID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Workspace{}, err
	}
	defer tx.Rollback()

	w := domain.Workspace{
		ID:        workspaceID,
		Name:      name,
		Status:    "active",
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertWorkspace(ctx, tx, w); err != nil {
		return domain.Workspace{}, fmt.Errorf("insert workspace: %w", err)
	}
	if err := e.Repo.UpsertWorkspaceConfigTx(ctx, tx, w.ID, config.Default(w.ID)); err != nil {
		return domain.Workspace{}, fmt.Errorf("insert workspace config: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "workspace.init", w.ID, "workspace", w.ID, actorID, events.EventPayload{"status": w.Status}); err != nil {
		return domain.Workspace{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Workspace{}, err
	}
	return w, nil
}

func (e Engine) ArchiveWorkspace(ctx context.Context, workspaceID, actorID string) (domain.Workspace, error) {
	w, err := e.Repo.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return w, err
	}
	if w.Status == "archived" {
		return w, nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return w, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateWorkspaceStatus(ctx, tx, workspaceID, "archived"); err != nil {
		return w, err
	}
	if err := e.Events.Append(ctx, tx, "workspace.archived", w.ID, "workspace", w.ID, actorID, events.EventPayload{}); err != nil {
		return w, err
	}
	if err := tx.Commit(); err != nil {
		return w, err
	}
	w.Status = "archived"
	return w, nil
}

// CheckHandle validates a candidate and consults the directory. A
// lookup failure is reported as check_failed, never as taken or
// available.
func (e Engine) CheckHandle(ctx context.Context, workspaceID, candidate string) handle.Result {
	if reason := e.validateHandleSyntax(candidate); reason != handle.ReasonOK {
		return handle.Result{Candidate: candidate, Available: false, Reason: reason}
	}
	dir := repo.WorkspaceDirectory{Repo: e.Repo, WorkspaceID: workspaceID}
	exists, err := dir.HandleExists(ctx, candidate)
	if err != nil {
		return handle.Result{Candidate: candidate, Available: false, Reason: handle.ReasonCheckFailed}
	}
	if exists {
		return handle.Result{Candidate: candidate, Available: false, Reason: handle.ReasonTaken}
	}
	return handle.Result{Candidate: candidate, Available: true, Reason: handle.ReasonOK}
}

// validateHandleSyntax applies workspace config overrides when present,
// falling back to the package defaults.
func (e Engine) validateHandleSyntax(candidate string) handle.Reason {
	minLen := handle.MinLength
	pattern := ""
	if e.Config != nil {
		if e.Config.Handles.MinLength > 0 {
			minLen = e.Config.Handles.MinLength
		}
		pattern = e.Config.Handles.Pattern
	}
	if len(candidate) < minLen {
		return handle.ReasonTooShort
	}
	if pattern != "" {
		if re, err := regexp.Compile(pattern); err == nil {
			if !re.MatchString(candidate) {
				return handle.ReasonInvalidChars
			}
			return handle.ReasonOK
		}
	}
	if r := handle.Validate(candidate); r == handle.ReasonInvalidChars {
		return r
	}
	return handle.ReasonOK
}

// AgencyCreateOptions are parameters for the agency submission pipeline.
type AgencyCreateOptions struct {
	WorkspaceID    string
	Name           string
	Handle         string
	AgencyType     string
	OwnerEmail     string
	LogoFilename   string
	Logo           []byte
	IdempotencyKey string
	ActorID        string
}

// CreateAgency runs the upload-then-create pipeline. The logo blob is
// uploaded before the database insert; if the insert fails the blob is
// deleted so a retry starts clean. An idempotency key that matches an
// existing agency short-circuits to that agency without re-uploading.
func (e Engine) CreateAgency(ctx context.Context, opts AgencyCreateOptions) (domain.Agency, error) {
	if e.Config == nil {
		return domain.Agency{}, errors.New("config not loaded")
	}
	if opts.WorkspaceID == "" {
		return domain.Agency{}, errors.New("workspace required")
	}
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Agency{}, errors.New("name is required")
	}
	if reason := e.validateHandleSyntax(opts.Handle); reason != handle.ReasonOK {
		return domain.Agency{}, fmt.Errorf("handle %q rejected: %s", opts.Handle, reason)
	}
	agencyType, ok := e.resolveAgencyType(opts.AgencyType)
	if !ok {
		return domain.Agency{}, fmt.Errorf("unknown agency type %q", opts.AgencyType)
	}
	if opts.OwnerEmail == "" {
		return domain.Agency{}, errors.New("owner email is required")
	}
	if _, err := e.Repo.GetWorkspace(ctx, opts.WorkspaceID); err != nil {
		return domain.Agency{}, err
	}

	if opts.IdempotencyKey != "" {
		existing, err := e.Repo.GetAgencyByIdempotencyKey(ctx, opts.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return domain.Agency{}, err
		}
	}

	logoURL := ""
	blobKey := ""
	if len(opts.Logo) > 0 {
		if e.Store == nil {
			return domain.Agency{}, errors.New("no blob store configured")
		}
		filename := opts.LogoFilename
		if filename == "" {
			filename = "logo"
		}
		blobKey = storage.Key("agency", opts.WorkspaceID, opts.Handle, filename)
		url, err := e.Store.Put(ctx, blobKey, bytes.NewReader(opts.Logo))
		if err != nil {
			return domain.Agency{}, fmt.Errorf("upload logo: %w", err)
		}
		logoURL = url
	}

	a := domain.Agency{
		ID:             uuid.New().String(),
		WorkspaceID:    opts.WorkspaceID,
		Handle:         opts.Handle,
		Name:           strings.TrimSpace(opts.Name),
		AgencyType:     agencyType,
		LogoURL:        logoURL,
		OwnerEmail:     opts.OwnerEmail,
		IdempotencyKey: opts.IdempotencyKey,
		CreatedBy:      opts.ActorID,
		CreatedAt:      e.now().UTC().Format(time.RFC3339),
	}
	if err := e.insertAgency(ctx, a, opts.ActorID); err != nil {
		if blobKey != "" {
			// compensating cleanup so the orphaned blob does not leak
			_ = e.Store.Delete(ctx, blobKey)
		}
		return domain.Agency{}, err
	}
	return a, nil
}

func (e Engine) insertAgency(ctx context.Context, a domain.Agency, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAgency(ctx, tx, a); err != nil {
		if isUniqueViolation(err) {
			return ErrHandleTaken
		}
		return fmt.Errorf("insert agency: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "agency.created", a.WorkspaceID, "agency", a.ID, actorID, events.EventPayload{
		"handle":      a.Handle,
		"agency_type": a.AgencyType,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}

func (e Engine) resolveAgencyType(raw string) (string, bool) {
	if e.Config == nil {
		return "", false
	}
	if _, ok := e.Config.Agencies.Catalog[raw]; ok {
		return raw, true
	}
	if target, ok := e.Config.Agencies.Aliases[raw]; ok {
		if _, ok := e.Config.Agencies.Catalog[target]; ok {
			return target, true
		}
	}
	return "", false
}

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	WorkspaceID string
	AgencyID    string
	Title       string
	BudgetTotal money.Cents
	ActorID     string
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if opts.Title == "" {
		return domain.Project{}, errors.New("title is required")
	}
	if opts.BudgetTotal < 0 {
		return domain.Project{}, errors.New("budget total cannot be negative")
	}
	if _, err := e.Repo.GetWorkspace(ctx, opts.WorkspaceID); err != nil {
		return domain.Project{}, err
	}
	if opts.AgencyID != "" {
		a, err := e.Repo.GetAgency(ctx, opts.AgencyID)
		if err != nil {
			return domain.Project{}, err
		}
		if a.WorkspaceID != opts.WorkspaceID {
			return domain.Project{}, fmt.Errorf("agency %s not in workspace %s", opts.AgencyID, opts.WorkspaceID)
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	p := domain.Project{
		ID:          uuid.New().String(),
		WorkspaceID: opts.WorkspaceID,
		AgencyID:    optionalString(opts.AgencyID),
		Title:       opts.Title,
		Status:      "active",
		BudgetTotal: opts.BudgetTotal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "project.created", p.WorkspaceID, "project", p.ID, opts.ActorID, events.EventPayload{
		"title":              p.Title,
		"budget_total_cents": int64(p.BudgetTotal),
	}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// BudgetReport is the ledger snapshot for one project.
type BudgetReport struct {
	ProjectID string      `json:"project_id"`
	Total     money.Cents `json:"total_cents"`
	Allocated money.Cents `json:"allocated_cents"`
	Remaining money.Cents `json:"remaining_cents"`
	Tier      ledger.Tier `json:"tier"`
}

func (e Engine) ProjectBudget(ctx context.Context, projectID string) (BudgetReport, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return BudgetReport{}, err
	}
	l := e.ledgerFor(p)
	return BudgetReport{
		ProjectID: p.ID,
		Total:     l.Total,
		Allocated: l.Allocated,
		Remaining: l.Remaining(),
		Tier:      l.Tier(),
	}, nil
}

func (e Engine) ledgerFor(p domain.Project) ledger.Ledger {
	l := ledger.Ledger{Total: p.BudgetTotal, Allocated: p.BudgetAllocated}
	if e.Config != nil && e.Config.Budget.WarnPct > 0 {
		l.WarnPct = e.Config.Budget.WarnPct
	}
	return l
}

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ProjectID   string
	Title       string
	Description string
	AssigneeID  string
	Cost        money.Cents
	ActorID     string
}

// CreateTask commits a task's cost against the project budget. The
// budget is read and re-checked inside the transaction that writes the
// task, so a stale client-side snapshot can never overdraw it.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	if opts.ProjectID == "" {
		return domain.Task{}, errors.New("project is required")
	}
	if opts.Cost < 0 {
		return domain.Task{}, errors.New("cost cannot be negative")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, opts.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if p.Status != "active" {
		return domain.Task{}, fmt.Errorf("project %s is %s; tasks require an active project", p.ID, p.Status)
	}
	if err := e.ledgerFor(p).Check(opts.Cost); err != nil {
		return domain.Task{}, err
	}

	now := e.now().UTC().Format(time.RFC3339)
	t := domain.Task{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte(opts.ProjectID+"|"+opts.Title+"|"+now)).String(),
		ProjectID:   opts.ProjectID,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      "open",
		AssigneeID:  optionalString(opts.AssigneeID),
		Cost:        opts.Cost,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := e.Repo.AdjustProjectAllocation(ctx, tx, p.ID, opts.Cost, now); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.created", p.WorkspaceID, "task", t.ID, opts.ActorID, events.EventPayload{
		"title":      t.Title,
		"cost_cents": int64(t.Cost),
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func ensureTaskTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case "open":
		if newStatus == "in_progress" || newStatus == "canceled" {
			return nil
		}
	case "in_progress":
		if newStatus == "review" || newStatus == "canceled" {
			return nil
		}
	case "review":
		if newStatus == "done" || newStatus == "in_progress" {
			return nil
		}
	}
	return fmt.Errorf("invalid task status transition %s -> %s", oldStatus, newStatus)
}

// SetTaskStatus applies a status transition. Canceling a task frees its
// cost back to the project budget in the same transaction.
func (e Engine) SetTaskStatus(ctx context.Context, taskID, status, actorID string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return t, err
	}
	if err := ensureTaskTransition(t.Status, status); err != nil {
		return t, err
	}
	p, err := e.Repo.GetProject(ctx, t.ProjectID)
	if err != nil {
		return t, err
	}
	from := t.Status
	now := e.now().UTC().Format(time.RFC3339)
	t.Status = status
	t.UpdatedAt = now
	if status == "done" {
		t.CompletedAt = &now
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return t, err
	}
	if status == "canceled" && t.Cost > 0 {
		if err := e.Repo.AdjustProjectAllocation(ctx, tx, t.ProjectID, -t.Cost, now); err != nil {
			return t, err
		}
	}
	if err := e.Events.Append(ctx, tx, "task.updated", p.WorkspaceID, "task", t.ID, actorID, events.EventPayload{
		"from_status": from,
		"to_status":   status,
	}); err != nil {
		return t, err
	}
	if err := tx.Commit(); err != nil {
		return t, err
	}
	return t, nil
}

func ensureProjectTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case "active":
		if newStatus == "paused" || newStatus == "completed" || newStatus == "archived" {
			return nil
		}
	case "paused":
		if newStatus == "active" || newStatus == "archived" {
			return nil
		}
	case "completed":
		if newStatus == "archived" {
			return nil
		}
	}
	return fmt.Errorf("invalid project status transition %s -> %s", oldStatus, newStatus)
}

func (e Engine) SetProjectStatus(ctx context.Context, projectID, status, actorID string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return p, err
	}
	if err := ensureProjectTransition(p.Status, status); err != nil {
		return p, err
	}
	from := p.Status
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateProjectStatus(ctx, tx, projectID, status, now); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "project.updated", p.WorkspaceID, "project", p.ID, actorID, events.EventPayload{
		"from_status": from,
		"to_status":   status,
	}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	p.Status = status
	p.UpdatedAt = now
	return p, nil
}

// ContractCreateOptions are parameters for creating a contract.
type ContractCreateOptions struct {
	ProjectID    string
	TaskID       string
	ClientID     string
	ContractorID string
	Amount       money.Cents
	ActorID      string
}

func (e Engine) CreateContract(ctx context.Context, opts ContractCreateOptions) (domain.Contract, error) {
	if opts.ClientID == "" || opts.ContractorID == "" {
		return domain.Contract{}, errors.New("client and contractor required")
	}
	if opts.ClientID == opts.ContractorID {
		return domain.Contract{}, errors.New("client and contractor must differ")
	}
	if opts.Amount <= 0 {
		return domain.Contract{}, errors.New("amount must be positive")
	}
	p, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return domain.Contract{}, err
	}
	if opts.TaskID != "" {
		t, err := e.Repo.GetTask(ctx, opts.TaskID)
		if err != nil {
			return domain.Contract{}, err
		}
		if t.ProjectID != opts.ProjectID {
			return domain.Contract{}, fmt.Errorf("task %s not in project %s", opts.TaskID, opts.ProjectID)
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	c := domain.Contract{
		ID:           uuid.New().String(),
		ProjectID:    opts.ProjectID,
		TaskID:       optionalString(opts.TaskID),
		ClientID:     opts.ClientID,
		ContractorID: opts.ContractorID,
		Amount:       opts.Amount,
		Status:       "draft",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Contract{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertContract(ctx, tx, c); err != nil {
		return domain.Contract{}, fmt.Errorf("insert contract: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "contract.created", p.WorkspaceID, "contract", c.ID, opts.ActorID, events.EventPayload{
		"amount_cents": int64(c.Amount),
	}); err != nil {
		return domain.Contract{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Contract{}, err
	}
	return c, nil
}

func ensureContractTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case "draft":
		if newStatus == "sent" || newStatus == "withdrawn" {
			return nil
		}
	case "sent":
		if newStatus == "accepted" || newStatus == "declined" || newStatus == "withdrawn" {
			return nil
		}
	case "accepted":
		if newStatus == "completed" {
			return nil
		}
	}
	return fmt.Errorf("invalid contract status transition %s -> %s", oldStatus, newStatus)
}

// SetContractStatus applies a status transition. Completing a contract
// settles it: the amount moves from the client wallet to the contractor
// wallet in the same transaction as the status change.
func (e Engine) SetContractStatus(ctx context.Context, contractID, status, actorID string) (domain.Contract, error) {
	c, err := e.Repo.GetContract(ctx, contractID)
	if err != nil {
		return c, err
	}
	if err := ensureContractTransition(c.Status, status); err != nil {
		return c, err
	}
	p, err := e.Repo.GetProject(ctx, c.ProjectID)
	if err != nil {
		return c, err
	}
	from := c.Status
	now := e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateContractStatus(ctx, tx, contractID, status, now); err != nil {
		return c, err
	}
	if status == "completed" {
		if err := e.settleContract(ctx, tx, p.WorkspaceID, c, now); err != nil {
			return c, err
		}
	}
	if err := e.Events.Append(ctx, tx, "contract.updated", p.WorkspaceID, "contract", c.ID, actorID, events.EventPayload{
		"from_status": from,
		"to_status":   status,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	c.Status = status
	c.UpdatedAt = now
	return c, nil
}

func (e Engine) settleContract(ctx context.Context, tx *sql.Tx, workspaceID string, c domain.Contract, now string) error {
	client, err := e.ensureAccountTx(ctx, tx, workspaceID, c.ClientID, now)
	if err != nil {
		return err
	}
	contractor, err := e.ensureAccountTx(ctx, tx, workspaceID, c.ContractorID, now)
	if err != nil {
		return err
	}
	if client.Balance < c.Amount {
		return ErrInsufficientFunds
	}
	if err := e.Repo.AdjustWalletBalance(ctx, tx, client.ID, -c.Amount, "contract", c.ID, now); err != nil {
		return err
	}
	return e.Repo.AdjustWalletBalance(ctx, tx, contractor.ID, c.Amount, "contract", c.ID, now)
}

func (e Engine) ensureAccountTx(ctx context.Context, tx *sql.Tx, workspaceID, ownerID, now string) (domain.WalletAccount, error) {
	acct := domain.WalletAccount{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		OwnerID:     ownerID,
		CreatedAt:   now,
	}
	if err := e.Repo.EnsureWalletAccount(ctx, tx, acct); err != nil {
		return domain.WalletAccount{}, err
	}
	return e.Repo.GetWalletAccountTx(ctx, tx, workspaceID, ownerID)
}

// Deposit credits a wallet account, creating it if needed.
func (e Engine) Deposit(ctx context.Context, workspaceID, ownerID string, amount money.Cents, actorID string) (domain.WalletAccount, error) {
	if amount <= 0 {
		return domain.WalletAccount{}, errors.New("amount must be positive")
	}
	if _, err := e.Repo.GetWorkspace(ctx, workspaceID); err != nil {
		return domain.WalletAccount{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WalletAccount{}, err
	}
	defer tx.Rollback()
	acct, err := e.ensureAccountTx(ctx, tx, workspaceID, ownerID, now)
	if err != nil {
		return domain.WalletAccount{}, err
	}
	if err := e.Repo.AdjustWalletBalance(ctx, tx, acct.ID, amount, "deposit", "", now); err != nil {
		return domain.WalletAccount{}, err
	}
	if err := e.Events.Append(ctx, tx, "wallet.deposited", workspaceID, "wallet", acct.ID, actorID, events.EventPayload{
		"owner_id":     ownerID,
		"amount_cents": int64(amount),
	}); err != nil {
		return domain.WalletAccount{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WalletAccount{}, err
	}
	acct.Balance += amount
	return acct, nil
}

// --- helpers ---

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
