package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"giglane/internal/config"
	"giglane/internal/domain"
	"giglane/internal/money"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// --- workspaces ---

func (r Repo) InsertWorkspace(ctx context.Context, tx *sql.Tx, w domain.Workspace) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO workspaces(id,name,status,created_at) VALUES (?,?,?,?)`,
		w.ID, w.Name, w.Status, w.CreatedAt)
	return err
}

func (r Repo) GetWorkspace(ctx context.Context, id string) (domain.Workspace, error) {
	var w domain.Workspace
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,status,created_at FROM workspaces WHERE id=?`, id).
		Scan(&w.ID, &w.Name, &w.Status, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	return w, err
}

func (r Repo) SingleWorkspace(ctx context.Context) (domain.Workspace, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,status,created_at FROM workspaces`)
	if err != nil {
		return domain.Workspace{}, err
	}
	defer rows.Close()
	var all []domain.Workspace
	for rows.Next() {
		var w domain.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.Status, &w.CreatedAt); err != nil {
			return domain.Workspace{}, err
		}
		all = append(all, w)
	}
	if len(all) == 0 {
		return domain.Workspace{}, ErrNotFound
	}
	if len(all) > 1 {
		return domain.Workspace{}, fmt.Errorf("multiple workspaces exist; specify --workspace-id")
	}
	return all[0], nil
}

func (r Repo) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,status,created_at FROM workspaces ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Workspace
	for rows.Next() {
		var w domain.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, nil
}

func (r Repo) UpdateWorkspaceStatus(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE workspaces SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- workspace configs ---

func (r Repo) UpsertWorkspaceConfig(ctx context.Context, workspaceID string, cfg *config.Config) error {
	return upsertWorkspaceConfig(ctx, r.DB, nil, workspaceID, cfg)
}

func (r Repo) UpsertWorkspaceConfigTx(ctx context.Context, tx *sql.Tx, workspaceID string, cfg *config.Config) error {
	return upsertWorkspaceConfig(ctx, nil, tx, workspaceID, cfg)
}

func upsertWorkspaceConfig(ctx context.Context, db *sql.DB, tx *sql.Tx, workspaceID string, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config nil")
	}
	cfg.Workspace.ID = workspaceID
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	exec := func(query string, args ...any) (sql.Result, error) {
		if tx != nil {
			return tx.ExecContext(ctx, query, args...)
		}
		return db.ExecContext(ctx, query, args...)
	}
	_, err = exec(`INSERT INTO workspace_configs(workspace_id,config_json,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(workspace_id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, workspaceID, string(payload), now, now)
	return err
}

func (r Repo) GetWorkspaceConfig(ctx context.Context, workspaceID string) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM workspace_configs WHERE workspace_id=?`, workspaceID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	if cfg.Workspace.ID == "" {
		cfg.Workspace.ID = workspaceID
	}
	return &cfg, cfg.Validate()
}

// --- agencies ---

func (r Repo) InsertAgency(ctx context.Context, tx *sql.Tx, a domain.Agency) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO agencies(id,workspace_id,handle,name,agency_type,logo_url,owner_email,idempotency_key,created_by,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.WorkspaceID, a.Handle, a.Name, a.AgencyType, nullable(a.LogoURL), a.OwnerEmail, nullable(a.IdempotencyKey), a.CreatedBy, a.CreatedAt)
	return err
}

func scanAgency(scan func(dest ...any) error) (domain.Agency, error) {
	var a domain.Agency
	var logo, idem sql.NullString
	err := scan(&a.ID, &a.WorkspaceID, &a.Handle, &a.Name, &a.AgencyType, &logo, &a.OwnerEmail, &idem, &a.CreatedBy, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if logo.Valid {
		a.LogoURL = logo.String
	}
	if idem.Valid {
		a.IdempotencyKey = idem.String
	}
	return a, nil
}

const agencyCols = `id,workspace_id,handle,name,agency_type,logo_url,owner_email,idempotency_key,created_by,created_at`

func (r Repo) GetAgency(ctx context.Context, id string) (domain.Agency, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+agencyCols+` FROM agencies WHERE id=?`, id)
	return scanAgency(row.Scan)
}

func (r Repo) GetAgencyByHandle(ctx context.Context, workspaceID, handle string) (domain.Agency, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+agencyCols+` FROM agencies WHERE workspace_id=? AND handle=?`, workspaceID, handle)
	return scanAgency(row.Scan)
}

func (r Repo) GetAgencyByIdempotencyKey(ctx context.Context, key string) (domain.Agency, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+agencyCols+` FROM agencies WHERE idempotency_key=?`, key)
	return scanAgency(row.Scan)
}

func (r Repo) ListAgencies(ctx context.Context, workspaceID string) ([]domain.Agency, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+agencyCols+` FROM agencies WHERE workspace_id=? ORDER BY created_at DESC, id DESC`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Agency
	for rows.Next() {
		a, err := scanAgency(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// WorkspaceDirectory adapts agency lookups to the handle checker's
// Directory interface for a single workspace.
type WorkspaceDirectory struct {
	Repo        Repo
	WorkspaceID string
}

func (d WorkspaceDirectory) HandleExists(ctx context.Context, handle string) (bool, error) {
	var one int
	err := d.Repo.DB.QueryRowContext(ctx, `SELECT 1 FROM agencies WHERE workspace_id=? AND handle=? LIMIT 1`, d.WorkspaceID, handle).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// --- projects ---

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO projects(id,workspace_id,agency_id,title,status,budget_total_cents,budget_allocated_cents,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.WorkspaceID, nullableStringPtr(p.AgencyID), p.Title, p.Status, int64(p.BudgetTotal), int64(p.BudgetAllocated), p.CreatedAt, p.UpdatedAt)
	return err
}

func scanProject(scan func(dest ...any) error) (domain.Project, error) {
	var p domain.Project
	var agencyID sql.NullString
	var total, allocated int64
	err := scan(&p.ID, &p.WorkspaceID, &agencyID, &p.Title, &p.Status, &total, &allocated, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if agencyID.Valid {
		p.AgencyID = &agencyID.String
	}
	p.BudgetTotal = money.Cents(total)
	p.BudgetAllocated = money.Cents(allocated)
	return p, nil
}

const projectCols = `id,workspace_id,agency_id,title,status,budget_total_cents,budget_allocated_cents,created_at,updated_at`

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id=?`, id)
	return scanProject(row.Scan)
}

// GetProjectTx reads a project inside a transaction; the budget check
// must see the row the same transaction will update.
func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id string) (domain.Project, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id=?`, id)
	return scanProject(row.Scan)
}

func (r Repo) ListProjects(ctx context.Context, workspaceID string) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectCols+` FROM projects WHERE workspace_id=? ORDER BY created_at DESC, id DESC`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdateProjectStatus(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustProjectAllocation moves the allocated amount by delta (positive
// on task creation, negative on cancellation) within the caller's tx.
func (r Repo) AdjustProjectAllocation(ctx context.Context, tx *sql.Tx, id string, delta money.Cents, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET budget_allocated_cents=budget_allocated_cents+?, updated_at=? WHERE id=?`,
		int64(delta), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- tasks ---

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(id,project_id,title,description,status,assignee_id,cost_cents,created_at,updated_at,completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, t.Title, nullable(t.Description), t.Status, nullableStringPtr(t.AssigneeID), int64(t.Cost),
		t.CreatedAt, t.UpdatedAt, nullableStringPtr(t.CompletedAt))
	return err
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, assignee_id=?, cost_cents=?, updated_at=?, completed_at=? WHERE id=?`,
		t.Title, nullable(t.Description), t.Status, nullableStringPtr(t.AssigneeID), int64(t.Cost), t.UpdatedAt, nullableStringPtr(t.CompletedAt), t.ID)
	return err
}

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var description, assigneeID, completedAt sql.NullString
	var cost int64
	err := scan(&t.ID, &t.ProjectID, &t.Title, &description, &t.Status, &assigneeID, &cost, &t.CreatedAt, &t.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if description.Valid {
		t.Description = description.String
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	t.Cost = money.Cents(cost)
	return t, nil
}

const taskCols = `id,project_id,title,description,status,assignee_id,cost_cents,created_at,updated_at,completed_at`

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

type TaskFilters struct {
	ProjectID       string
	Status          string
	AssigneeID      string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskCols + ` FROM tasks ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// SumTaskCosts totals the cost of non-canceled tasks for a project
// inside the caller's tx. Used to cross-check the stored allocation.
func (r Repo) SumTaskCosts(ctx context.Context, tx *sql.Tx, projectID string) (money.Cents, error) {
	var sum int64
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(cost_cents),0) FROM tasks WHERE project_id=? AND status != 'canceled'`, projectID).Scan(&sum)
	return money.Cents(sum), err
}

// --- contracts ---

func (r Repo) InsertContract(ctx context.Context, tx *sql.Tx, c domain.Contract) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO contracts(id,project_id,task_id,client_id,contractor_id,amount_cents,status,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.ProjectID, nullableStringPtr(c.TaskID), c.ClientID, c.ContractorID, int64(c.Amount), c.Status, c.CreatedAt, c.UpdatedAt)
	return err
}

func scanContract(scan func(dest ...any) error) (domain.Contract, error) {
	var c domain.Contract
	var taskID sql.NullString
	var amount int64
	err := scan(&c.ID, &c.ProjectID, &taskID, &c.ClientID, &c.ContractorID, &amount, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if taskID.Valid {
		c.TaskID = &taskID.String
	}
	c.Amount = money.Cents(amount)
	return c, nil
}

const contractCols = `id,project_id,task_id,client_id,contractor_id,amount_cents,status,created_at,updated_at`

func (r Repo) GetContract(ctx context.Context, id string) (domain.Contract, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+contractCols+` FROM contracts WHERE id=?`, id)
	return scanContract(row.Scan)
}

func (r Repo) ListContracts(ctx context.Context, projectID string) ([]domain.Contract, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+contractCols+` FROM contracts WHERE project_id=? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Contract
	for rows.Next() {
		c, err := scanContract(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateContractStatus(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE contracts SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- wallets ---

func (r Repo) EnsureWalletAccount(ctx context.Context, tx *sql.Tx, acct domain.WalletAccount) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO wallet_accounts(id,workspace_id,owner_id,balance_cents,created_at) VALUES (?,?,?,?,?)
ON CONFLICT(workspace_id,owner_id) DO NOTHING`,
		acct.ID, acct.WorkspaceID, acct.OwnerID, int64(acct.Balance), acct.CreatedAt)
	return err
}

func (r Repo) GetWalletAccount(ctx context.Context, workspaceID, ownerID string) (domain.WalletAccount, error) {
	var a domain.WalletAccount
	var balance int64
	err := r.DB.QueryRowContext(ctx, `SELECT id,workspace_id,owner_id,balance_cents,created_at FROM wallet_accounts WHERE workspace_id=? AND owner_id=?`,
		workspaceID, ownerID).Scan(&a.ID, &a.WorkspaceID, &a.OwnerID, &balance, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.Balance = money.Cents(balance)
	return a, nil
}

func (r Repo) GetWalletAccountTx(ctx context.Context, tx *sql.Tx, workspaceID, ownerID string) (domain.WalletAccount, error) {
	var a domain.WalletAccount
	var balance int64
	err := tx.QueryRowContext(ctx, `SELECT id,workspace_id,owner_id,balance_cents,created_at FROM wallet_accounts WHERE workspace_id=? AND owner_id=?`,
		workspaceID, ownerID).Scan(&a.ID, &a.WorkspaceID, &a.OwnerID, &balance, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.Balance = money.Cents(balance)
	return a, nil
}

// AdjustWalletBalance applies delta and records the matching entry.
func (r Repo) AdjustWalletBalance(ctx context.Context, tx *sql.Tx, accountID string, delta money.Cents, refKind, refID, createdAt string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_accounts SET balance_cents=balance_cents+? WHERE id=?`, int64(delta), accountID); err != nil {
		return err
	}
	kind := "credit"
	amount := delta
	if delta < 0 {
		kind = "debit"
		amount = -delta
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO wallet_entries(account_id,kind,amount_cents,ref_kind,ref_id,created_at) VALUES (?,?,?,?,?,?)`,
		accountID, kind, int64(amount), nullable(refKind), nullable(refID), createdAt)
	return err
}

func (r Repo) ListWalletEntries(ctx context.Context, accountID string, limit int) ([]domain.WalletEntry, error) {
	query := `SELECT id,account_id,kind,amount_cents,ref_kind,ref_id,created_at FROM wallet_entries WHERE account_id=? ORDER BY id DESC`
	args := []any{accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WalletEntry
	for rows.Next() {
		var e domain.WalletEntry
		var refKind, refID sql.NullString
		var amount int64
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &amount, &refKind, &refID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if refKind.Valid {
			e.RefKind = refKind.String
		}
		if refID.Valid {
			e.RefID = refID.String
		}
		e.Amount = money.Cents(amount)
		res = append(res, e)
	}
	return res, rows.Err()
}

// --- events ---

func (r Repo) LatestEvents(ctx context.Context, limit int, workspaceID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, workspaceID, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, workspaceID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if workspaceID != "" {
		clauses = append(clauses, "workspace_id=?")
		args = append(args, workspaceID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,workspace_id,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var workspace, entity, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &workspace, &e.EntityKind, &entity, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if workspace.Valid {
			e.WorkspaceID = workspace.String
		}
		if entity.Valid {
			e.EntityID = entity.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the most recent event ID for a workspace.
func (r Repo) LatestEventID(ctx context.Context, workspaceID string) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events WHERE workspace_id=?`, workspaceID)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// --- helpers ---

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
