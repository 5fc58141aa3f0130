package giglanesdk

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Giglane HTTP API client.
type Client struct {
	BaseURL     string
	WorkspaceID string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, workspaceID string) *Client {
	return &Client{
		BaseURL:     baseURL,
		WorkspaceID: workspaceID,
		Timeout:     10 * time.Second,
	}
}

// Agency represents the API agency model.
type Agency struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Handle      string `json:"handle"`
	Name        string `json:"name"`
	AgencyType  string `json:"agency_type"`
	LogoURL     string `json:"logo_url,omitempty"`
	OwnerEmail  string `json:"owner_email"`
	CreatedAt   string `json:"created_at"`
}

// HandleCheck is the availability verdict for a handle candidate.
type HandleCheck struct {
	Candidate string `json:"candidate"`
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

// Project represents the API project model. Money fields are decimal
// strings like "500.00".
type Project struct {
	ID              string  `json:"id"`
	WorkspaceID     string  `json:"workspace_id"`
	AgencyID        *string `json:"agency_id,omitempty"`
	Title           string  `json:"title"`
	Status          string  `json:"status"`
	BudgetTotal     string  `json:"budget_total"`
	BudgetAllocated string  `json:"budget_allocated"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// Budget is the headroom report for a project.
type Budget struct {
	ProjectID string `json:"project_id"`
	Total     string `json:"total"`
	Allocated string `json:"allocated"`
	Remaining string `json:"remaining"`
	Tier      string `json:"tier"`
}

// Task represents the API task model.
type Task struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	Cost        string  `json:"cost"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// Contract represents the API contract model.
type Contract struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	TaskID       *string `json:"task_id,omitempty"`
	ClientID     string  `json:"client_id"`
	ContractorID string  `json:"contractor_id"`
	Amount       string  `json:"amount"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// Wallet represents a wallet account.
type Wallet struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	OwnerID     string `json:"owner_id"`
	Balance     string `json:"balance"`
	CreatedAt   string `json:"created_at"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CheckHandle returns the availability verdict for a candidate handle.
func (c *Client) CheckHandle(ctx context.Context, candidate string) (HandleCheck, error) {
	var resp HandleCheck
	endpoint := c.workspacePath(fmt.Sprintf("handles/%s", url.PathEscape(candidate)))
	err := c.do(ctx, http.MethodGet, endpoint, nil, nil, &resp)
	return resp, err
}

// CreateAgencyOptions carries the agency creation payload. Logo, when
// set, is uploaded as part of the creation pipeline. IdempotencyKey
// makes retries safe: a replay returns the originally created agency.
type CreateAgencyOptions struct {
	Name           string
	Handle         string
	AgencyType     string
	OwnerEmail     string
	Logo           []byte
	LogoFilename   string
	IdempotencyKey string
}

// CreateAgency creates an agency.
func (c *Client) CreateAgency(ctx context.Context, opts CreateAgencyOptions) (Agency, error) {
	body := map[string]any{
		"name":             opts.Name,
		"username":         opts.Handle,
		"agencyType":       opts.AgencyType,
		"ownerAgencyEmail": opts.OwnerEmail,
	}
	if len(opts.Logo) > 0 {
		body["logoBase64"] = base64.StdEncoding.EncodeToString(opts.Logo)
		body["logoFilename"] = opts.LogoFilename
	}
	var headers map[string]string
	if opts.IdempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": opts.IdempotencyKey}
	}
	var resp Agency
	err := c.do(ctx, http.MethodPost, c.workspacePath("agencies"), headers, body, &resp)
	return resp, err
}

// Agencies lists agencies in the workspace.
func (c *Client) Agencies(ctx context.Context) ([]Agency, error) {
	var resp []Agency
	err := c.do(ctx, http.MethodGet, c.workspacePath("agencies"), nil, nil, &resp)
	return resp, err
}

// CreateProject creates a project with a budget total like "500.00".
func (c *Client) CreateProject(ctx context.Context, title, budgetTotal, agencyID string) (Project, error) {
	body := map[string]any{
		"title":        title,
		"budget_total": budgetTotal,
	}
	if agencyID != "" {
		body["agency_id"] = agencyID
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, c.workspacePath("projects"), nil, body, &resp)
	return resp, err
}

// ProjectBudget returns the budget headroom report for a project.
func (c *Client) ProjectBudget(ctx context.Context, projectID string) (Budget, error) {
	var resp Budget
	endpoint := c.apiPath(fmt.Sprintf("projects/%s/budget", url.PathEscape(projectID)))
	err := c.do(ctx, http.MethodGet, endpoint, nil, nil, &resp)
	return resp, err
}

// CreateTask creates a task; cost is a decimal string like "40.00" and
// may be empty for a free task. Creation fails with a 422 when the cost
// does not fit the remaining project budget.
func (c *Client) CreateTask(ctx context.Context, projectID, title, cost string) (Task, error) {
	body := map[string]any{
		"title": title,
	}
	if cost != "" {
		body["cost"] = cost
	}
	var resp Task
	endpoint := c.apiPath(fmt.Sprintf("projects/%s/tasks", url.PathEscape(projectID)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, body, &resp)
	return resp, err
}

// SetTaskStatus moves a task through its lifecycle.
func (c *Client) SetTaskStatus(ctx context.Context, taskID, status string) (Task, error) {
	var resp Task
	endpoint := c.apiPath(fmt.Sprintf("tasks/%s/status", url.PathEscape(taskID)))
	err := c.do(ctx, http.MethodPatch, endpoint, nil, map[string]any{"status": status}, &resp)
	return resp, err
}

// CreateContract creates a draft contract; amount is a decimal string.
func (c *Client) CreateContract(ctx context.Context, projectID, clientID, contractorID, amount string) (Contract, error) {
	body := map[string]any{
		"client_id":     clientID,
		"contractor_id": contractorID,
		"amount":        amount,
	}
	var resp Contract
	endpoint := c.apiPath(fmt.Sprintf("projects/%s/contracts", url.PathEscape(projectID)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, body, &resp)
	return resp, err
}

// SetContractStatus moves a contract through its lifecycle. Setting
// "completed" settles the amount between the two wallets.
func (c *Client) SetContractStatus(ctx context.Context, contractID, status string) (Contract, error) {
	var resp Contract
	endpoint := c.apiPath(fmt.Sprintf("contracts/%s/status", url.PathEscape(contractID)))
	err := c.do(ctx, http.MethodPatch, endpoint, nil, map[string]any{"status": status}, &resp)
	return resp, err
}

// Wallet returns a wallet account by owner.
func (c *Client) Wallet(ctx context.Context, ownerID string) (Wallet, error) {
	var resp Wallet
	endpoint := c.workspacePath(fmt.Sprintf("wallets/%s", url.PathEscape(ownerID)))
	err := c.do(ctx, http.MethodGet, endpoint, nil, nil, &resp)
	return resp, err
}

// Deposit credits a wallet; amount is a decimal string like "300.00".
func (c *Client) Deposit(ctx context.Context, ownerID, amount string) (Wallet, error) {
	var resp Wallet
	endpoint := c.workspacePath(fmt.Sprintf("wallets/%s/deposits", url.PathEscape(ownerID)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, map[string]any{"amount": amount}, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	return c.EventsBefore(ctx, limit, 0)
}

// EventsBefore pages backwards through the log: cursor is the smallest
// event ID from the previous page, or 0 for the newest page.
func (c *Client) EventsBefore(ctx context.Context, limit int, cursor int64) ([]Event, error) {
	endpoint := c.workspacePath("events")
	sep := "?"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s%slimit=%d", endpoint, sep, limit)
		sep = "&"
	}
	if cursor > 0 {
		endpoint = fmt.Sprintf("%s%scursor=%d", endpoint, sep, cursor)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, headers map[string]string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) workspacePath(p string) string {
	workspace := url.PathEscape(c.WorkspaceID)
	return c.apiPath(fmt.Sprintf("workspaces/%s/%s", workspace, strings.TrimLeft(p, "/")))
}

func (c *Client) apiPath(p string) string {
	return "v1/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
