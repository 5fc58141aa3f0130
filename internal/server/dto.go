package server

import (
	"fmt"

	"giglane/internal/domain"
	"giglane/internal/engine"
	"giglane/internal/handle"
	"giglane/internal/money"
)

type CreateWorkspaceRequest struct {
	ID   string `json:"id" example:"acme"`
	Name string `json:"name,omitempty" example:"Acme Marketplace"`
}

type WorkspaceResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func workspaceResponse(w domain.Workspace) WorkspaceResponse {
	return WorkspaceResponse{ID: w.ID, Name: w.Name, Status: w.Status, CreatedAt: w.CreatedAt}
}

type CreateAgencyRequest struct {
	Name         string `json:"name" example:"Garden Agency"`
	Username     string `json:"username" example:"garden"`
	AgencyType   string `json:"agencyType" example:"va_collective"`
	LogoURL      string `json:"logoUrl,omitempty"`
	OwnerEmail   string `json:"ownerAgencyEmail" example:"hello@garden.com"`
	LogoBase64   string `json:"logoBase64,omitempty"`
	LogoFilename string `json:"logoFilename,omitempty" example:"logo.png"`
}

type AgencyResponse struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Handle      string `json:"handle"`
	Name        string `json:"name"`
	AgencyType  string `json:"agency_type"`
	LogoURL     string `json:"logo_url,omitempty"`
	OwnerEmail  string `json:"owner_email"`
	CreatedAt   string `json:"created_at"`
}

func agencyResponse(a domain.Agency) AgencyResponse {
	return AgencyResponse{
		ID:          a.ID,
		WorkspaceID: a.WorkspaceID,
		Handle:      a.Handle,
		Name:        a.Name,
		AgencyType:  a.AgencyType,
		LogoURL:     a.LogoURL,
		OwnerEmail:  a.OwnerEmail,
		CreatedAt:   a.CreatedAt,
	}
}

func mapAgencies(in []domain.Agency) []AgencyResponse {
	out := make([]AgencyResponse, 0, len(in))
	for _, a := range in {
		out = append(out, agencyResponse(a))
	}
	return out
}

type HandleCheckResponse struct {
	Candidate string        `json:"candidate"`
	Available bool          `json:"available"`
	Reason    handle.Reason `json:"reason" enum:"ok,too_short,invalid_chars,taken,check_failed"`
}

func handleCheckResponse(r handle.Result) HandleCheckResponse {
	return HandleCheckResponse{Candidate: r.Candidate, Available: r.Available, Reason: r.Reason}
}

type CreateProjectRequest struct {
	AgencyID    string `json:"agency_id,omitempty"`
	Title       string `json:"title" example:"Website revamp"`
	BudgetTotal string `json:"budget_total" example:"500.00"`
}

type ProjectResponse struct {
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

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:              p.ID,
		WorkspaceID:     p.WorkspaceID,
		AgencyID:        p.AgencyID,
		Title:           p.Title,
		Status:          p.Status,
		BudgetTotal:     p.BudgetTotal.String(),
		BudgetAllocated: p.BudgetAllocated.String(),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func mapProjects(in []domain.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(in))
	for _, p := range in {
		out = append(out, projectResponse(p))
	}
	return out
}

type BudgetResponse struct {
	ProjectID string `json:"project_id"`
	Total     string `json:"total"`
	Allocated string `json:"allocated"`
	Remaining string `json:"remaining"`
	Tier      string `json:"tier" enum:"healthy,warning,exhausted"`
}

func budgetResponse(r engine.BudgetReport) BudgetResponse {
	return BudgetResponse{
		ProjectID: r.ProjectID,
		Total:     r.Total.String(),
		Allocated: r.Allocated.String(),
		Remaining: r.Remaining.String(),
		Tier:      string(r.Tier),
	}
}

type CreateTaskRequest struct {
	Title       string `json:"title" example:"Design landing page"`
	Description string `json:"description,omitempty"`
	AssigneeID  string `json:"assignee_id,omitempty"`
	Cost        string `json:"cost,omitempty" example:"40.00"`
}

type TaskResponse struct {
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

func taskResponse(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		AssigneeID:  t.AssigneeID,
		Cost:        t.Cost.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func mapTasks(in []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(in))
	for _, t := range in {
		out = append(out, taskResponse(t))
	}
	return out
}

type CreateContractRequest struct {
	TaskID       string `json:"task_id,omitempty"`
	ClientID     string `json:"client_id"`
	ContractorID string `json:"contractor_id"`
	Amount       string `json:"amount" example:"200.00"`
}

type ContractResponse struct {
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

func contractResponse(c domain.Contract) ContractResponse {
	return ContractResponse{
		ID:           c.ID,
		ProjectID:    c.ProjectID,
		TaskID:       c.TaskID,
		ClientID:     c.ClientID,
		ContractorID: c.ContractorID,
		Amount:       c.Amount.String(),
		Status:       c.Status,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func mapContracts(in []domain.Contract) []ContractResponse {
	out := make([]ContractResponse, 0, len(in))
	for _, c := range in {
		out = append(out, contractResponse(c))
	}
	return out
}

type WalletResponse struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	OwnerID     string `json:"owner_id"`
	Balance     string `json:"balance"`
	CreatedAt   string `json:"created_at"`
}

func walletResponse(a domain.WalletAccount) WalletResponse {
	return WalletResponse{
		ID:          a.ID,
		WorkspaceID: a.WorkspaceID,
		OwnerID:     a.OwnerID,
		Balance:     a.Balance.String(),
		CreatedAt:   a.CreatedAt,
	}
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

func mapEvents(in []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(in))
	for _, e := range in {
		out = append(out, EventResponse{
			ID:         e.ID,
			TS:         e.TS,
			Type:       e.Type,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			ActorID:    e.ActorID,
			Payload:    e.Payload,
		})
	}
	return out
}

func parseAmount(raw, field string) (money.Cents, error) {
	if raw == "" {
		return 0, nil
	}
	c, err := money.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return c, nil
}
