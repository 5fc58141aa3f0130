package domain

import "giglane/internal/money"

type Workspace struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status" enum:"active,archived"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Agency struct {
	ID             string `json:"id"`
	WorkspaceID    string `json:"workspace_id"`
	Handle         string `json:"handle"`
	Name           string `json:"name"`
	AgencyType     string `json:"agency_type"`
	LogoURL        string `json:"logo_url,omitempty"`
	OwnerEmail     string `json:"owner_email"`
	IdempotencyKey string `json:"-"`
	CreatedBy      string `json:"created_by"`
	CreatedAt      string `json:"created_at" format:"date-time"`
}

type Project struct {
	ID              string      `json:"id"`
	WorkspaceID     string      `json:"workspace_id"`
	AgencyID        *string     `json:"agency_id,omitempty"`
	Title           string      `json:"title"`
	Status          string      `json:"status" enum:"active,paused,completed,archived"`
	BudgetTotal     money.Cents `json:"budget_total_cents"`
	BudgetAllocated money.Cents `json:"budget_allocated_cents"`
	CreatedAt       string      `json:"created_at" format:"date-time"`
	UpdatedAt       string      `json:"updated_at" format:"date-time"`
}

type Task struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Status      string      `json:"status" enum:"open,in_progress,review,done,canceled"`
	AssigneeID  *string     `json:"assignee_id,omitempty"`
	Cost        money.Cents `json:"cost_cents"`
	CreatedAt   string      `json:"created_at" format:"date-time"`
	UpdatedAt   string      `json:"updated_at" format:"date-time"`
	CompletedAt *string     `json:"completed_at,omitempty" format:"date-time"`
}

type Contract struct {
	ID           string      `json:"id"`
	ProjectID    string      `json:"project_id"`
	TaskID       *string     `json:"task_id,omitempty"`
	ClientID     string      `json:"client_id"`
	ContractorID string      `json:"contractor_id"`
	Amount       money.Cents `json:"amount_cents"`
	Status       string      `json:"status" enum:"draft,sent,accepted,declined,withdrawn,completed"`
	CreatedAt    string      `json:"created_at" format:"date-time"`
	UpdatedAt    string      `json:"updated_at" format:"date-time"`
}

type WalletAccount struct {
	ID          string      `json:"id"`
	WorkspaceID string      `json:"workspace_id"`
	OwnerID     string      `json:"owner_id"`
	Balance     money.Cents `json:"balance_cents"`
	CreatedAt   string      `json:"created_at" format:"date-time"`
}

type WalletEntry struct {
	ID        int64       `json:"id"`
	AccountID string      `json:"account_id"`
	Kind      string      `json:"kind" enum:"credit,debit"`
	Amount    money.Cents `json:"amount_cents"`
	RefKind   string      `json:"ref_kind,omitempty"`
	RefID     string      `json:"ref_id,omitempty"`
	CreatedAt string      `json:"created_at" format:"date-time"`
}

type Event struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts" format:"date-time"`
	Type        string `json:"type"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id,omitempty"`
	ActorID     string `json:"actor_id"`
	Payload     string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
