package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"giglane/internal/domain"
	"giglane/internal/engine"
	"giglane/internal/ledger"
	"giglane/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	Logger   *zap.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"budget_exceeded"`
	Message string         `json:"message" example:"budget exceeded: 50.00 remaining, 100.00 proposed (over by 50.00)"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Giglane API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(requestLogger(logger))
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Giglane API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerWorkspaces(group, cfg.Engine)
	registerHandles(group, cfg.Engine)
	registerAgencies(group, cfg.Engine)
	registerProjects(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerContracts(group, cfg.Engine)
	registerWallets(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerKeys(group, cfg.Engine)
	registerDevAuth(group, cfg.Auth)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var exceeded *ledger.ExceededError
	if errors.As(err, &exceeded) {
		return newAPIError(http.StatusUnprocessableEntity, "budget_exceeded", err.Error(), map[string]any{
			"remaining": exceeded.Remaining.String(),
			"proposed":  exceeded.Proposed.String(),
			"over_by":   exceeded.OverBy.String(),
		})
	}
	if errors.Is(err, engine.ErrHandleTaken) {
		return newAPIError(http.StatusConflict, "handle_taken", err.Error(), nil)
	}
	if errors.Is(err, engine.ErrInsufficientFunds) {
		return newAPIError(http.StatusUnprocessableEntity, "insufficient_funds", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "transition"):
		return newAPIError(http.StatusConflict, "invalid_transition", msg, nil)
	case strings.Contains(lowered, "rejected"),
		strings.Contains(lowered, "invalid"),
		strings.Contains(lowered, "unknown"),
		strings.Contains(lowered, "must"),
		strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Giglane API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerWorkspaces(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-workspace",
		Method:        http.MethodPost,
		Path:          "/workspaces",
		Summary:       "Create workspace",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateWorkspaceRequest `json:"body"`
	}) (*struct {
		Body WorkspaceResponse `json:"body"`
	}, error) {
		if input.Body.ID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "id is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.InitWorkspace(ctx, input.Body.ID, input.Body.Name, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkspaceResponse `json:"body"`
		}{Body: workspaceResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workspaces",
		Method:      http.MethodGet,
		Path:        "/workspaces",
		Summary:     "List workspaces",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []WorkspaceResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListWorkspaces(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]WorkspaceResponse, 0, len(items))
		for _, w := range items {
			out = append(out, workspaceResponse(w))
		}
		return &struct {
			Body []WorkspaceResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-workspace",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}",
		Summary:     "Get workspace",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body WorkspaceResponse `json:"body"`
	}, error) {
		w, err := e.Repo.GetWorkspace(ctx, input.WorkspaceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkspaceResponse `json:"body"`
		}{Body: workspaceResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-workspace",
		Method:      http.MethodPost,
		Path:        "/workspaces/{workspace_id}/archive",
		Summary:     "Archive workspace",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body WorkspaceResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.ArchiveWorkspace(ctx, input.WorkspaceID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkspaceResponse `json:"body"`
		}{Body: workspaceResponse(w)}, nil
	})
}

func registerHandles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "check-handle",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/handles/{candidate}",
		Summary:     "Check handle availability",
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		Candidate   string `path:"candidate"`
	}) (*struct {
		Body HandleCheckResponse `json:"body"`
	}, error) {
		res := e.CheckHandle(ctx, input.WorkspaceID, input.Candidate)
		return &struct {
			Body HandleCheckResponse `json:"body"`
		}{Body: handleCheckResponse(res)}, nil
	})
}

func registerAgencies(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-agency",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspace_id}/agencies",
		Summary:       "Create agency",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID    string `path:"workspace_id"`
		IdempotencyKey string `header:"Idempotency-Key"`
		Body           CreateAgencyRequest
	}) (*struct {
		Body AgencyResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var logo []byte
		if input.Body.LogoBase64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(input.Body.LogoBase64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "logoBase64 is not valid base64", nil)
			}
			logo = decoded
		}
		a, err := e.CreateAgency(ctx, engine.AgencyCreateOptions{
			WorkspaceID:    input.WorkspaceID,
			Name:           input.Body.Name,
			Handle:         input.Body.Username,
			AgencyType:     input.Body.AgencyType,
			OwnerEmail:     input.Body.OwnerEmail,
			LogoFilename:   input.Body.LogoFilename,
			Logo:           logo,
			IdempotencyKey: input.IdempotencyKey,
			ActorID:        actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AgencyResponse `json:"body"`
		}{Body: agencyResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-agencies",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/agencies",
		Summary:     "List agencies",
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body []AgencyResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListAgencies(ctx, input.WorkspaceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []AgencyResponse `json:"body"`
		}{Body: mapAgencies(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-agency",
		Method:      http.MethodGet,
		Path:        "/agencies/{agency_id}",
		Summary:     "Get agency",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AgencyID string `path:"agency_id"`
	}) (*struct {
		Body AgencyResponse `json:"body"`
	}, error) {
		a, err := e.Repo.GetAgency(ctx, input.AgencyID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AgencyResponse `json:"body"`
		}{Body: agencyResponse(a)}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspace_id}/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		Body        CreateProjectRequest
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		total, err := parseAmount(input.Body.BudgetTotal, "budget_total")
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			WorkspaceID: input.WorkspaceID,
			AgencyID:    input.Body.AgencyID,
			Title:       input.Body.Title,
			BudgetTotal: total,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body []ProjectResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListProjects(ctx, input.WorkspaceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ProjectResponse `json:"body"`
		}{Body: mapProjects(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project-budget",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/budget",
		Summary:     "Project budget snapshot",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body BudgetResponse `json:"body"`
	}, error) {
		report, err := e.ProjectBudget(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BudgetResponse `json:"body"`
		}{Body: budgetResponse(report)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-project-status",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/status",
		Summary:     "Set project status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      struct {
			Status string `json:"status" enum:"active,paused,completed,archived"`
		}
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.SetProjectStatus(ctx, input.ProjectID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      CreateTaskRequest
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		cost, err := parseAmount(input.Body.Cost, "cost")
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			ProjectID:   input.ProjectID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			AssigneeID:  input.Body.AssigneeID,
			Cost:        cost,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: taskResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Status    string `query:"status"`
		Assignee  string `query:"assignee"`
		Limit     int    `query:"limit"`
	}) (*struct {
		Body []TaskResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListTasks(ctx, repo.TaskFilters{
			ProjectID:  input.ProjectID,
			Status:     input.Status,
			AssigneeID: input.Assignee,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []TaskResponse `json:"body"`
		}{Body: mapTasks(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: taskResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-status",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}/status",
		Summary:     "Set task status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body   struct {
			Status string `json:"status" enum:"in_progress,review,done,canceled"`
		}
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.SetTaskStatus(ctx, input.TaskID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: taskResponse(t)}, nil
	})
}

func registerContracts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-contract",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/contracts",
		Summary:       "Create contract",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      CreateContractRequest
	}) (*struct {
		Body ContractResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		amount, err := parseAmount(input.Body.Amount, "amount")
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		c, err := e.CreateContract(ctx, engine.ContractCreateOptions{
			ProjectID:    input.ProjectID,
			TaskID:       input.Body.TaskID,
			ClientID:     input.Body.ClientID,
			ContractorID: input.Body.ContractorID,
			Amount:       amount,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ContractResponse `json:"body"`
		}{Body: contractResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-contracts",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/contracts",
		Summary:     "List contracts",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []ContractResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListContracts(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ContractResponse `json:"body"`
		}{Body: mapContracts(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-contract-status",
		Method:      http.MethodPatch,
		Path:        "/contracts/{contract_id}/status",
		Summary:     "Set contract status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ContractID string `path:"contract_id"`
		Body       struct {
			Status string `json:"status" enum:"sent,accepted,declined,withdrawn,completed"`
		}
	}) (*struct {
		Body ContractResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.SetContractStatus(ctx, input.ContractID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ContractResponse `json:"body"`
		}{Body: contractResponse(c)}, nil
	})
}

func registerWallets(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-wallet",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/wallets/{owner_id}",
		Summary:     "Get wallet account",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		OwnerID     string `path:"owner_id"`
	}) (*struct {
		Body WalletResponse `json:"body"`
	}, error) {
		a, err := e.Repo.GetWalletAccount(ctx, input.WorkspaceID, input.OwnerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WalletResponse `json:"body"`
		}{Body: walletResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "deposit-wallet",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspace_id}/wallets/{owner_id}/deposits",
		Summary:       "Deposit into wallet",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		OwnerID     string `path:"owner_id"`
		Body        struct {
			Amount string `json:"amount" example:"300.00"`
		}
	}) (*struct {
		Body WalletResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		amount, err := parseAmount(input.Body.Amount, "amount")
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		a, err := e.Deposit(ctx, input.WorkspaceID, input.OwnerID, amount, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WalletResponse `json:"body"`
		}{Body: walletResponse(a)}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/events",
		Summary:     "List events",
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		Type        string `query:"type"`
		EntityKind  string `query:"entity_kind"`
		EntityID    string `query:"entity_id"`
		Limit       int    `query:"limit"`
		Cursor      int64  `query:"cursor"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 || limit > 500 {
			limit = 100
		}
		items, err := e.Repo.LatestEventsFrom(ctx, limit, input.Cursor, input.WorkspaceID, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(items)}, nil
	})
}

func registerKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-key",
		Method:        http.MethodPost,
		Path:          "/keys",
		Summary:       "Create API key",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			ActorID string `json:"actor_id"`
			Name    string `json:"name,omitempty"`
		}
	}) (*struct {
		Body struct {
			ID      string `json:"id"`
			ActorID string `json:"actor_id"`
			Key     string `json:"key"`
		} `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if input.Body.ActorID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		raw := uuid.New().String() + uuid.New().String()
		key := domain.APIKey{
			ID:      uuid.New().String(),
			ActorID: input.Body.ActorID,
			Name:    input.Body.Name,
			KeyHash: repo.HashAPIKey(raw),
		}
		if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				ID      string `json:"id"`
				ActorID string `json:"actor_id"`
				Key     string `json:"key"`
			} `json:"body"`
		}{}
		resp.Body.ID = key.ID
		resp.Body.ActorID = key.ActorID
		resp.Body.Key = raw
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-keys",
		Method:      http.MethodGet,
		Path:        "/keys",
		Summary:     "List API keys",
	}, func(ctx context.Context, input *struct {
		ActorID string `query:"actor_id"`
	}) (*struct {
		Body []domain.APIKey `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		keys, err := e.Repo.ListAPIKeys(ctx, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.APIKey `json:"body"`
		}{Body: keys}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-key",
		Method:      http.MethodDelete,
		Path:        "/keys/{key_id}",
		Summary:     "Revoke API key",
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"key_id"`
	}) (*struct{}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteAPIKey(ctx, input.KeyID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "Issue a development JWT",
	}, func(ctx context.Context, input *struct {
		Body struct {
			ActorID string `json:"actor_id"`
		}
	}) (*struct {
		Body struct {
			Token string `json:"token"`
		} `json:"body"`
	}, error) {
		if authCfg.JWTSecret == "" {
			return nil, newAPIError(http.StatusNotFound, "not_found", "dev login disabled", nil)
		}
		if input.Body.ActorID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		now := time.Now()
		claims := jwtClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   input.Body.ActorID,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(authCfg.JWTSecret))
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Token string `json:"token"`
			} `json:"body"`
		}{}
		resp.Body.Token = token
		return resp, nil
	})
}
