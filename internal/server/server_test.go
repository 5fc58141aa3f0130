package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"giglane/internal/config"
	"giglane/internal/db"
	"giglane/internal/engine"
	"giglane/internal/migrate"
	"giglane/internal/storage"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

var actorHeaders = map[string]string{"X-Actor-Id": "tester"}

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := storage.NewFSStore(db.BlobRoot(workspace))
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	cfg := config.Default("ws-1")
	e := engine.New(conn, cfg, store)
	if _, err := e.InitWorkspace(context.Background(), "ws-1", "test", "tester"); err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth:     AuthConfig{JWTSecret: "test-secret", AllowLegacyActorHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
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

func TestAgencyCreationFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/workspaces/ws-1/handles/garden", nil, actorHeaders)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("check handle: %d %s", res.StatusCode, string(data))
	}
	var check HandleCheckResponse
	if err := json.Unmarshal(data, &check); err != nil {
		t.Fatalf("unmarshal check: %v", err)
	}
	if !check.Available || check.Reason != "ok" {
		t.Fatalf("expected available, got %+v", check)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/workspaces/ws-1/agencies", map[string]any{
		"name":             "Garden Agency",
		"username":         "garden",
		"agencyType":       "va",
		"ownerAgencyEmail": "hello@garden.com",
	}, actorHeaders)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create agency: %d %s", res.StatusCode, string(data))
	}
	var created AgencyResponse
	_ = json.Unmarshal(data, &created)
	if created.AgencyType != "va_collective" {
		t.Fatalf("alias not resolved: %s", created.AgencyType)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/workspaces/ws-1/handles/garden", nil, actorHeaders)
	_ = json.Unmarshal(data, &check)
	if check.Available || check.Reason != "taken" {
		t.Fatalf("expected taken after create, got %+v", check)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/workspaces/ws-1/agencies", map[string]any{
		"name":             "Copycat",
		"username":         "garden",
		"agencyType":       "va",
		"ownerAgencyEmail": "copy@garden.com",
	}, actorHeaders)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	_ = json.Unmarshal(data, &envelope)
	if envelope.Error.Code != "handle_taken" {
		t.Fatalf("code = %s", envelope.Error.Code)
	}
}

func TestHandleCheckReasonsOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	cases := map[string]string{
		"ab":    "too_short",
		"bad!x": "invalid_chars",
	}
	for candidate, want := range cases {
		res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/workspaces/ws-1/handles/"+candidate, nil, actorHeaders)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%q: %d %s", candidate, res.StatusCode, string(data))
		}
		var check HandleCheckResponse
		_ = json.Unmarshal(data, &check)
		if string(check.Reason) != want {
			t.Fatalf("%q: reason = %s, want %s", candidate, check.Reason, want)
		}
	}
}

func TestBudgetExceededEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/workspaces/ws-1/projects", map[string]any{
		"title":        "Revamp",
		"budget_total": "500.00",
	}, actorHeaders)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project: %d %s", res.StatusCode, string(data))
	}
	var project ProjectResponse
	_ = json.Unmarshal(data, &project)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects/"+project.ID+"/tasks", map[string]any{
		"title": "big chunk",
		"cost":  "450.00",
	}, actorHeaders)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects/"+project.ID+"/tasks", map[string]any{
		"title": "too big",
		"cost":  "100.00",
	}, actorHeaders)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	_ = json.Unmarshal(data, &envelope)
	if envelope.Error.Code != "budget_exceeded" {
		t.Fatalf("code = %s", envelope.Error.Code)
	}
	if envelope.Error.Details["over_by"] != "50.00" {
		t.Fatalf("details = %v", envelope.Error.Details)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects/"+project.ID+"/budget", nil, actorHeaders)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("budget: %d %s", res.StatusCode, string(data))
	}
	var budget BudgetResponse
	_ = json.Unmarshal(data, &budget)
	if budget.Allocated != "450.00" || budget.Remaining != "50.00" {
		t.Fatalf("budget = %+v", budget)
	}
	if budget.Tier != "warning" {
		t.Fatalf("tier = %s", budget.Tier)
	}
}

func TestRequestsRequireAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/workspaces", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}
	// health stays open
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: %d", res.StatusCode)
	}
}

func TestDevLoginIssuesUsableToken(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/auth/dev/login", map[string]any{
		"actor_id": "dev-user",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login: %d %s", res.StatusCode, string(data))
	}
	var login struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(data, &login)
	if login.Token == "" {
		t.Fatal("empty token")
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/workspaces", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("authed list: %d %s", res.StatusCode, string(data))
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/keys", map[string]any{
		"actor_id": "robot-1",
		"name":     "ci",
	}, actorHeaders)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create key: %d %s", res.StatusCode, string(data))
	}
	var created struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	_ = json.Unmarshal(data, &created)
	if created.Key == "" {
		t.Fatal("raw key missing from create response")
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/workspaces", nil, map[string]string{
		"X-Api-Key": created.Key,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("api key auth: %d %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v1/keys/"+created.ID, nil, actorHeaders)
	if res.StatusCode >= 300 {
		t.Fatalf("revoke: %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/workspaces", nil, map[string]string{
		"X-Api-Key": created.Key,
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked key still works: %d", res.StatusCode)
	}
}

func TestInvalidTransitionIsConflict(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/workspaces/ws-1/projects", map[string]any{
		"title":        "P",
		"budget_total": "100.00",
	}, actorHeaders)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project: %d %s", res.StatusCode, string(data))
	}
	var project ProjectResponse
	_ = json.Unmarshal(data, &project)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects/"+project.ID+"/tasks", map[string]any{
		"title": "t",
	}, actorHeaders)
	var task TaskResponse
	_ = json.Unmarshal(data, &task)

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/tasks/"+task.ID+"/status", map[string]any{
		"status": "done",
	}, actorHeaders)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", res.StatusCode, string(data))
	}
}
