package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/application/service"
	"github.com/workflowos/approval-engine/internal/application/workflow"
	"github.com/workflowos/approval-engine/internal/domain/entity"
	"github.com/workflowos/approval-engine/internal/infrastructure/identity"
	"github.com/workflowos/approval-engine/internal/infrastructure/persistence/memory"
	"github.com/workflowos/approval-engine/internal/infrastructure/persistence/seed"
	"github.com/workflowos/approval-engine/pkg/metrics"
)

const testSecret = "test-secret-32-bytes-should-be-long-enough"

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixture struct {
	router   *gin.Engine
	resolver *identity.TokenResolver
}

func newFixture(t *testing.T, store port.WorkflowStore) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	directory, err := identity.NewDirectory(seed.Users())
	require.NoError(t, err)
	resolver := identity.NewTokenResolver(testSecret, identity.WithDirectory(directory))

	m := metrics.New()
	reg := prometheus.NewRegistry()
	m.Register(reg)

	workflows := service.NewWorkflowService(store, workflow.NewEngine(), nopLogger{})
	server := NewServer(ServerConfig{Mode: gin.TestMode}, Deps{
		Workflows:    workflows,
		Directory:    service.NewDirectoryService(directory, nopLogger{}),
		Resolver:     resolver,
		TrustHeaders: true,
		Gatherer:     reg,
		Recorder:     m,
	}, nopLogger{})

	return &fixture{router: server.Router(), resolver: resolver}
}

func seededFixture(t *testing.T) *fixture {
	return newFixture(t, memory.NewStore(memory.WithSeed(seed.Workflows)))
}

func (f *fixture) token(t *testing.T, id string) string {
	t.Helper()
	token, err := f.resolver.IssueToken(entity.Identity{ID: id}, time.Minute)
	require.NoError(t, err)
	return token
}

// do sends a request as actor (empty for anonymous) using a bearer token
func (f *fixture) do(t *testing.T, actor, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("Authorization", "Bearer "+f.token(t, actor))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func decodeWorkflow(t *testing.T, w *httptest.ResponseRecorder) entity.Workflow {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.True(t, env.Success)
	var wf entity.Workflow
	require.NoError(t, json.Unmarshal(env.Data, &wf))
	return wf
}

type problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
}

func requireProblem(t *testing.T, w *httptest.ResponseRecorder, status int, typ string) problem {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), problemContentType))
	var p problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, typ, p.Type)
	assert.Equal(t, status, p.Status)
	return p
}

func TestHealth(t *testing.T) {
	f := seededFixture(t)
	w := f.do(t, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestAuthentication(t *testing.T) {
	f := seededFixture(t)

	w := f.do(t, "", http.MethodGet, "/api/v1/workflows", nil)
	requireProblem(t, w, http.StatusUnauthorized, "unauthenticated")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	requireProblem(t, w, http.StatusUnauthorized, "unauthenticated")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set(ActorHeader, "ghost")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	requireProblem(t, w, http.StatusUnauthorized, "unauthenticated")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set(ActorHeader, "appr-001")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"approver"`)
}

func TestLifecycleOverHTTP(t *testing.T) {
	f := seededFixture(t)

	w := f.do(t, "1", http.MethodPost, "/api/v1/workflows", map[string]string{
		"title":       "Laptop",
		"description": "New laptop",
		"category":    "Hardware",
		"priority":    "medium",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeWorkflow(t, w)
	assert.Equal(t, entity.StatusDraft, created.Status)
	base := "/api/v1/workflows/" + created.ID

	w = f.do(t, "1", http.MethodPatch, base, map[string]string{"title": "Laptop Pro"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Laptop Pro", decodeWorkflow(t, w).Title)

	w = f.do(t, "1", http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entity.StatusSubmitted, decodeWorkflow(t, w).Status)

	w = f.do(t, "appr-001", http.MethodGet, base+"/actions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"approve"`)

	w = f.do(t, "appr-001", http.MethodPost, base+"/queue", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entity.StatusPending, decodeWorkflow(t, w).Status)

	w = f.do(t, "appr-001", http.MethodPost, base+"/reject", nil)
	requireProblem(t, w, http.StatusBadRequest, "validation_error")

	w = f.do(t, "appr-001", http.MethodPost, base+"/reject", CommentRequest{Comment: "Budget exceeded"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rejected := decodeWorkflow(t, w)
	assert.Equal(t, entity.StatusRejected, rejected.Status)
	assert.Equal(t, "appr-001", rejected.ApproverID)
	require.NotEmpty(t, rejected.Actions)
	assert.Equal(t, "Budget exceeded", rejected.LastAction().Comment)

	w = f.do(t, "appr-001", http.MethodPost, base+"/approve", nil)
	requireProblem(t, w, http.StatusConflict, "invalid_transition")
}

func TestErrorMapping(t *testing.T) {
	f := seededFixture(t)

	// requester cannot approve
	w := f.do(t, "1", http.MethodPost, "/api/v1/workflows/wf-003/approve", nil)
	requireProblem(t, w, http.StatusForbidden, "forbidden")

	w = f.do(t, "appr-001", http.MethodGet, "/api/v1/workflows/wf-999", nil)
	requireProblem(t, w, http.StatusNotFound, "workflow_not_found")

	// wf-001 is approved
	w = f.do(t, "1", http.MethodPost, "/api/v1/workflows/wf-001/submit", nil)
	requireProblem(t, w, http.StatusConflict, "invalid_state")

	w = f.do(t, "1", http.MethodPatch, "/api/v1/workflows/wf-003", map[string]string{})
	requireProblem(t, w, http.StatusBadRequest, "validation_error")

	w = f.do(t, "1", http.MethodPost, "/api/v1/workflows", map[string]string{"title": "x"})
	p := requireProblem(t, w, http.StatusBadRequest, "validation_error")
	assert.Contains(t, p.Detail, "description")

	w = f.do(t, "appr-001", http.MethodGet, "/api/v1/approvals/decisions?date=yesterday", nil)
	requireProblem(t, w, http.StatusBadRequest, "validation_error")
}

func TestProblemBody(t *testing.T) {
	f := seededFixture(t)

	w := f.do(t, "appr-001", http.MethodGet, "/api/v1/workflows/wf-999", nil)
	p := requireProblem(t, w, http.StatusNotFound, "workflow_not_found")
	assert.Equal(t, http.StatusText(http.StatusNotFound), p.Title)
	assert.Equal(t, "/api/v1/workflows/wf-999", p.Instance)
	assert.Contains(t, p.Detail, "wf-999")
}

func TestDeleteDraft(t *testing.T) {
	f := seededFixture(t)

	w := f.do(t, "1", http.MethodDelete, "/api/v1/workflows/wf-003", nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = f.do(t, "1", http.MethodGet, "/api/v1/workflows/wf-003", nil)
	requireProblem(t, w, http.StatusNotFound, "workflow_not_found")
}

func TestReadViews(t *testing.T) {
	f := seededFixture(t)

	w := f.do(t, "1", http.MethodGet, "/api/v1/workflows", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var mine []entity.Workflow
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.Len(t, mine, 3)

	w = f.do(t, "1", http.MethodGet, "/api/v1/workflows?status=draft", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var drafts []entity.Workflow
	require.NoError(t, json.Unmarshal(env.Data, &drafts))
	require.Len(t, drafts, 1)
	assert.Equal(t, "wf-003", drafts[0].ID)

	w = f.do(t, "appr-001", http.MethodGet, "/api/v1/workflows?approver=appr-001&status=rejected", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wf-002")
	assert.NotContains(t, w.Body.String(), "wf-001")

	w = f.do(t, "1", http.MethodGet, "/api/v1/workflows?status=DRAFT", nil)
	requireProblem(t, w, http.StatusBadRequest, "validation_error")

	w = f.do(t, "1", http.MethodGet, "/api/v1/approvals/pending", nil)
	requireProblem(t, w, http.StatusForbidden, "forbidden")

	w = f.do(t, "appr-001", http.MethodGet, "/api/v1/approvals/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())

	w = f.do(t, "1", http.MethodGet, "/api/v1/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":3`)

	w = f.do(t, "1", http.MethodGet, "/api/v1/statistics?identity=appr-001", nil)
	requireProblem(t, w, http.StatusForbidden, "forbidden")

	w = f.do(t, "1", http.MethodGet, "/api/v1/workflows?requester=1&approver=appr-001", nil)
	requireProblem(t, w, http.StatusBadRequest, "validation_error")
}

func TestUsers(t *testing.T) {
	f := seededFixture(t)

	w := f.do(t, "admin-001", http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hr@workflowos.com")

	w = f.do(t, "admin-001", http.MethodGet, "/api/v1/users?role=approver", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "user@workflowos.com")

	w = f.do(t, "admin-001", http.MethodGet, "/api/v1/users?role=owner", nil)
	requireProblem(t, w, http.StatusBadRequest, "validation_error")

	w = f.do(t, "appr-001", http.MethodGet, "/api/v1/users", nil)
	requireProblem(t, w, http.StatusForbidden, "forbidden")
}

type brokenStore struct {
	port.WorkflowStore
}

func (brokenStore) Load(context.Context) (*port.Snapshot, error) {
	return nil, errors.New("disk on fire")
}

func TestStorageFailureIsNotExposed(t *testing.T) {
	f := newFixture(t, brokenStore{})

	w := f.do(t, "appr-001", http.MethodGet, "/api/v1/workflows/wf-001", nil)
	p := requireProblem(t, w, http.StatusInternalServerError, "internal_error")
	assert.NotContains(t, p.Detail, "disk on fire")
}

func TestMetricsEndpoint(t *testing.T) {
	f := seededFixture(t)
	f.do(t, "appr-001", http.MethodGet, "/api/v1/workflows", nil)

	w := f.do(t, "", http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `approval_engine_http_requests_total{method="GET",route="/api/v1/workflows",status="200"} 1`)
}
