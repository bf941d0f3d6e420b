package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/workflowos/approval-engine/internal/application/query"
	"github.com/workflowos/approval-engine/internal/application/service"
	"github.com/workflowos/approval-engine/internal/domain/entity"
	domainwf "github.com/workflowos/approval-engine/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflows service.WorkflowService
	directory service.DirectoryService
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(workflows service.WorkflowService, directory service.DirectoryService, logger Logger) *Handlers {
	return &Handlers{
		workflows: workflows,
		directory: directory,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// CommentRequest is the optional body of decision endpoints
type CommentRequest struct {
	Comment string `json:"comment"`
}

// ActionsResponse lists what the caller may do next
type ActionsResponse struct {
	ID       string             `json:"id"`
	Status   entity.Status      `json:"status"`
	Triggers []domainwf.Trigger `json:"triggers"`
}

// ListWorkflowsRequest represents query parameters for listing workflows
type ListWorkflowsRequest struct {
	Requester string `form:"requester"`
	Approver  string `form:"approver"`
	Status    string `form:"status"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// Me handles GET /api/v1/me
func (h *Handlers) Me(c *gin.Context) {
	actor, _ := actorFrom(c)
	ok(c, http.StatusOK, actor)
}

// CreateWorkflow handles POST /api/v1/workflows
func (h *Handlers) CreateWorkflow(c *gin.Context) {
	var input entity.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "request body must be a JSON object")
		return
	}

	actor, _ := actorFrom(c)
	w, err := h.workflows.CreateWorkflow(c.Request.Context(), actor, input)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, w)
}

// ListWorkflows handles GET /api/v1/workflows.
// Requesters without filters see their own workflows.
func (h *Handlers) ListWorkflows(c *gin.Context) {
	var req ListWorkflowsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	status := entity.Status(req.Status)
	if req.Status != "" && !status.IsValid() {
		badRequest(c, "status must be one of draft, submitted, pending, approved, rejected, completed")
		return
	}

	actor, _ := actorFrom(c)
	ctx := c.Request.Context()

	var (
		workflows []*entity.Workflow
		err       error
	)
	switch {
	case req.Requester != "" && req.Approver != "":
		badRequest(c, "requester and approver filters are mutually exclusive")
		return
	case req.Requester != "":
		workflows, err = h.workflows.ListByRequester(ctx, actor, req.Requester)
	case req.Approver != "":
		workflows, err = h.workflows.ListByApprover(ctx, actor, req.Approver)
	case actor.Is(entity.RoleRequester):
		workflows, err = h.workflows.ListByRequester(ctx, actor, actor.ID)
	default:
		workflows, err = h.workflows.ListAll(ctx, actor)
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if status != "" {
		workflows = query.ByStatus(workflows, status)
	}
	if workflows == nil {
		workflows = []*entity.Workflow{}
	}
	ok(c, http.StatusOK, workflows)
}

// GetWorkflow handles GET /api/v1/workflows/:id
func (h *Handlers) GetWorkflow(c *gin.Context) {
	actor, _ := actorFrom(c)
	w, err := h.workflows.GetWorkflow(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, w)
}

// AvailableActions handles GET /api/v1/workflows/:id/actions
func (h *Handlers) AvailableActions(c *gin.Context) {
	actor, _ := actorFrom(c)
	ctx := c.Request.Context()
	id := c.Param("id")

	w, err := h.workflows.GetWorkflow(ctx, actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	triggers, err := h.workflows.AvailableActions(ctx, actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if triggers == nil {
		triggers = []domainwf.Trigger{}
	}
	ok(c, http.StatusOK, ActionsResponse{ID: w.ID, Status: w.Status, Triggers: triggers})
}

// EditWorkflow handles PATCH /api/v1/workflows/:id
func (h *Handlers) EditWorkflow(c *gin.Context) {
	var patch entity.EditPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "request body must be a JSON object")
		return
	}

	actor, _ := actorFrom(c)
	w, err := h.workflows.EditWorkflow(c.Request.Context(), actor, c.Param("id"), patch)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, w)
}

// DeleteWorkflow handles DELETE /api/v1/workflows/:id
func (h *Handlers) DeleteWorkflow(c *gin.Context) {
	actor, _ := actorFrom(c)
	if err := h.workflows.DeleteWorkflow(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitWorkflow handles POST /api/v1/workflows/:id/submit
func (h *Handlers) SubmitWorkflow(c *gin.Context) {
	actor, _ := actorFrom(c)
	w, err := h.workflows.SubmitWorkflow(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, w)
}

// QueueWorkflow handles POST /api/v1/workflows/:id/queue
func (h *Handlers) QueueWorkflow(c *gin.Context) {
	actor, _ := actorFrom(c)
	w, err := h.workflows.MarkPending(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, w)
}

// ApproveWorkflow handles POST /api/v1/workflows/:id/approve
func (h *Handlers) ApproveWorkflow(c *gin.Context) {
	h.decide(c, h.workflows.ApproveWorkflow)
}

// RejectWorkflow handles POST /api/v1/workflows/:id/reject
func (h *Handlers) RejectWorkflow(c *gin.Context) {
	h.decide(c, h.workflows.RejectWorkflow)
}

// CompleteWorkflow handles POST /api/v1/workflows/:id/complete
func (h *Handlers) CompleteWorkflow(c *gin.Context) {
	h.decide(c, h.workflows.CompleteWorkflow)
}

type decision func(ctx context.Context, actor entity.Identity, id, comment string) (*entity.Workflow, error)

// decide binds the optional comment body and runs op
func (h *Handlers) decide(c *gin.Context, op decision) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "request body must be a JSON object")
		return
	}

	actor, _ := actorFrom(c)
	w, err := op(c.Request.Context(), actor, c.Param("id"), req.Comment)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, w)
}

// ListPendingApprovals handles GET /api/v1/approvals/pending
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	actor, _ := actorFrom(c)
	workflows, err := h.workflows.ListPendingApprovals(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if workflows == nil {
		workflows = []*entity.Workflow{}
	}
	ok(c, http.StatusOK, workflows)
}

// GetDecisionCounts handles GET /api/v1/approvals/decisions?date=YYYY-MM-DD
func (h *Handlers) GetDecisionCounts(c *gin.Context) {
	var date entity.Date
	if raw := c.Query("date"); raw != "" {
		parsed, err := entity.ParseDate(raw)
		if err != nil {
			badRequest(c, "date must be in "+entity.DateLayout+" format")
			return
		}
		date = parsed
	}

	actor, _ := actorFrom(c)
	counts, err := h.workflows.GetDecisionCounts(c.Request.Context(), actor, date)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, counts)
}

// GetStatistics handles GET /api/v1/statistics[?identity=].
// Requesters default to their own statistics.
func (h *Handlers) GetStatistics(c *gin.Context) {
	actor, _ := actorFrom(c)
	identity := c.Query("identity")
	if identity == "" && actor.Is(entity.RoleRequester) {
		identity = actor.ID
	}

	stats, err := h.workflows.GetStatistics(c.Request.Context(), actor, identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// ListUsers handles GET /api/v1/users[?role=]
func (h *Handlers) ListUsers(c *gin.Context) {
	actor, _ := actorFrom(c)
	ctx := c.Request.Context()

	var (
		users []entity.Identity
		err   error
	)
	if role := c.Query("role"); role != "" {
		users, err = h.directory.ListUsersByRole(ctx, actor, entity.Role(role))
	} else {
		users, err = h.directory.ListUsers(ctx, actor)
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, users)
}
