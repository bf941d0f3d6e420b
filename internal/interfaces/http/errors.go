package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"

	"github.com/workflowos/approval-engine/internal/domain/entity"
)

const problemContentType = "application/problem+json"

func writeProblem(c *gin.Context, problem *problems.Problem) {
	c.Header("Content-Type", problemContentType)
	c.AbortWithStatusJSON(problem.Status, problem)
}

func badRequest(c *gin.Context, detail string) {
	writeProblem(c, problems.NewStatusProblem(http.StatusBadRequest).
		WithInstance(c.Request.URL.Path).
		WithType("validation_error").
		WithDetail(detail))
}

func unauthenticated(c *gin.Context, detail string) {
	writeProblem(c, problems.NewStatusProblem(http.StatusUnauthorized).
		WithInstance(c.Request.URL.Path).
		WithType("unauthenticated").
		WithDetail(detail))
}

// handleServiceError maps typed service errors to problem responses
func (h *Handlers) handleServiceError(c *gin.Context, err error) {
	var (
		validation *entity.ValidationError
		notFound   *entity.NotFoundError
	)

	switch {
	case errors.As(err, &validation):
		badRequest(c, validation.Error())

	case entity.IsUnauthorized(err):
		writeProblem(c, problems.NewStatusProblem(http.StatusForbidden).
			WithInstance(c.Request.URL.Path).
			WithType("forbidden").
			WithDetail(err.Error()))

	case errors.As(err, &notFound):
		writeProblem(c, problems.NewStatusProblem(http.StatusNotFound).
			WithInstance(c.Request.URL.Path).
			WithType(notFound.Resource()+"_not_found").
			WithDetail(notFound.Error()))

	case entity.IsInvalidState(err):
		writeProblem(c, problems.NewStatusProblem(http.StatusConflict).
			WithInstance(c.Request.URL.Path).
			WithType("invalid_state").
			WithDetail(err.Error()))

	case entity.IsInvalidTransition(err):
		writeProblem(c, problems.NewStatusProblem(http.StatusConflict).
			WithInstance(c.Request.URL.Path).
			WithType("invalid_transition").
			WithDetail(err.Error()))

	case entity.IsVersionConflict(err):
		writeProblem(c, problems.NewStatusProblem(http.StatusConflict).
			WithInstance(c.Request.URL.Path).
			WithType("conflict").
			WithDetail("the workflow collection changed concurrently; retry the request"))

	default:
		// storage and unexpected errors are logged, not exposed
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		writeProblem(c, problems.NewStatusProblem(http.StatusInternalServerError).
			WithInstance(c.Request.URL.Path).
			WithType("internal_error").
			WithDetail("the request could not be completed"))
	}
}
