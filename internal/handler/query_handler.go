package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jmorrel/helpqa/internal/model"
	"github.com/jmorrel/helpqa/internal/pkg/errcode"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
	"github.com/jmorrel/helpqa/internal/pkg/response"
	"github.com/jmorrel/helpqa/internal/service"
)

type QueryHandler struct {
	queries *service.QueryService
}

func NewQueryHandler(queries *service.QueryService) *QueryHandler {
	return &QueryHandler{queries: queries}
}

type submitQueryRequest struct {
	Question string `json:"question_text"`
}

func (h *QueryHandler) Submit(c *gin.Context) {
	var req submitQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	id, err := h.queries.Submit(c.Request.Context(), req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"job_id": id})
}

// Poll reports job state. An unknown id is a status value rather than an
// error, so clients can poll a cleaned-up job without special casing.
func (h *QueryHandler) Poll(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid job id")
		return
	}
	job, err := h.queries.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			response.Success(c, gin.H{"job_id": id, "status": "not_found"})
			return
		}
		handleError(c, err)
		return
	}
	body := gin.H{"job_id": job.ID, "status": job.Status}
	switch job.Status {
	case model.JobStatusCompleted:
		body["answer"] = job.Answer
	case model.JobStatusFailed:
		body["message"] = job.Message
	}
	response.Success(c, body)
}
