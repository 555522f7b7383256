package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jmorrel/helpqa/internal/index"
	"github.com/jmorrel/helpqa/internal/pkg/response"
)

type HealthHandler struct {
	index *index.VectorIndex
}

func NewHealthHandler(idx *index.VectorIndex) *HealthHandler {
	return &HealthHandler{index: idx}
}

func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.index != nil {
		body["index_size"] = h.index.Size()
		body["index_dimension"] = h.index.Dimension()
	}
	response.Success(c, body)
}
