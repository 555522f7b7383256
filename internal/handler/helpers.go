package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jmorrel/helpqa/internal/pkg/errcode"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
	"github.com/jmorrel/helpqa/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrBusy):
		response.Error(c, errcode.ErrBusy, "too many queued queries")
	case errors.Is(err, appErr.ErrEmbeddingUnavailable):
		response.Error(c, errcode.ErrEmbeddingUnavailable, "embedding unavailable")
	case errors.Is(err, appErr.ErrGenerationFailure):
		response.Error(c, errcode.ErrGenerationFailure, "generation failed")
	case errors.Is(err, appErr.ErrNotBuilt), errors.Is(err, appErr.ErrCorruptIndex):
		response.Error(c, errcode.ErrIndexUnavailable, "index unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
