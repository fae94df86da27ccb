package recipe

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-aggregator/internal/core/provider"
	"recipe-aggregator/internal/core/search"
	"recipe-aggregator/internal/infrastructure/selection"
	"recipe-aggregator/internal/pkg/common"
)

// toAPIError 將領域錯誤對應到 API 錯誤代碼
func toAPIError(err error) error {
	var ce *common.CustomError
	switch {
	case errors.As(err, &ce):
		return err
	case common.IsValidationError(err):
		return err
	case errors.Is(err, search.ErrSearchFailed):
		return common.ErrSearchFailed.Wrap(err)
	case errors.Is(err, selection.ErrNotFound):
		return common.ErrNotFound.Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrGatewayTimeout.Wrap(err)
	case errors.Is(err, context.Canceled):
		return common.ErrRequestTimeout.Wrap(err)
	}

	var pe *provider.Error
	if errors.As(err, &pe) {
		if pe.Kind == provider.KindNotFound {
			return common.ErrNotFound.Wrap(err)
		}
		return common.ErrServiceUnavailable.Wrap(err)
	}
	return common.ErrInternalError.Wrap(err)
}

// respondError 記錄並回傳錯誤
func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	status, resp := common.ToResponse(toAPIError(err), h.debug)

	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("request_id", requestid.Get(c)),
	}
	if status >= 500 {
		common.LogError(msg, fields...)
	} else {
		common.LogWarn(msg, fields...)
	}
	c.AbortWithStatusJSON(status, resp)
}

// bindJSON 解析請求內容，失敗時回傳 400
func (h *Handler) bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, "請求內容過大", common.ErrRequestTooLarge.Wrap(err))
			return false
		}
		h.respondError(c, "請求格式無效", common.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}
