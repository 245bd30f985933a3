package shared

import (
	"github.com/dujiao-next/tableside/internal/constants"
	"github.com/dujiao-next/tableside/internal/http/response"
	"github.com/dujiao-next/tableside/internal/i18n"
	"github.com/dujiao-next/tableside/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString(constants.ContextKeyRequestID); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondAppError(c, response.NewAppError(code, key, err))
}

// RespondAppError 按请求语言翻译错误并输出；原始错误只进日志不返回客户端。
func RespondAppError(c *gin.Context, appErr *response.AppError) {
	msg := i18n.T(i18n.ResolveLocale(c), appErr.Key)
	if appErr.Err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"key", appErr.Key,
			"reason", appErr.Reason,
			"error", appErr.Err,
		)
	}
	response.ErrorWithData(c, appErr.Code, msg, appErr.Data())
}
