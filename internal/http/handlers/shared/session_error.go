package shared

import (
	"errors"

	"github.com/dujiao-next/tableside/internal/http/response"
	"github.com/dujiao-next/tableside/internal/service"

	"github.com/gin-gonic/gin"
)

type sessionErrorRule struct {
	target error
	code   int
	key    string
}

var sessionErrorRules = []sessionErrorRule{
	{target: service.ErrTokenInvalidFormat, code: response.CodeBadRequest, key: "error.token_invalid_format"},
	{target: service.ErrTokenInvalidPayload, code: response.CodeBadRequest, key: "error.token_invalid_payload"},
	{target: service.ErrTokenGone, code: response.CodeGone, key: "error.token_gone"},
	{target: service.ErrTokenIPMismatch, code: response.CodeConflict, key: "error.token_ip_mismatch"},
	{target: service.ErrTokenMaxUsesExceeded, code: response.CodeConflict, key: "error.token_used"},
	{target: service.ErrTableStaticIDRequired, code: response.CodeNotFound, key: "error.table_not_found"},
	{target: service.ErrTableNotFound, code: response.CodeNotFound, key: "error.table_not_found"},
	{target: service.ErrSessionRequired, code: response.CodeUnauthorized, key: "error.table_session_required"},
	{target: service.ErrSessionExpired, code: response.CodeUnauthorized, key: "error.table_session_expired"},
	{target: service.ErrSessionInvalid, code: response.CodeUnauthorized, key: "error.table_session_invalid"},
	{target: service.ErrSessionIPMismatch, code: response.CodeUnauthorized, key: "error.table_session_ip_mismatch"},
	{target: service.ErrTableSessionMismatch, code: response.CodeConflict, key: "error.table_session_mismatch"},
}

// RespondSessionError 返回令牌/会话类错误，data.reason 为机器可读原因；
// 非此类错误按 500 处理并记录日志。
func RespondSessionError(c *gin.Context, err error) {
	for _, rule := range sessionErrorRules {
		if errors.Is(err, rule.target) {
			RespondAppError(c, response.NewAppError(rule.code, rule.key, nil).WithReason(service.SessionReason(err)))
			return
		}
	}
	RespondError(c, response.CodeInternal, "error.internal_error", err)
}
