package response

import "github.com/gin-gonic/gin"

// AppError 接口错误：业务码、i18n 键、可选的会话失败原因与原始错误
type AppError struct {
	Code   int
	Key    string
	Reason string
	Err    error
}

// NewAppError 创建接口错误
func NewAppError(code int, key string, err error) *AppError {
	return &AppError{Code: code, Key: key, Err: err}
}

// WithReason 附带返回给客户端的机器可读原因
func (e *AppError) WithReason(reason string) *AppError {
	e.Reason = reason
	return e
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Key
	}
	return e.Key + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Data 生成错误响应的 data 部分
func (e *AppError) Data() gin.H {
	if e.Reason == "" {
		return nil
	}
	return gin.H{"reason": e.Reason}
}
