package service

import (
	"errors"

	"github.com/dujiao-next/tableside/internal/constants"
)

// 餐桌相关错误
var (
	ErrTableStaticIDRequired = errors.New("table static id is required")
	ErrTableNotFound         = errors.New("table not found or inactive")
)

// 一次性令牌相关错误
var (
	ErrTokenInvalidFormat   = errors.New("token format is invalid")
	ErrTokenGone            = errors.New("token not found or expired")
	ErrTokenInvalidPayload  = errors.New("token payload is invalid")
	ErrTokenIPMismatch      = errors.New("token was issued to a different ip")
	ErrTokenMaxUsesExceeded = errors.New("token already used")
)

// 桌台会话相关错误
var (
	ErrSessionRequired      = errors.New("table session required")
	ErrSessionExpired       = errors.New("table session expired")
	ErrSessionInvalid       = errors.New("table session invalid")
	ErrSessionIPMismatch    = errors.New("table session ip mismatch")
	ErrTableSessionMismatch = errors.New("table session belongs to another table")
)

// 共享购物车相关错误
var (
	ErrSharedCartMissing   = errors.New("shared cart missing for table")
	ErrCartItemInvalid     = errors.New("cart item is invalid")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrCartQuantityInvalid = errors.New("cart quantity is invalid")
	ErrCartTableRequired   = errors.New("cart table id is required")
)

// SessionReason 返回会话/令牌失败的机器可读原因，非此类错误返回空字符串
func SessionReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenInvalidFormat):
		return constants.SessionResultInvalidFormat
	case errors.Is(err, ErrTokenGone):
		return constants.SessionResultNotFoundOrExpired
	case errors.Is(err, ErrTokenInvalidPayload):
		return constants.SessionResultInvalidPayload
	case errors.Is(err, ErrTokenIPMismatch):
		return constants.SessionResultIPMismatch
	case errors.Is(err, ErrTokenMaxUsesExceeded):
		return constants.SessionResultMaxUsesExceeded
	case errors.Is(err, ErrTableNotFound), errors.Is(err, ErrTableStaticIDRequired):
		return "table_not_found"
	case errors.Is(err, ErrSessionRequired):
		return constants.SessionReasonRequired
	case errors.Is(err, ErrSessionExpired):
		return constants.SessionReasonExpired
	case errors.Is(err, ErrSessionInvalid):
		return constants.SessionReasonInvalid
	case errors.Is(err, ErrSessionIPMismatch):
		return constants.SessionReasonIPMismatch
	case errors.Is(err, ErrTableSessionMismatch):
		return constants.SessionReasonMismatch
	default:
		return ""
	}
}
