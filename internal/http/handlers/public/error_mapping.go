package public

import (
	"errors"

	"github.com/dujiao-next/tableside/internal/http/response"
	"github.com/dujiao-next/tableside/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var sharedCartErrorRules = []mappedHandlerError{
	{target: service.ErrCartTableRequired, code: response.CodeBadRequest, key: "error.cart_table_required"},
	{target: service.ErrCartItemInvalid, code: response.CodeBadRequest, key: "error.cart_item_invalid"},
	{target: service.ErrCartQuantityInvalid, code: response.CodeBadRequest, key: "error.cart_quantity_invalid"},
	{target: service.ErrCartItemNotFound, code: response.CodeNotFound, key: "error.cart_item_not_found"},
}

func respondSharedCartError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSharedCartMissing) {
		// 购物车缺失属于数据完整性问题，按 500 返回并记录
		respondError(c, response.CodeInternal, "error.cart_missing", err)
		return
	}
	respondWithMappedError(c, err, sharedCartErrorRules, response.CodeInternal, "error.internal_error")
}
