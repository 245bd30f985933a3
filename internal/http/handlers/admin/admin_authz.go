package admin

import (
	"errors"
	"net/url"
	"strings"

	"github.com/dujiao-next/tableside/internal/authz"
	handlershared "github.com/dujiao-next/tableside/internal/http/handlers/shared"
	"github.com/dujiao-next/tableside/internal/http/response"

	"github.com/gin-gonic/gin"
)

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// GetAuthzMe 获取当前员工权限快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	role := handlershared.GetStaffRole(c)
	policies, err := h.AuthzService.GetImplicitRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}

	response.Success(c, gin.H{
		"staff_id": c.GetString(handlershared.ContextKeyStaffID),
		"role":     role,
		"policies": policies,
	})
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzRolePolicies 获取角色策略（含继承）
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	policies, err := h.AuthzService.GetImplicitRolePolicies(role)
	if err != nil {
		respondAuthzError(c, err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondAuthzError(c, err)
		return
	}

	requestLog(c).Infow("admin_authz_policy_granted",
		"operator_staff_id", c.GetString(handlershared.ContextKeyStaffID),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)

	response.Success(c, nil)
}

// RevokeAuthzPolicy 撤销角色策略；预置策略会在下次启动时重新写入
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondAuthzError(c, err)
		return
	}

	requestLog(c).Infow("admin_authz_policy_revoked",
		"operator_staff_id", c.GetString(handlershared.ContextKeyStaffID),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)

	response.Success(c, nil)
}

// respondAuthzError 策略参数问题返回 400，存储或服务异常返回 500
func respondAuthzError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authz.ErrObjectOutsideAdmin), errors.Is(err, authz.ErrActionRequired):
		respondError(c, response.CodeBadRequest, "error.authz_policy_invalid", nil)
	case errors.Is(err, authz.ErrReservedRole), errors.Is(err, authz.ErrRoleRequired):
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
	default:
		respondError(c, response.CodeInternal, "error.internal_error", err)
	}
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}
