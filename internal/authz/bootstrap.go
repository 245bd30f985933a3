package authz

import (
	"fmt"

	"github.com/dujiao-next/tableside/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
// USER 不授予任何后台权限；SECONDARY 可查看桌台与实时连接；
// PRIMARY 额外可查看扫码统计与审计日志；ADMIN 拥有全部后台权限
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{Role: constants.RoleUser},
		{
			Role: constants.RoleSecondary,
			Policies: []Policy{
				{Object: "/admin/authz/me", Action: "GET"},
				{Object: "/admin/tables", Action: "GET"},
				{Object: "/admin/realtime/rooms/:tableId", Action: "GET"},
			},
		},
		{
			Role:     constants.RolePrimary,
			Inherits: []string{constants.RoleSecondary},
			Policies: []Policy{
				{Object: "/admin/qr/stats", Action: "GET"},
				{Object: "/admin/tables/:tableId/session-logs", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleAdmin,
			Inherits: []string{constants.RolePrimary},
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if !s.ready() {
		return ErrUnavailable
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return fmt.Errorf("create builtin role failed: %w", err)
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			object, action, err := normalizeAdminRule(policy.Object, policy.Action)
			if err != nil {
				return fmt.Errorf("builtin policy %s %s: %w", policy.Action, policy.Object, err)
			}
			if _, err := s.enforcer.AddPolicy(role, object, action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
