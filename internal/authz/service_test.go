package authz

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dujiao-next/tableside/internal/constants"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceRoleWithPolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/tables/:tableId", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}

	allow, err := svc.EnforceRole("OPS", "/api/v1/admin/tables/4", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceRole("ops", "/api/v1/admin/tables/4", "POST")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}

	policies, err := svc.GetRolePolicies("ops")
	if err != nil {
		t.Fatalf("get role policies failed: %v", err)
	}
	if len(policies) != 1 || policies[0].Object != "/admin/tables/:tableId" || policies[0].Action != "GET" {
		t.Fatalf("unexpected policies: %+v", policies)
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/qr/stats", want: "/admin/qr/stats"},
		{in: "/admin/tables", want: "/admin/tables"},
		{in: "admin/tables", want: "/admin/tables"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap should be idempotent: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:admin":     true,
		"role:primary":   true,
		"role:secondary": true,
		"role:user":      true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	cases := []struct {
		role   string
		path   string
		method string
		want   bool
	}{
		{role: constants.RoleAdmin, path: "/api/v1/admin/qr/stats", method: "GET", want: true},
		{role: constants.RoleAdmin, path: "/api/v1/admin/tables", method: "POST", want: true},
		{role: constants.RolePrimary, path: "/api/v1/admin/qr/stats", method: "GET", want: true},
		{role: constants.RolePrimary, path: "/api/v1/admin/realtime/rooms/4", method: "GET", want: true},
		{role: constants.RolePrimary, path: "/api/v1/admin/tables", method: "POST", want: false},
		{role: constants.RoleSecondary, path: "/api/v1/admin/tables", method: "GET", want: true},
		{role: constants.RoleSecondary, path: "/api/v1/admin/qr/stats", method: "GET", want: false},
		{role: constants.RoleUser, path: "/api/v1/admin/tables", method: "GET", want: false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceRole(tc.role, tc.path, tc.method)
		if err != nil {
			t.Fatalf("enforce %s %s %s failed: %v", tc.role, tc.method, tc.path, err)
		}
		if allow != tc.want {
			t.Fatalf("enforce %s %s %s: got %v want %v", tc.role, tc.method, tc.path, allow, tc.want)
		}
	}
}

func TestImplicitPoliciesAndRevoke(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	policies, err := svc.GetImplicitRolePolicies(constants.RolePrimary)
	if err != nil {
		t.Fatalf("get implicit policies failed: %v", err)
	}
	objects := make(map[string]bool, len(policies))
	for _, policy := range policies {
		objects[policy.Object] = true
	}
	for _, want := range []string{"/admin/qr/stats", "/admin/tables", "/admin/realtime/rooms/:tableId"} {
		if !objects[want] {
			t.Fatalf("primary should hold %s, got %+v", want, policies)
		}
	}

	if err := svc.RevokeRolePolicy(constants.RoleSecondary, "/admin/tables", "GET"); err != nil {
		t.Fatalf("revoke policy failed: %v", err)
	}
	allow, err := svc.EnforceRole(constants.RolePrimary, "/api/v1/admin/tables", "GET")
	if err != nil {
		t.Fatalf("enforce failed: %v", err)
	}
	if allow {
		t.Fatalf("revoked inherited policy should no longer apply")
	}
}

func TestGrantRejectsNonAdminObjects(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	cases := []struct {
		object string
		action string
		want   error
	}{
		{object: "/shared-carts/:tableId", action: "GET", want: ErrObjectOutsideAdmin},
		{object: "/api/v1/administrator", action: "GET", want: ErrObjectOutsideAdmin},
		{object: "/admin/tables", action: " ", want: ErrActionRequired},
	}
	for _, tc := range cases {
		if err := svc.GrantRolePolicy("ops", tc.object, tc.action); !errors.Is(err, tc.want) {
			t.Fatalf("grant %s %q: want %v got %v", tc.object, tc.action, tc.want, err)
		}
	}
	if err := svc.GrantRolePolicy("ops", "/api/v1/admin/tables", "get"); err != nil {
		t.Fatalf("api-prefixed admin object should be accepted: %v", err)
	}
	if _, err := svc.EnsureRole(roleAnchor); !errors.Is(err, ErrReservedRole) {
		t.Fatalf("anchor role should be reserved, got %v", err)
	}
}
