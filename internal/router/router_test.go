package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/tableside/internal/config"
	"github.com/dujiao-next/tableside/internal/constants"
	"github.com/dujiao-next/tableside/internal/models"
	"github.com/dujiao-next/tableside/internal/provider"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type routerTestEnv struct {
	engine    *gin.Engine
	container *provider.Container
	mr        *miniredis.Miniredis
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		Total int64 `json:"total"`
	} `json:"pagination"`
}

func setupRouterTest(t *testing.T) *routerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if _, err := models.InitDefaultTables(db, []models.TableSeed{
		{StaticID: "4", Name: "Table 4"},
		{StaticID: "7", Name: "Table 7"},
	}); err != nil {
		t.Fatalf("seed tables failed: %v", err)
	}

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("parse miniredis port failed: %v", err)
	}
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{SecretKey: "router-test-secret"},
		Redis:  config.RedisConfig{Host: mr.Host(), Port: port, Prefix: "test"},
		QR: config.QRConfig{
			TokenLength:       24,
			TokenTTLSeconds:   300,
			SessionTTLSeconds: 7200,
			ClientURL:         "https://menu.example.com",
			TableCacheSeconds: 60,
		},
	}

	c, err := provider.NewContainer(cfg, db)
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	t.Cleanup(c.Close)
	return &routerTestEnv{engine: SetupRouter(cfg, c), container: c, mr: mr}
}

func (env *routerTestEnv) do(t *testing.T, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	var resp envelope
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal %s %s failed: %v body=%s", method, path, err, w.Body.String())
		}
	}
	return w, resp
}

func TestRouterScanToCartFlow(t *testing.T) {
	env := setupRouterTest(t)

	_, resp := env.do(t, http.MethodPost, "/api/v1/qr/issue/4", "", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("issue failed: %+v", resp)
	}
	var issued struct {
		Token    string `json:"token"`
		DeepLink string `json:"deepLink"`
		TTL      int    `json:"ttl"`
	}
	if err := json.Unmarshal(resp.Data, &issued); err != nil {
		t.Fatalf("decode issue failed: %v", err)
	}
	if len(issued.Token) != 24 || issued.DeepLink != "https://menu.example.com/t/"+issued.Token || issued.TTL != 300 {
		t.Fatalf("unexpected issue result: %+v", issued)
	}

	w, resp := env.do(t, http.MethodGet, "/api/v1/qr/consume/"+issued.Token, "", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("consume failed: %+v", resp)
	}
	var sessionCookie *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == constants.TableSessionCookie {
			sessionCookie = cookie
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" || !sessionCookie.HttpOnly {
		t.Fatalf("session cookie should be set, got %+v", sessionCookie)
	}
	if sessionCookie.MaxAge != 7200 || sessionCookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie attributes: %+v", sessionCookie)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/qr/consume/"+issued.Token, "", nil)
	if resp.StatusCode != 410 {
		t.Fatalf("second consume should be gone, got %+v", resp)
	}

	sessionHeader := map[string]string{constants.TableSessionHeader: sessionCookie.Value}
	_, resp = env.do(t, http.MethodGet, "/api/v1/table/session", "", sessionHeader)
	if resp.StatusCode != 0 || !strings.Contains(string(resp.Data), `"tableId":"4"`) {
		t.Fatalf("table session lookup failed: %+v", resp)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/shared-carts/4/items", `{"productId":"latte","quantity":2,"unitPrice":"12.50"}`, sessionHeader)
	if resp.StatusCode != 0 {
		t.Fatalf("add cart item failed: %+v", resp)
	}
	var cart struct {
		TableID     string `json:"tableId"`
		TotalItems  int    `json:"totalItems"`
		TotalAmount string `json:"totalAmount"`
		Items       []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(resp.Data, &cart); err != nil {
		t.Fatalf("decode cart failed: %v", err)
	}
	if cart.TableID != "4" || cart.TotalItems != 2 || cart.TotalAmount != "25.00" || len(cart.Items) != 1 {
		t.Fatalf("unexpected cart: %+v", cart)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/shared-carts/7", "", sessionHeader)
	if resp.StatusCode != 409 {
		t.Fatalf("foreign table cart should conflict, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodPut, "/api/v1/shared-carts/4/items/"+cart.Items[0].ID, `{"quantity":-1}`, sessionHeader)
	if resp.StatusCode != 400 {
		t.Fatalf("negative quantity should be rejected, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/table/session/logout", "", sessionHeader)
	if resp.StatusCode != 0 {
		t.Fatalf("logout failed: %+v", resp)
	}
	_, resp = env.do(t, http.MethodGet, "/api/v1/table/session", "", sessionHeader)
	if resp.StatusCode != 401 {
		t.Fatalf("session should be gone after logout, got %+v", resp)
	}
}

func TestRouterIssueUnknownTable(t *testing.T) {
	env := setupRouterTest(t)
	_, resp := env.do(t, http.MethodPost, "/api/v1/qr/issue/99", "", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("unknown table should be 404, got %+v", resp)
	}

	w, _ := env.do(t, http.MethodGet, "/api/v1/qr/issue/7", "", nil)
	if w.Code != http.StatusFound || !strings.HasPrefix(w.Header().Get("Location"), "https://menu.example.com/t/") {
		t.Fatalf("issue redirect failed: code=%d location=%s", w.Code, w.Header().Get("Location"))
	}
}

func TestRouterAdminRoutes(t *testing.T) {
	env := setupRouterTest(t)
	staff := env.container.StaffAuthService

	adminToken, _, err := staff.GenerateJWT("staff-admin", "admin@example.com", constants.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("generate admin jwt failed: %v", err)
	}
	waiterToken, _, err := staff.GenerateJWT("staff-waiter", "waiter@example.com", constants.RoleSecondary, time.Hour)
	if err != nil {
		t.Fatalf("generate waiter jwt failed: %v", err)
	}
	adminHeader := map[string]string{"Authorization": "Bearer " + adminToken}
	waiterHeader := map[string]string{"Authorization": "Bearer " + waiterToken}

	_, resp := env.do(t, http.MethodGet, "/api/v1/admin/tables", "", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("anonymous admin request should be 401, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/tables", "", waiterHeader)
	if resp.StatusCode != 0 || resp.Pagination.Total != 2 {
		t.Fatalf("waiter should list tables, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/admin/tables", `{"static_id":"12","name":"Patio 12"}`, waiterHeader)
	if resp.StatusCode != 403 {
		t.Fatalf("waiter should not create tables, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/admin/tables", `{"static_id":"12","name":"Patio 12"}`, adminHeader)
	if resp.StatusCode != 0 {
		t.Fatalf("admin create table failed: %+v", resp)
	}
	_, resp = env.do(t, http.MethodPost, "/api/v1/admin/tables", `{"static_id":"12"}`, adminHeader)
	if resp.StatusCode != 409 {
		t.Fatalf("duplicate table should conflict, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/qr/issue/12", "", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("new table should be scannable, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/qr/stats?hours=abc", "", adminHeader)
	if resp.StatusCode != 400 {
		t.Fatalf("invalid hours should be 400, got %+v", resp)
	}
	env.container.SessionAuditService.Wait()
	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/qr/stats?hours=1", "", adminHeader)
	if resp.StatusCode != 0 || !strings.Contains(string(resp.Data), `"hours":1`) {
		t.Fatalf("stats failed: %+v", resp)
	}

	env.container.SessionAuditService.Wait()
	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/tables/12/session-logs", "", adminHeader)
	if resp.StatusCode != 0 || !strings.Contains(string(resp.Data), constants.SessionActionIssue) {
		t.Fatalf("session logs should contain the issue entry, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/realtime/rooms/4", "", waiterHeader)
	if resp.StatusCode != 0 {
		t.Fatalf("room snapshot failed: %+v", resp)
	}

	// 员工令牌可直接访问桌台购物车
	_, resp = env.do(t, http.MethodGet, "/api/v1/shared-carts/7", "", waiterHeader)
	if resp.StatusCode != 0 || !strings.Contains(string(resp.Data), `"tableId":"7"`) {
		t.Fatalf("staff should read any cart, got %+v", resp)
	}
}

func TestRouterHealth(t *testing.T) {
	env := setupRouterTest(t)
	w, _ := env.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("health check failed: %d %s", w.Code, w.Body.String())
	}
}

func TestRouterAuthzManagement(t *testing.T) {
	env := setupRouterTest(t)
	staff := env.container.StaffAuthService

	adminToken, _, err := staff.GenerateJWT("staff-admin", "", constants.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("generate admin jwt failed: %v", err)
	}
	userToken, _, err := staff.GenerateJWT("staff-user", "", constants.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("generate user jwt failed: %v", err)
	}
	adminHeader := map[string]string{"Authorization": "Bearer " + adminToken}
	userHeader := map[string]string{"Authorization": "Bearer " + userToken}

	_, resp := env.do(t, http.MethodGet, "/api/v1/admin/authz/me", "", adminHeader)
	if resp.StatusCode != 0 || !strings.Contains(string(resp.Data), `"role":"ADMIN"`) {
		t.Fatalf("authz me failed: %+v", resp)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/tables", "", userHeader)
	if resp.StatusCode != 403 {
		t.Fatalf("user role should be denied, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/admin/authz/policies", `{"role":"USER","object":"/admin/tables","action":"GET"}`, adminHeader)
	if resp.StatusCode != 0 {
		t.Fatalf("grant policy failed: %+v", resp)
	}
	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/tables", "", userHeader)
	if resp.StatusCode != 0 {
		t.Fatalf("granted policy should apply, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/authz/roles/user/policies", "", adminHeader)
	if resp.StatusCode != 0 || !strings.Contains(string(resp.Data), `"/admin/tables"`) {
		t.Fatalf("role policies should list the grant, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodDelete, "/api/v1/admin/authz/policies", `{"role":"USER","object":"/admin/tables","action":"GET"}`, adminHeader)
	if resp.StatusCode != 0 {
		t.Fatalf("revoke policy failed: %+v", resp)
	}
	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/tables", "", userHeader)
	if resp.StatusCode != 403 {
		t.Fatalf("revoked policy should no longer apply, got %+v", resp)
	}
}

func TestRouterAuthzRejectsNonAdminPolicy(t *testing.T) {
	env := setupRouterTest(t)
	adminToken, _, err := env.container.StaffAuthService.GenerateJWT("staff-admin", "", constants.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("generate admin jwt failed: %v", err)
	}
	adminHeader := map[string]string{"Authorization": "Bearer " + adminToken}

	_, resp := env.do(t, http.MethodPost, "/api/v1/admin/authz/policies", `{"role":"USER","object":"/shared-carts/:tableId","action":"DELETE"}`, adminHeader)
	if resp.StatusCode != 400 {
		t.Fatalf("non-admin object should be rejected, got %+v", resp)
	}
	_, resp = env.do(t, http.MethodPost, "/api/v1/admin/authz/policies", `{"role":"USER"}`, adminHeader)
	if resp.StatusCode != 400 {
		t.Fatalf("missing fields should be rejected, got %+v", resp)
	}
}

func TestRouterFirstCartWriteCreatesCart(t *testing.T) {
	env := setupRouterTest(t)
	staff := env.container.StaffAuthService
	token, _, err := staff.GenerateJWT("staff-waiter", "waiter@example.com", constants.RoleSecondary, time.Hour)
	if err != nil {
		t.Fatalf("generate waiter jwt failed: %v", err)
	}
	header := map[string]string{"Authorization": "Bearer " + token}

	// 未读取过的桌台直接加购
	_, resp := env.do(t, http.MethodPost, "/api/v1/shared-carts/7/items", `{"productId":"tea","quantity":3,"unitPrice":"4.00"}`, header)
	if resp.StatusCode != 0 {
		t.Fatalf("first add should create the cart, got %+v", resp)
	}
	var cart struct {
		TableID     string `json:"tableId"`
		TotalItems  int    `json:"totalItems"`
		TotalAmount string `json:"totalAmount"`
	}
	if err := json.Unmarshal(resp.Data, &cart); err != nil {
		t.Fatalf("decode cart failed: %v", err)
	}
	if cart.TableID != "7" || cart.TotalItems != 3 || cart.TotalAmount != "12.00" {
		t.Fatalf("unexpected cart after first add: %+v", cart)
	}

	_, resp = env.do(t, http.MethodPut, "/api/v1/shared-carts/4/items/missing", `{"quantity":2}`, header)
	if resp.StatusCode != 404 {
		t.Fatalf("update on fresh cart should report missing item, got %+v", resp)
	}
	_, resp = env.do(t, http.MethodDelete, "/api/v1/shared-carts/4", "", header)
	if resp.StatusCode != 0 || !strings.Contains(string(resp.Data), `"totalItems":0`) {
		t.Fatalf("clear on fresh cart should succeed, got %+v", resp)
	}
}
