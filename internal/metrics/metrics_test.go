package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGinMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/v1/shared-carts/:tableId", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	baseRoute := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/shared-carts/:tableId", "200"))
	baseMissing := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/nope", "404"))

	for _, path := range []string{"/api/v1/shared-carts/4", "/api/v1/shared-carts/7", "/nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/shared-carts/:tableId", "200")); got != baseRoute+2 {
		t.Fatalf("route counter = %v, want %v", got, baseRoute+2)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/nope", "404")); got != baseMissing+1 {
		t.Fatalf("fallback counter = %v, want %v", got, baseMissing+1)
	}
	if inflight := testutil.ToFloat64(httpInflight); inflight != 0 {
		t.Fatalf("inflight = %v, want 0", inflight)
	}
}

func TestDomainCounters(t *testing.T) {
	base := testutil.ToFloat64(tableSessionEvents.WithLabelValues("consume", "ip_mismatch"))
	ObserveTableSession("consume", "ip_mismatch")
	if got := testutil.ToFloat64(tableSessionEvents.WithLabelValues("consume", "ip_mismatch")); got != base+1 {
		t.Fatalf("session counter = %v, want %v", got, base+1)
	}

	baseDelivery := testutil.ToFloat64(realtimeDeliveries.WithLabelValues("cartUpdated"))
	ObserveDelivery("cartUpdated", 3)
	ObserveDelivery("cartUpdated", 0)
	if got := testutil.ToFloat64(realtimeDeliveries.WithLabelValues("cartUpdated")); got != baseDelivery+3 {
		t.Fatalf("delivery counter = %v, want %v", got, baseDelivery+3)
	}

	baseConns := testutil.ToFloat64(realtimeConnections)
	ConnectionOpened()
	ConnectionOpened()
	ConnectionClosed()
	if got := testutil.ToFloat64(realtimeConnections); got != baseConns+1 {
		t.Fatalf("connections gauge = %v, want %v", got, baseConns+1)
	}
	ConnectionClosed()
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveCartMutation("add_item")
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "shared_cart_mutations_total") {
		t.Fatalf("metrics output missing cart counter")
	}
}
