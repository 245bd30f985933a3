// Package metrics 汇总 Prometheus 指标
//
// HTTP 指标的 path 标签取 gin 注册路由（c.FullPath），未命中路由时退回原始路径，
// 避免按真实 URL 展开导致标签基数失控。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// 扫码签发/消费结果
	tableSessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_session_events_total",
			Help: "QR token issue and consume outcomes.",
		},
		[]string{"action", "result"},
	)

	cartMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shared_cart_mutations_total",
			Help: "Committed shared cart mutations.",
		},
		[]string{"action"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by the redis throttler.",
		},
		[]string{"rule"},
	)

	realtimeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Currently open websocket connections.",
		},
	)

	realtimeDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_deliveries_total",
			Help: "Websocket frames queued for delivery by event.",
		},
		[]string{"event"},
	)

	realtimeDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_dropped_clients_total",
			Help: "Websocket clients disconnected because their send buffer was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequests,
		httpLatency,
		httpInflight,
		tableSessionEvents,
		cartMutations,
		rateLimited,
		realtimeConnections,
		realtimeDeliveries,
		realtimeDropped,
	)
}

// Handler 指标抓取端点
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware 记录请求数、耗时与并发量
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveTableSession 记录一次签发/消费结果
func ObserveTableSession(action, result string) {
	tableSessionEvents.WithLabelValues(action, result).Inc()
}

// ObserveCartMutation 记录一次已提交的购物车变更
func ObserveCartMutation(action string) {
	cartMutations.WithLabelValues(action).Inc()
}

// ObserveRateLimited 记录一次限流拒绝
func ObserveRateLimited(rule string) {
	rateLimited.WithLabelValues(rule).Inc()
}

// ConnectionOpened 连接建立
func ConnectionOpened() {
	realtimeConnections.Inc()
}

// ConnectionClosed 连接关闭
func ConnectionClosed() {
	realtimeConnections.Dec()
}

// ObserveDelivery 记录推送帧数量
func ObserveDelivery(event string, count int) {
	if count <= 0 {
		return
	}
	realtimeDeliveries.WithLabelValues(event).Add(float64(count))
}

// ObserveDroppedClient 记录因发送缓冲区满被断开的连接
func ObserveDroppedClient() {
	realtimeDropped.Inc()
}
