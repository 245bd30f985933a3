package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dujiao-next/tableside/internal/config"
	"github.com/dujiao-next/tableside/internal/constants"
	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const revalidateTimeout = 3 * time.Second

// Options 网关参数
type Options struct {
	AllowedOrigins  []string
	WriteWait       time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64
	SendBuffer      int
	EventsPerSecond float64
	Burst           int
}

// OptionsFromConfig 从配置构建网关参数
func OptionsFromConfig(cfg config.RealtimeConfig) Options {
	return Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		WriteWait:       time.Duration(cfg.WriteWaitSeconds) * time.Second,
		PongWait:        time.Duration(cfg.PongWaitSeconds) * time.Second,
		MaxMessageBytes: cfg.MaxMessageBytes,
		SendBuffer:      cfg.SendBuffer,
		EventsPerSecond: cfg.EventsPerSecond,
		Burst:           cfg.Burst,
	}
}

func (o Options) normalized() Options {
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 4096
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.EventsPerSecond <= 0 {
		o.EventsPerSecond = 10
	}
	if o.Burst <= 0 {
		o.Burst = 20
	}
	return o
}

func (o Options) pingPeriod() time.Duration {
	return o.PongWait * 9 / 10
}

// Gateway websocket 网关：处理 joinCart/leaveCart/ping 与断线清理
type Gateway struct {
	hub      *Hub
	opts     Options
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewGateway 创建网关
func NewGateway(hub *Hub, opts Options) *Gateway {
	opts = opts.normalized()
	g := &Gateway{
		hub:  hub,
		opts: opts,
		now:  time.Now,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// Hub 返回所属 Hub
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// checkOrigin 未配置白名单时放行所有来源
func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	normalized := strings.TrimRight(parsed.Scheme+"://"+parsed.Host, "/")
	for _, allowed := range g.opts.AllowedOrigins {
		allowed = strings.TrimRight(strings.TrimSpace(allowed), "/")
		if allowed == "*" || strings.EqualFold(allowed, normalized) {
			return true
		}
	}
	return false
}

// Serve 升级连接并阻塞直到连接关闭
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, identity Identity) error {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{
		id:       uuid.NewString(),
		gateway:  g,
		conn:     conn,
		identity: identity,
		limiter:  rate.NewLimiter(rate.Limit(g.opts.EventsPerSecond), g.opts.Burst),
		send:     make(chan []byte, g.opts.SendBuffer),
		done:     make(chan struct{}),
	}
	g.hub.register(client)
	metrics.ConnectionOpened()
	logger.Infow("realtime_client_connected",
		"client_id", client.id,
		"staff", identity.Staff,
		"table_id", identity.TableID,
	)

	if !identity.Staff && !identity.ExpiresAt.IsZero() {
		expiry := time.AfterFunc(identity.ExpiresAt.Sub(g.now()), func() {
			logger.Infow("realtime_session_expired", "client_id", client.id, "table_id", identity.TableID)
			client.closeWithReason(websocket.ClosePolicyViolation, "table session expired")
		})
		defer expiry.Stop()
	}

	go client.writePump()
	client.readPump()

	client.close()
	g.disconnect(client)
	return nil
}

func (g *Gateway) disconnect(c *Client) {
	tables := g.hub.unregister(c)
	metrics.ConnectionClosed()
	for _, tableID := range tables {
		g.hub.BroadcastTable(tableID, constants.EventUserLeft, userLeftPayload{ClientCount: g.hub.TableClients(tableID)})
	}
	logger.Infow("realtime_client_disconnected", "client_id", c.id, "tables", tables)
}

func (g *Gateway) joinCart(c *Client, data json.RawMessage) {
	var payload joinCartPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			c.sendError("invalid joinCart payload")
			return
		}
	}
	tableID := string(payload.TableID)
	if tableID == "" {
		c.sendError("tableId is required")
		return
	}
	if !c.identity.Staff && c.identity.TableID != tableID {
		logger.Warnw("realtime_join_table_mismatch", "client_id", c.id, "session_table_id", c.identity.TableID, "table_id", tableID)
		c.sendError("table session does not match table " + tableID)
		return
	}
	if !c.identity.Staff && c.identity.Revalidate != nil {
		ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
		err := c.identity.Revalidate(ctx)
		cancel()
		if err != nil {
			// 会话已退出或过期，连接不再代表有效桌台
			logger.Infow("realtime_session_revoked", "client_id", c.id, "table_id", tableID, "error", err)
			c.closeWithReason(websocket.ClosePolicyViolation, "table session expired")
			return
		}
	}

	count := g.hub.join(c, tableID)
	c.sendEvent(constants.EventCartSubscribed, cartSubscribedPayload{
		TableID:        tableID,
		Message:        "Subscribed to cart for table " + tableID,
		ClientsInTable: count,
	})
	g.hub.BroadcastTable(tableID, constants.EventUserJoined, userJoinedPayload{
		UserID:      string(payload.UserID),
		ClientCount: count,
	})
	logger.Infow("realtime_join_cart", "client_id", c.id, "table_id", tableID, "clients", count)
}

func (g *Gateway) leaveCart(c *Client, data json.RawMessage) {
	var payload leaveCartPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			c.sendError("invalid leaveCart payload")
			return
		}
	}
	tableID := string(payload.TableID)
	if tableID == "" {
		c.sendError("tableId is required")
		return
	}
	count := g.hub.leave(c, tableID)
	g.hub.BroadcastTable(tableID, constants.EventUserLeft, userLeftPayload{ClientCount: count})
	logger.Infow("realtime_leave_cart", "client_id", c.id, "table_id", tableID, "clients", count)
}
