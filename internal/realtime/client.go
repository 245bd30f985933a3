package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dujiao-next/tableside/internal/constants"
	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/metrics"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Identity 连接身份：员工可加入任意桌台，桌台会话只能加入自己的桌台
type Identity struct {
	Staff     bool
	TableID   string
	SessionID string
	// ExpiresAt 会话到期时间，到期后网关主动断开，零值表示不限
	ExpiresAt time.Time
	// Revalidate 重新校验桌台会话，为空时不校验
	Revalidate func(ctx context.Context) error
}

// Client 单个 websocket 连接
// 只有 writePump 写数据帧；send 从不关闭，通过 done 通知退出。
type Client struct {
	id       string
	gateway  *Gateway
	conn     *websocket.Conn
	identity Identity
	limiter  *rate.Limiter

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// ID 连接编号
func (c *Client) ID() string {
	return c.id
}

// enqueue 非阻塞入队，缓冲区满时断开连接
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		metrics.ObserveDroppedClient()
		logger.Warnw("realtime_client_send_buffer_full", "client_id", c.id)
		c.close()
		return false
	}
}

func (c *Client) sendEvent(event string, data interface{}) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		logger.Warnw("realtime_encode_failed", "event", event, "error", err)
		return
	}
	if c.enqueue(frame) {
		metrics.ObserveDelivery(event, 1)
	}
}

func (c *Client) sendError(message string) {
	c.sendEvent(constants.EventError, errorPayload{Message: message})
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// closeWithReason 发送关闭帧后断开，WriteControl 可与 writePump 并发调用
func (c *Client) closeWithReason(code int, reason string) {
	deadline := time.Now().Add(c.gateway.opts.WriteWait)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	c.close()
}

func (c *Client) readPump() {
	opts := c.gateway.opts
	c.conn.SetReadLimit(opts.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Debugw("realtime_client_read_failed", "client_id", c.id, "error", err)
			}
			return
		}
		// 任意上行消息都视为存活
		_ = c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
		c.handle(data)
	}
}

func (c *Client) writePump() {
	opts := c.gateway.opts
	ticker := time.NewTicker(opts.pingPeriod())
	defer ticker.Stop()
	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(opts.WriteWait))
			return
		}
	}
}

func (c *Client) handle(data []byte) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Event == "" {
		c.sendError("invalid message")
		return
	}
	if !c.limiter.Allow() {
		c.sendError("too many messages")
		return
	}
	switch envelope.Event {
	case constants.EventJoinCart:
		c.gateway.joinCart(c, envelope.Data)
	case constants.EventLeaveCart:
		c.gateway.leaveCart(c, envelope.Data)
	case constants.EventPing:
		c.sendEvent(constants.EventPong, pongPayload{Pong: c.gateway.now().UnixMilli()})
	default:
		c.sendError("unknown event: " + envelope.Event)
	}
}
