package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/tableside/internal/constants"
	"github.com/dujiao-next/tableside/internal/logger"

	"github.com/redis/go-redis/v9"
)

const relayRetryDelay = 3 * time.Second

// Subscriber 模式订阅
type Subscriber interface {
	PSubscribe(ctx context.Context, patterns ...string) (*redis.PubSub, error)
}

// RelayPatterns 网关订阅的频道模式
func RelayPatterns() []string {
	return []string{
		constants.ChannelPrefixCart + "*",
		constants.ChannelPrefixOrders + "*",
		constants.ChannelProducts,
		constants.ChannelSettings,
		constants.ChannelBanners,
	}
}

// Relay 将 Redis 频道消息转发给 websocket 连接，每个进程各自订阅全部频道
type Relay struct {
	subscriber Subscriber
	hub        *Hub
	now        func() time.Time

	mu        sync.Mutex
	sub       *redis.PubSub
	ready     chan struct{}
	readyOnce sync.Once
}

// NewRelay 创建转发服务
func NewRelay(subscriber Subscriber, hub *Hub) *Relay {
	return &Relay{
		subscriber: subscriber,
		hub:        hub,
		now:        time.Now,
		ready:      make(chan struct{}),
	}
}

// Name 服务名称
func (r *Relay) Name() string {
	return "realtime_relay"
}

// Ready 订阅成功后关闭
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Start 订阅并转发，订阅失败时定期重试直到 ctx 结束
func (r *Relay) Start(ctx context.Context) error {
	if r == nil || r.subscriber == nil || r.hub == nil {
		return errors.New("realtime relay not initialized")
	}
	for {
		err := r.run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		logger.Warnw("realtime_relay_subscription_lost", "error", err, "retry_in", relayRetryDelay.String())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(relayRetryDelay):
		}
	}
}

// Stop 关闭订阅
func (r *Relay) Stop(ctx context.Context) error {
	_ = ctx
	if r == nil {
		return nil
	}
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Close()
}

func (r *Relay) run(ctx context.Context) error {
	patterns := RelayPatterns()
	sub, err := r.subscriber.PSubscribe(ctx, patterns...)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		if r.sub == sub {
			r.sub = nil
		}
		r.mu.Unlock()
		_ = sub.Close()
	}()

	logger.Infow("realtime_relay_subscribed", "patterns", patterns)
	r.readyOnce.Do(func() { close(r.ready) })

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("subscription channel closed")
			}
			r.Dispatch(msg.Channel, msg.Payload)
		}
	}
}

// Dispatch 按频道转发一条消息，返回投递数
func (r *Relay) Dispatch(channel, payload string) int {
	switch {
	case strings.HasPrefix(channel, constants.ChannelPrefixCart):
		return r.dispatchCart(channel, payload)
	case strings.HasPrefix(channel, constants.ChannelPrefixOrders):
		return r.dispatchVerbatim(channel, constants.EventOrderUpdated, payload)
	case channel == constants.ChannelProducts:
		return r.dispatchVerbatim(channel, constants.EventProductUpdated, payload)
	case channel == constants.ChannelSettings:
		return r.dispatchVerbatim(channel, constants.EventSettingsUpdated, payload)
	case channel == constants.ChannelBanners:
		return r.dispatchVerbatim(channel, constants.EventBannersUpdated, payload)
	default:
		logger.Debugw("realtime_relay_unknown_channel", "channel", channel)
		return 0
	}
}

func (r *Relay) dispatchCart(channel, payload string) int {
	var msg struct {
		TableID flexibleID      `json:"tableId"`
		Cart    json.RawMessage `json:"cart"`
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		logger.Warnw("realtime_relay_payload_invalid", "channel", channel, "error", err)
		return 0
	}
	tableID := string(msg.TableID)
	if tableID == "" {
		tableID = strings.TrimPrefix(channel, constants.ChannelPrefixCart)
	}
	if tableID == "" {
		return 0
	}
	delivered := r.hub.BroadcastTable(tableID, constants.EventCartUpdated, cartUpdatedPayload{
		Cart:      msg.Cart,
		Timestamp: r.now().UTC().Format(time.RFC3339Nano),
	})
	logger.Debugw("realtime_cart_relayed", "table_id", tableID, "delivered", delivered)
	return delivered
}

func (r *Relay) dispatchVerbatim(channel, event, payload string) int {
	if !json.Valid([]byte(payload)) {
		logger.Warnw("realtime_relay_payload_invalid", "channel", channel, "event", event)
		return 0
	}
	delivered := r.hub.BroadcastAll(event, json.RawMessage(payload))
	logger.Debugw("realtime_relayed", "channel", channel, "event", event, "delivered", delivered)
	return delivered
}
