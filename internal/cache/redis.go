package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/tableside/internal/config"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable 存储未初始化
var ErrStoreUnavailable = errors.New("redis store is not initialized")

// getDelScript 原子读取并删除，保证一次性令牌只能被消费一次
var getDelScript = redis.NewScript(`
local value = redis.call("GET", KEYS[1])
if value then
  redis.call("DEL", KEYS[1])
end
return value
`)

// Store Redis 存储封装，显式构造并由调用方负责关闭
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore 根据配置创建 Redis 存储
func NewStore(cfg *config.RedisConfig) *Store {
	if cfg == nil {
		cfg = &config.RedisConfig{}
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewStoreWithClient(client, cfg.Prefix)
}

// NewStoreWithClient 使用已有客户端创建存储
func NewStoreWithClient(client *redis.Client, prefix string) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "ts"
	}
	return &Store{client: client, prefix: prefix}
}

// Client 获取底层 Redis 客户端
func (s *Store) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

// Ping 启动时检查连接
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return ErrStoreUnavailable
	}
	return s.client.Ping(ctx).Err()
}

// Close 关闭连接
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Get 读取字符串值，键不存在时 found=false
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.client == nil {
		return "", false, ErrStoreUnavailable
	}
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetEX 写入值并设置过期时间
func (s *Store) SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil || s.client == nil {
		return ErrStoreUnavailable
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

// SetEXIfExists 仅在键仍存在时覆盖写入（SET XX），键已删除时 ok=false
func (s *Store) SetEXIfExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if s == nil || s.client == nil {
		return false, ErrStoreUnavailable
	}
	ok, err := s.client.SetXX(ctx, key, value, ttl).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Del 删除键
func (s *Store) Del(ctx context.Context, key string) error {
	if s == nil || s.client == nil {
		return ErrStoreUnavailable
	}
	return s.client.Del(ctx, key).Err()
}

// GetDel 原子读取并删除，键不存在时 found=false
func (s *Store) GetDel(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.client == nil {
		return "", false, ErrStoreUnavailable
	}
	val, err := getDelScript.Run(ctx, s.client, []string{key}).Text()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Publish 发布消息到频道
func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	if s == nil || s.client == nil {
		return ErrStoreUnavailable
	}
	return s.client.Publish(ctx, channel, payload).Err()
}

// PSubscribe 按模式订阅频道，调用方负责关闭返回的订阅
func (s *Store) PSubscribe(ctx context.Context, patterns ...string) (*redis.PubSub, error) {
	if s == nil || s.client == nil {
		return nil, ErrStoreUnavailable
	}
	pubsub := s.client.PSubscribe(ctx, patterns...)
	// 等待订阅确认，确保返回后发布的消息不会丢失
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	return pubsub, nil
}

// Key 构建带前缀的辅助键（限流等）
func (s *Store) Key(parts ...string) string {
	prefix := "ts"
	if s != nil && s.prefix != "" {
		prefix = s.prefix
	}
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, prefix)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ":")
}
