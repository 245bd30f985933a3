package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/tableside/internal/constants"
	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/token"
)

const unknownUserAgent = "unknown"

// SessionStore 令牌与会话所需的存储原语
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetEXIfExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	GetDel(ctx context.Context, key string) (string, bool, error)
}

// TableLookup 按桌贴编号查找启用餐桌
type TableLookup interface {
	FindActiveByStaticID(staticID string) (TableSnapshot, error)
}

// SessionAuditor 审计记录（尽力而为，不返回错误）
type SessionAuditor interface {
	Record(event SessionAuditEvent)
}

// TableSessionOptions 扫码入座参数
type TableSessionOptions struct {
	TokenLength int
	TokenTTL    time.Duration
	SessionTTL  time.Duration
	BindToIP    bool
	ClientURL   string
}

// IssuedToken 一次性令牌记录
type IssuedToken struct {
	TableID     string `json:"tableId"`
	TableNumber string `json:"tableNumber"`
	IssuedAt    int64  `json:"issuedAt"`
	CreatedIP   string `json:"createdIp"`
	CreatedUA   string `json:"createdUa"`
	MaxUses     int    `json:"maxUses"`
	Uses        int    `json:"uses"`
}

// ActiveSession 桌台会话记录，时间均为毫秒时间戳
type ActiveSession struct {
	SessionID   string `json:"sessionId"`
	TableID     string `json:"tableId"`
	TableNumber string `json:"tableNumber"`
	CreatedAt   int64  `json:"createdAt"`
	ExpiresAt   int64  `json:"expiresAt"`
	CreatedIP   string `json:"createdIp"`
	CreatedUA   string `json:"createdUa"`
	LastIP      string `json:"lastIp"`
	LastUA      string `json:"lastUa"`
}

// IssueResult 签发结果
type IssueResult struct {
	Token    string `json:"token"`
	DeepLink string `json:"deepLink"`
	TTL      int    `json:"ttl"`
}

// ConsumeResult 消费结果
type ConsumeResult struct {
	TableID           string    `json:"tableId"`
	TableNumber       string    `json:"tableNumber"`
	EstablishedAt     time.Time `json:"establishedAt"`
	SessionID         string    `json:"sessionId"`
	SessionExpiresAt  time.Time `json:"sessionExpiresAt"`
	SessionTTLSeconds int       `json:"sessionTtlSeconds"`
}

// TableSessionService 扫码入座服务：签发一次性令牌、消费令牌并建立桌台会话
type TableSessionService struct {
	store    SessionStore
	tables   TableLookup
	audit    SessionAuditor
	opts     TableSessionOptions
	now      func() time.Time
	generate func(length int) (string, error)
}

// NewTableSessionService 创建扫码入座服务
func NewTableSessionService(store SessionStore, tables TableLookup, audit SessionAuditor, opts TableSessionOptions) *TableSessionService {
	if opts.TokenLength <= 0 {
		opts.TokenLength = 24
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 5 * time.Minute
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 2 * time.Hour
	}
	opts.ClientURL = strings.TrimRight(strings.TrimSpace(opts.ClientURL), "/")
	return &TableSessionService{
		store:    store,
		tables:   tables,
		audit:    audit,
		opts:     opts,
		now:      time.Now,
		generate: token.Generate,
	}
}

// SessionTTL 桌台会话有效期
func (s *TableSessionService) SessionTTL() time.Duration {
	return s.opts.SessionTTL
}

// IssueToken 为桌台签发一次性令牌
func (s *TableSessionService) IssueToken(ctx context.Context, tableStaticID, ip, userAgent string) (*IssueResult, error) {
	table, err := s.tables.FindActiveByStaticID(tableStaticID)
	if err != nil {
		return nil, err
	}

	value, err := s.generate(s.opts.TokenLength)
	if err != nil {
		return nil, err
	}
	userAgent = normalizeUserAgent(userAgent)
	record := IssuedToken{
		TableID:     table.StaticID,
		TableNumber: table.Name,
		IssuedAt:    s.now().UnixMilli(),
		CreatedIP:   ip,
		CreatedUA:   userAgent,
		MaxUses:     1,
		Uses:        0,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetEX(ctx, issuedTokenKey(value), payload, s.opts.TokenTTL); err != nil {
		return nil, err
	}

	s.record(value, table.StaticID, constants.SessionActionIssue, constants.SessionResultSuccess, ip, userAgent)
	logger.Infow("table_token_issued", "table_id", table.StaticID, "token_prefix", tokenPrefix(value), "ttl_seconds", int(s.opts.TokenTTL/time.Second))

	return &IssueResult{
		Token:    value,
		DeepLink: s.opts.ClientURL + "/t/" + value,
		TTL:      int(s.opts.TokenTTL / time.Second),
	}, nil
}

// ConsumeToken 原子消费一次性令牌并建立桌台会话
// 同一令牌并发消费时只有一个调用成功，其余返回 ErrTokenGone。
func (s *TableSessionService) ConsumeToken(ctx context.Context, value, ip, userAgent string) (*ConsumeResult, error) {
	userAgent = normalizeUserAgent(userAgent)
	if !token.IsValidFormat(value, s.opts.TokenLength) {
		s.record(value, constants.UnknownTableID, constants.SessionActionConsume, constants.SessionResultInvalidFormat, ip, userAgent)
		return nil, ErrTokenInvalidFormat
	}

	raw, found, err := s.store.GetDel(ctx, issuedTokenKey(value))
	if err != nil {
		return nil, err
	}
	if !found {
		s.record(value, constants.UnknownTableID, constants.SessionActionConsume, constants.SessionResultNotFoundOrExpired, ip, userAgent)
		return nil, ErrTokenGone
	}

	record, err := parseIssuedToken(raw)
	if err != nil {
		logger.Warnw("table_token_payload_invalid", "token_prefix", tokenPrefix(value), "error", err)
		s.record(value, constants.UnknownTableID, constants.SessionActionConsume, constants.SessionResultInvalidPayload, ip, userAgent)
		return nil, ErrTokenInvalidPayload
	}

	if s.opts.BindToIP && record.CreatedIP != ip {
		logger.Warnw("table_token_ip_mismatch", "table_id", record.TableID, "token_prefix", tokenPrefix(value), "created_ip", record.CreatedIP, "ip", ip)
		s.record(value, record.TableID, constants.SessionActionConsume, constants.SessionResultIPMismatch, ip, userAgent)
		return nil, ErrTokenIPMismatch
	}

	if record.Uses >= record.MaxUses {
		s.record(value, record.TableID, constants.SessionActionConsume, constants.SessionResultMaxUsesExceeded, ip, userAgent)
		return nil, ErrTokenMaxUsesExceeded
	}

	s.record(value, record.TableID, constants.SessionActionConsume, constants.SessionResultSuccess, ip, userAgent)

	sessionID, err := s.generate(s.opts.TokenLength)
	if err != nil {
		return nil, err
	}
	establishedAt := s.now()
	expiresAt := establishedAt.Add(s.opts.SessionTTL)
	session := ActiveSession{
		SessionID:   sessionID,
		TableID:     record.TableID,
		TableNumber: record.TableNumber,
		CreatedAt:   establishedAt.UnixMilli(),
		ExpiresAt:   expiresAt.UnixMilli(),
		CreatedIP:   record.CreatedIP,
		CreatedUA:   record.CreatedUA,
		LastIP:      ip,
		LastUA:      userAgent,
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetEX(ctx, activeSessionKey(sessionID), payload, s.opts.SessionTTL); err != nil {
		return nil, err
	}
	logger.Infow("table_session_established", "table_id", record.TableID, "session_prefix", tokenPrefix(sessionID), "ttl_seconds", int(s.opts.SessionTTL/time.Second))

	return &ConsumeResult{
		TableID:           record.TableID,
		TableNumber:       record.TableNumber,
		EstablishedAt:     time.UnixMilli(session.CreatedAt),
		SessionID:         sessionID,
		SessionExpiresAt:  time.UnixMilli(session.ExpiresAt),
		SessionTTLSeconds: int(s.opts.SessionTTL / time.Second),
	}, nil
}

// ValidateActiveSession 校验桌台会话并刷新 last* 字段，不延长过期时间
func (s *TableSessionService) ValidateActiveSession(ctx context.Context, sessionID, ip, userAgent string) (*ActiveSession, error) {
	key := activeSessionKey(sessionID)
	raw, found, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSessionExpired
	}

	var session ActiveSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil || session.SessionID == "" || session.TableID == "" || session.ExpiresAt <= 0 {
		s.dropSession(ctx, key)
		return nil, ErrSessionInvalid
	}

	now := s.now()
	remaining := time.UnixMilli(session.ExpiresAt).Sub(now)
	if remaining <= 0 {
		s.dropSession(ctx, key)
		return nil, ErrSessionExpired
	}

	if s.opts.BindToIP && session.CreatedIP != "" && session.CreatedIP != ip {
		logger.Warnw("table_session_ip_mismatch", "table_id", session.TableID, "session_prefix", tokenPrefix(sessionID), "created_ip", session.CreatedIP, "ip", ip)
		return nil, ErrSessionIPMismatch
	}

	session.LastIP = ip
	session.LastUA = normalizeUserAgent(userAgent)
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	ttl := remaining.Truncate(time.Second)
	if ttl < time.Second {
		ttl = time.Second
	}
	// 读取后会话可能已被退出删除，仅覆盖仍存在的键
	ok, err := s.store.SetEXIfExists(ctx, key, payload, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// InvalidateActiveSession 删除桌台会话（结账离桌/退出）
func (s *TableSessionService) InvalidateActiveSession(ctx context.Context, sessionID string) error {
	return s.store.Del(ctx, activeSessionKey(sessionID))
}

// normalizeUserAgent 空 UA 统一记为 unknown
func normalizeUserAgent(userAgent string) string {
	if userAgent = strings.TrimSpace(userAgent); userAgent == "" {
		return unknownUserAgent
	}
	return userAgent
}

func (s *TableSessionService) dropSession(ctx context.Context, key string) {
	if err := s.store.Del(ctx, key); err != nil {
		logger.Warnw("table_session_drop_failed", "error", err)
	}
}

func (s *TableSessionService) record(value, tableID, action, result, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(SessionAuditEvent{
		Token:     value,
		TableID:   tableID,
		Action:    action,
		Result:    result,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: s.now(),
	})
}

// issuedTokenWire 用于校验令牌记录结构，缺字段或类型不符均视为非法
type issuedTokenWire struct {
	TableID     *string `json:"tableId"`
	TableNumber *string `json:"tableNumber"`
	IssuedAt    *int64  `json:"issuedAt"`
	CreatedIP   *string `json:"createdIp"`
	CreatedUA   *string `json:"createdUa"`
	MaxUses     *int    `json:"maxUses"`
	Uses        *int    `json:"uses"`
}

func parseIssuedToken(raw string) (IssuedToken, error) {
	var wire issuedTokenWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return IssuedToken{}, err
	}
	if wire.TableID == nil || wire.TableNumber == nil || wire.IssuedAt == nil ||
		wire.CreatedIP == nil || wire.CreatedUA == nil || wire.MaxUses == nil || wire.Uses == nil {
		return IssuedToken{}, errors.New("issued token payload has missing fields")
	}
	if strings.TrimSpace(*wire.TableID) == "" {
		return IssuedToken{}, errors.New("issued token payload has empty table id")
	}
	return IssuedToken{
		TableID:     *wire.TableID,
		TableNumber: *wire.TableNumber,
		IssuedAt:    *wire.IssuedAt,
		CreatedIP:   *wire.CreatedIP,
		CreatedUA:   *wire.CreatedUA,
		MaxUses:     *wire.MaxUses,
		Uses:        *wire.Uses,
	}, nil
}

func issuedTokenKey(value string) string {
	return constants.KeyPrefixIssuedToken + value
}

func activeSessionKey(sessionID string) string {
	return constants.KeyPrefixActiveSession + sessionID
}

// tokenPrefix 日志只输出前 8 位
func tokenPrefix(value string) string {
	if len(value) <= 8 {
		return value
	}
	return value[:8] + "..."
}
