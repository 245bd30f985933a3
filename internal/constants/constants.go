package constants

// Redis 键与频道前缀（不加全局前缀，与其他服务共享）
const (
	KeyPrefixIssuedToken   = "table:session:"
	KeyPrefixActiveSession = "table:active:"
	ChannelPrefixCart      = "cart:"
	ChannelPrefixOrders    = "orders:"
	ChannelProducts        = "products"
	ChannelSettings        = "settings"
	ChannelBanners         = "banners"
)

// 扫码审计动作
const (
	SessionActionIssue   = "issue"
	SessionActionConsume = "consume"
)

// 扫码审计结果
const (
	SessionResultSuccess           = "success"
	SessionResultNotFoundOrExpired = "not_found_or_expired"
	SessionResultIPMismatch        = "ip_mismatch"
	SessionResultMaxUsesExceeded   = "max_uses_exceeded"
	SessionResultInvalidFormat     = "invalid_format"
	SessionResultInvalidPayload    = "invalid_payload"
)

// UnknownTableID 无法解析桌台时写入的占位编号，此类审计不落库
const UnknownTableID = "unknown"

// ContextKeyRequestID 请求 ID 在 gin 上下文中的键
const ContextKeyRequestID = "request_id"

// 桌台会话传递方式
const (
	TableSessionHeader = "x-table-session"
	TableSessionCookie = "table_session"
)

// 桌台会话失败原因（返回给客户端）
const (
	SessionReasonRequired   = "TABLE_SESSION_REQUIRED"
	SessionReasonExpired    = "SESSION_EXPIRED"
	SessionReasonInvalid    = "SESSION_INVALID"
	SessionReasonIPMismatch = "SESSION_IP_MISMATCH"
	SessionReasonMismatch   = "TABLE_SESSION_MISMATCH"
)

// 实时推送事件
const (
	EventJoinCart        = "joinCart"
	EventLeaveCart       = "leaveCart"
	EventPing            = "ping"
	EventPong            = "pong"
	EventCartSubscribed  = "cartSubscribed"
	EventCartUpdated     = "cartUpdated"
	EventUserJoined      = "userJoined"
	EventUserLeft        = "userLeft"
	EventOrderUpdated    = "orderUpdated"
	EventProductUpdated  = "productUpdated"
	EventSettingsUpdated = "settingsUpdated"
	EventBannersUpdated  = "bannersUpdated"
	EventError           = "error"
)

// RoomPrefixTable 桌台广播分组前缀
const RoomPrefixTable = "table:"

// 后台角色（数值越大权限越高）
const (
	RoleAdmin     = "ADMIN"
	RolePrimary   = "PRIMARY"
	RoleSecondary = "SECONDARY"
	RoleUser      = "USER"
)

// 队列名称
const (
	QueueDefault = "default"
	QueueAudit   = "audit"
)

// 异步任务类型
const (
	TaskSessionAuditWrite = "table_session:audit_write"
)
