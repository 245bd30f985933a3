package models

import "time"

// TableSessionLog 扫码入座审计日志
// 说明：记录每一次令牌签发与消费尝试，只追加，不更新也不删除。
type TableSessionLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Token     string    `gorm:"type:varchar(128);index;not null" json:"token"`
	TableID   string    `gorm:"type:varchar(32);index;not null" json:"table_id"` // 桌贴编号
	Action    string    `gorm:"type:varchar(16);index:idx_session_log_action_result;not null" json:"action"`
	Result    string    `gorm:"type:varchar(64);index:idx_session_log_action_result;not null" json:"result"`
	IP        string    `gorm:"type:varchar(64);not null;default:''" json:"ip"`
	UserAgent string    `gorm:"type:varchar(512);not null;default:''" json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (TableSessionLog) TableName() string {
	return "table_session_logs"
}
