package queue

import (
	"encoding/json"
	"time"

	"github.com/dujiao-next/tableside/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskSessionAuditWrite 扫码审计日志写入任务
	TaskSessionAuditWrite = constants.TaskSessionAuditWrite
)

// SessionAuditPayload 审计日志任务载荷
type SessionAuditPayload struct {
	Token     string    `json:"token"`
	TableID   string    `json:"table_id"`
	Action    string    `json:"action"`
	Result    string    `json:"result"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSessionAuditTask 创建审计日志任务
func NewSessionAuditTask(payload SessionAuditPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionAuditWrite, body), nil
}

// ParseSessionAuditPayload 解析审计日志任务载荷
func ParseSessionAuditPayload(task *asynq.Task) (SessionAuditPayload, error) {
	var payload SessionAuditPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
