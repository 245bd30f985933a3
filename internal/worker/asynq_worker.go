package worker

import (
	"context"
	"strings"

	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/provider"
	"github.com/dujiao-next/tableside/internal/queue"
	"github.com/dujiao-next/tableside/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSessionAuditWrite, c.handleSessionAuditWrite)
}

func (c *Consumer) handleSessionAuditWrite(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_session_audit_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseSessionAuditPayload(task)
	if err != nil {
		// 载荷损坏重试也无意义，直接丢弃
		logger.Warnw("worker_session_audit_unmarshal_failed", "error", err)
		return asynq.SkipRetry
	}
	if strings.TrimSpace(payload.TableID) == "" || strings.TrimSpace(payload.Action) == "" {
		logger.Debugw("worker_session_audit_skip_invalid_payload", "table_id", payload.TableID, "action", payload.Action)
		return nil
	}
	if c.Container == nil || c.SessionAuditService == nil {
		logger.Warnw("worker_session_audit_skip_service_nil", "table_id", payload.TableID)
		return nil
	}
	if err := c.SessionAuditService.Write(service.SessionAuditEvent{
		Token:     payload.Token,
		TableID:   payload.TableID,
		Action:    payload.Action,
		Result:    payload.Result,
		IP:        payload.IP,
		UserAgent: payload.UserAgent,
		CreatedAt: payload.CreatedAt,
	}); err != nil {
		logger.Warnw("worker_session_audit_write_failed",
			"table_id", payload.TableID,
			"action", payload.Action,
			"result", payload.Result,
			"error", err,
		)
		return err
	}
	return nil
}
