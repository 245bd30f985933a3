package service

import (
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/tableside/internal/constants"
	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/metrics"
	"github.com/dujiao-next/tableside/internal/models"
	"github.com/dujiao-next/tableside/internal/queue"
	"github.com/dujiao-next/tableside/internal/repository"
)

const (
	defaultStatsHours = 24
	maxStatsHours     = 720
	maxUserAgentLen   = 512
	// 未启用队列时后台写库的并发上限，超出即丢弃
	maxPendingWrites = 64
)

// SessionAuditEvent 扫码审计事件
type SessionAuditEvent struct {
	Token     string
	TableID   string
	Action    string
	Result    string
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// SessionStats 审计统计结果
type SessionStats struct {
	Hours  int                         `json:"hours"`
	Since  time.Time                   `json:"since"`
	Groups []repository.SessionLogStat `json:"groups"`
}

// SessionAuditService 扫码审计服务
type SessionAuditService struct {
	repo        repository.TableSessionLogRepository
	queueClient *queue.Client
	now         func() time.Time

	pending chan struct{}
	wg      sync.WaitGroup
}

// NewSessionAuditService 创建审计服务
func NewSessionAuditService(repo repository.TableSessionLogRepository, queueClient *queue.Client) *SessionAuditService {
	return &SessionAuditService{
		repo:        repo,
		queueClient: queueClient,
		now:         time.Now,
		pending:     make(chan struct{}, maxPendingWrites),
	}
}

// Record 尽力记录审计事件，任何失败只写日志，绝不影响调用方
// 启用队列时入队写入，未启用或入队失败时转为后台写库。
func (s *SessionAuditService) Record(event SessionAuditEvent) {
	if s == nil {
		return
	}
	event = s.normalize(event)
	metrics.ObserveTableSession(event.Action, event.Result)
	if event.TableID == "" || event.TableID == constants.UnknownTableID {
		logger.Debugw("session_audit_skip_unknown_table", "action", event.Action, "result", event.Result)
		return
	}

	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueSessionAudit(queue.SessionAuditPayload{
			Token:     event.Token,
			TableID:   event.TableID,
			Action:    event.Action,
			Result:    event.Result,
			IP:        event.IP,
			UserAgent: event.UserAgent,
			CreatedAt: event.CreatedAt,
		})
		if err == nil {
			return
		}
		logger.Warnw("session_audit_enqueue_failed", "table_id", event.TableID, "action", event.Action, "error", err)
	}

	s.writeAsync(event)
}

// writeAsync 后台写库，不阻塞扫码请求；并发写入已满时丢弃并告警
func (s *SessionAuditService) writeAsync(event SessionAuditEvent) {
	select {
	case s.pending <- struct{}{}:
	default:
		logger.Warnw("session_audit_write_dropped", "table_id", event.TableID, "action", event.Action, "result", event.Result)
		return
	}
	s.wg.Add(1)
	go func() {
		defer func() {
			<-s.pending
			s.wg.Done()
		}()
		if err := s.Write(event); err != nil {
			logger.Warnw("session_audit_write_failed",
				"table_id", event.TableID,
				"action", event.Action,
				"result", event.Result,
				"error", err,
			)
		}
	}()
}

// Wait 等待后台审计写入全部完成
func (s *SessionAuditService) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

// Write 同步写入审计日志（队列消费者调用）
func (s *SessionAuditService) Write(event SessionAuditEvent) error {
	if s == nil || s.repo == nil {
		return nil
	}
	event = s.normalize(event)
	if event.TableID == "" || event.TableID == constants.UnknownTableID {
		return nil
	}
	return s.repo.Create(&models.TableSessionLog{
		Token:     event.Token,
		TableID:   event.TableID,
		Action:    event.Action,
		Result:    event.Result,
		IP:        event.IP,
		UserAgent: event.UserAgent,
		CreatedAt: event.CreatedAt,
	})
}

// Stats 统计最近 hours 小时内按动作与结果分组的次数
func (s *SessionAuditService) Stats(hours int) (*SessionStats, error) {
	if hours <= 0 {
		hours = defaultStatsHours
	}
	if hours > maxStatsHours {
		hours = maxStatsHours
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	groups, err := s.repo.CountGroupedSince(since)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []repository.SessionLogStat{}
	}
	return &SessionStats{Hours: hours, Since: since, Groups: groups}, nil
}

// RecentLogs 查询某张桌最近的审计日志
func (s *SessionAuditService) RecentLogs(tableID string, limit int) ([]models.TableSessionLog, error) {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return nil, ErrTableStaticIDRequired
	}
	logs, err := s.repo.ListByTable(tableID, limit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.TableSessionLog{}
	}
	return logs, nil
}

func (s *SessionAuditService) normalize(event SessionAuditEvent) SessionAuditEvent {
	event.TableID = strings.TrimSpace(event.TableID)
	event.Action = strings.TrimSpace(event.Action)
	event.Result = strings.TrimSpace(event.Result)
	event.IP = strings.TrimSpace(event.IP)
	if len(event.UserAgent) > maxUserAgentLen {
		event.UserAgent = strings.ToValidUTF8(event.UserAgent[:maxUserAgentLen], "")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	return event
}
