package queue

import (
	"testing"
	"time"

	"github.com/dujiao-next/tableside/internal/config"
)

func TestDisabledClientIsNoop(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueSessionAudit(SessionAuditPayload{Token: "t"}); err != nil {
		t.Fatalf("disabled enqueue should be noop: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestSessionAuditTaskPayload(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	task, err := NewSessionAuditTask(SessionAuditPayload{
		Token:     "tok",
		TableID:   "4",
		Action:    "consume",
		Result:    "ip_mismatch",
		IP:        "10.0.0.1",
		UserAgent: "ua",
		CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskSessionAuditWrite {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	payload, err := ParseSessionAuditPayload(task)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if payload.TableID != "4" || payload.Result != "ip_mismatch" || !payload.CreatedAt.Equal(created) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected addr: %s", opt.Addr)
	}
	if cfg.Concurrency != 5 || cfg.Queues[AuditQueue] != 1 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}

	opt, cfg = BuildServerConfig(&config.QueueConfig{Host: "redis", Port: 6380, DB: 2, Concurrency: 3, Queues: map[string]int{"audit": 4}})
	if opt.Addr != "redis:6380" || opt.DB != 2 || cfg.Concurrency != 3 || cfg.Queues["audit"] != 4 {
		t.Fatalf("unexpected custom config: %+v %+v", opt, cfg)
	}
}
