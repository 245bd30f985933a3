package app

import (
	"errors"

	"github.com/dujiao-next/tableside/internal/config"
	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/provider"
	"github.com/dujiao-next/tableside/internal/router"
	"github.com/dujiao-next/tableside/internal/worker"

	"gorm.io/gorm"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, db *gorm.DB, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	if db == nil {
		return nil, nil, errors.New("db is nil")
	}

	container, err := provider.NewContainer(cfg, db)
	if err != nil {
		return nil, nil, err
	}

	var services []Service

	// 初始化 HTTP 服务与实时推送转发
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine), container.RealtimeRelay)
	}

	// 初始化 Worker 服务（审计日志异步写入）
	if mode == ModeAll || mode == ModeWorker {
		if cfg.Queue.Enabled {
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				container.Close()
				return nil, nil, err
			}
			services = append(services, workerService)
		} else if mode == ModeWorker {
			container.Close()
			return nil, nil, errors.New("worker mode requires queue.enabled=true")
		} else {
			logger.Infow("app_worker_skipped", "reason", "queue_disabled")
		}
	}

	if len(services) == 0 {
		container.Close()
		return nil, nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), container, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return err
	}
	runner, container, err := BuildRunner(opts.Config, opts.DB, mode)
	if err != nil {
		return err
	}
	defer container.Close()

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", mode, "services", runner.Names())
	return RunWithOptions(runner, opts)
}
