package provider

import (
	"context"
	"time"

	"github.com/dujiao-next/tableside/internal/authz"
	"github.com/dujiao-next/tableside/internal/cache"
	"github.com/dujiao-next/tableside/internal/config"
	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/queue"
	"github.com/dujiao-next/tableside/internal/realtime"
	"github.com/dujiao-next/tableside/internal/repository"
	"github.com/dujiao-next/tableside/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	Store       *cache.Store
	QueueClient *queue.Client

	// Repositories
	DiningTableRepo     repository.DiningTableRepository
	TableSessionLogRepo repository.TableSessionLogRepository
	SharedCartRepo      repository.SharedCartRepository

	// Services
	AuthzService        *authz.Service
	StaffAuthService    *service.StaffAuthService
	TableRegistry       *service.TableRegistry
	DiningTableService  *service.DiningTableService
	SessionAuditService *service.SessionAuditService
	TableSessionService *service.TableSessionService
	SharedCartService   *service.SharedCartService

	// Realtime
	RealtimeHub     *realtime.Hub
	RealtimeGateway *realtime.Gateway
	RealtimeRelay   *realtime.Relay
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	store := cache.NewStore(&cfg.Redis)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		// 会话与购物车推送依赖 Redis，此处仅告警，具体请求会返回 500
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		Store:       store,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}

	// 3. 初始化实时推送
	c.initRealtime()

	return c, nil
}

func (c *Container) initRepositories() {
	c.DiningTableRepo = repository.NewDiningTableRepository(c.DB)
	c.TableSessionLogRepo = repository.NewTableSessionLogRepository(c.DB)
	c.SharedCartRepo = repository.NewSharedCartRepository(c.DB)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return err
	}
	c.AuthzService = authzService

	qr := c.Config.QR
	c.StaffAuthService = service.NewStaffAuthService(c.Config.JWT.SecretKey)
	c.TableRegistry = service.NewTableRegistry(c.DiningTableRepo, time.Duration(qr.TableCacheSeconds)*time.Second)
	c.DiningTableService = service.NewDiningTableService(c.DiningTableRepo, c.TableRegistry)
	c.SessionAuditService = service.NewSessionAuditService(c.TableSessionLogRepo, c.QueueClient)
	c.TableSessionService = service.NewTableSessionService(c.Store, c.TableRegistry, c.SessionAuditService, service.TableSessionOptions{
		TokenLength: qr.TokenLength,
		TokenTTL:    qr.TokenTTL(),
		SessionTTL:  qr.SessionTTL(),
		BindToIP:    qr.BindToIP,
		ClientURL:   qr.PrimaryClientURL(),
	})
	c.SharedCartService = service.NewSharedCartService(c.SharedCartRepo, c.Store)
	return nil
}

func (c *Container) initRealtime() {
	c.RealtimeHub = realtime.NewHub()
	c.RealtimeGateway = realtime.NewGateway(c.RealtimeHub, realtime.OptionsFromConfig(c.Config.Realtime))
	c.RealtimeRelay = realtime.NewRelay(c.Store, c.RealtimeHub)
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	c.SessionAuditService.Wait()
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logger.Warnw("provider_close_redis_failed", "error", err)
		}
	}
}
