package router

import (
	"strings"

	"github.com/dujiao-next/tableside/internal/config"
	adminhandlers "github.com/dujiao-next/tableside/internal/http/handlers/admin"
	publichandlers "github.com/dujiao-next/tableside/internal/http/handlers/public"
	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/metrics"
	"github.com/dujiao-next/tableside/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warnw("router_trusted_proxies_invalid", "proxies", cfg.Server.TrustedProxies, "error", err)
	}

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	issueRule := RateLimitRule{
		Name:          "qr_issue",
		WindowSeconds: cfg.RateLimit.Issue.WindowSeconds,
		MaxRequests:   cfg.RateLimit.Issue.MaxRequests,
		BlockSeconds:  cfg.RateLimit.Issue.BlockSeconds,
	}
	consumeRule := RateLimitRule{
		Name:          "qr_consume",
		WindowSeconds: cfg.RateLimit.Consume.WindowSeconds,
		MaxRequests:   cfg.RateLimit.Consume.MaxRequests,
		BlockSeconds:  cfg.RateLimit.Consume.BlockSeconds,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(metrics.GinMiddleware())
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(metrics.Handler()))
	}

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 扫码入座（公开，按 IP 限流）
		qr := apiV1.Group("/qr")
		{
			issueLimit := RateLimitMiddleware(c.Store, issueRule, KeyByIP)
			qr.POST("/issue/:tableStaticId", issueLimit, publicHandler.IssueQRToken)
			qr.GET("/issue/:tableStaticId", issueLimit, publicHandler.RedirectQRToken)
			qr.GET("/consume/:token", RateLimitMiddleware(c.Store, consumeRule, KeyByIP), publicHandler.ConsumeQRToken)
		}

		// 桌台会话接口（需会话或员工令牌）
		table := apiV1.Group("")
		table.Use(TableSessionMiddleware(c.TableSessionService, c.StaffAuthService))
		{
			table.GET("/table/session", publicHandler.GetTableSession)
			table.POST("/table/session/logout", publicHandler.LogoutTableSession)

			table.GET("/shared-carts/:tableId", publicHandler.GetSharedCart)
			table.POST("/shared-carts/:tableId/items", publicHandler.AddSharedCartItem)
			table.PUT("/shared-carts/:tableId/items/:itemId", publicHandler.UpdateSharedCartItem)
			table.DELETE("/shared-carts/:tableId/items/:itemId", publicHandler.RemoveSharedCartItem)
			table.DELETE("/shared-carts/:tableId", publicHandler.ClearSharedCart)

			table.GET("/ws", publicHandler.ServeRealtime)
		}

		// 员工后台接口
		admin := apiV1.Group("/admin")
		admin.Use(StaffJWTMiddleware(c.StaffAuthService), AdminRBACMiddleware(c.AuthzService))
		{
			admin.GET("/qr/stats", adminHandler.GetQRStats)
			admin.GET("/realtime/rooms/:tableId", adminHandler.GetRealtimeRoom)
			admin.GET("/tables", adminHandler.GetAdminDiningTables)
			admin.POST("/tables", adminHandler.CreateAdminDiningTable)
			admin.GET("/tables/:tableId/session-logs", adminHandler.GetAdminTableSessionLogs)

			admin.GET("/authz/me", adminHandler.GetAuthzMe)
			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			admin.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			admin.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
