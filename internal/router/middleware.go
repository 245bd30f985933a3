package router

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/tableside/internal/authz"
	"github.com/dujiao-next/tableside/internal/config"
	"github.com/dujiao-next/tableside/internal/constants"
	handlershared "github.com/dujiao-next/tableside/internal/http/handlers/shared"
	"github.com/dujiao-next/tableside/internal/http/response"
	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			"X-Request-ID",
			"X-Table-Session",
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(constants.ContextKeyRequestID, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(constants.ContextKeyRequestID)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// SessionValidator 校验桌台会话
type SessionValidator interface {
	ValidateActiveSession(ctx context.Context, sessionID, ip, userAgent string) (*service.ActiveSession, error)
}

// StaffTokenParser 校验员工令牌
type StaffTokenParser interface {
	ParseJWT(tokenString string) (*service.StaffClaims, error)
}

// TableSessionMiddleware 桌台会话守卫
// 携带有效员工令牌的请求直接放行并标记为员工流量；
// 否则依次读取 x-table-session 请求头与 table_session Cookie 并校验会话
func TableSessionMiddleware(sessions SessionValidator, staff StaffTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" && staff != nil {
			claims, err := staff.ParseJWT(token)
			if err == nil {
				handlershared.SetStaff(c, claims)
				c.Next()
				return
			}
			handlershared.RequestLog(c).Debugw("table_session_staff_token_rejected", "error", err)
		}

		sessionID := extractTableSessionID(c)
		if sessionID == "" {
			handlershared.RespondSessionError(c, service.ErrSessionRequired)
			c.Abort()
			return
		}
		userAgent := strings.TrimSpace(c.Request.UserAgent())
		if userAgent == "" {
			userAgent = "unknown"
		}
		session, err := sessions.ValidateActiveSession(c.Request.Context(), sessionID, c.ClientIP(), userAgent)
		if err != nil {
			handlershared.RespondSessionError(c, err)
			c.Abort()
			return
		}
		handlershared.SetTableSession(c, session)
		c.Next()
	}
}

func extractTableSessionID(c *gin.Context) string {
	if header := strings.TrimSpace(c.GetHeader(constants.TableSessionHeader)); header != "" {
		return header
	}
	if cookie, err := c.Cookie(constants.TableSessionCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(strings.TrimSpace(c.GetHeader("Authorization")), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// StaffJWTMiddleware 员工 JWT 鉴权中间件（后台接口）
func StaffJWTMiddleware(staff StaffTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" || staff == nil {
			handlershared.RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
			c.Abort()
			return
		}
		claims, err := staff.ParseJWT(token)
		if err != nil {
			handlershared.RequestLog(c).Debugw("staff_token_rejected", "error", err)
			handlershared.RespondError(c, response.CodeUnauthorized, "error.admin_token_invalid", nil)
			c.Abort()
			return
		}
		handlershared.SetStaff(c, claims)
		c.Next()
	}
}

// AdminRBACMiddleware 后台 RBAC 鉴权中间件，按员工角色判定
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			handlershared.RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
			c.Abort()
			return
		}

		role := handlershared.GetStaffRole(c)
		if role == "" {
			handlershared.RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
			c.Abort()
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceRole(role, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"role", role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			handlershared.RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"role", role,
				"staff_id", c.GetString(handlershared.ContextKeyStaffID),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			handlershared.RespondError(c, response.CodeForbidden, "error.permission_denied", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
