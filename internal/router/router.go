package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/courier-next/internal/authz"
	"github.com/courier-next/internal/cache"
	"github.com/courier-next/internal/config"
	adminhandlers "github.com/courier-next/internal/http/handlers/admin"
	publichandlers "github.com/courier-next/internal/http/handlers/public"
	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions(cfg.App.Name))
	}
	r := gin.New()

	// 初始化 Handler（按公开/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := cache.Prefix()
	redisClient := cache.Client()
	trackRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:track", redisPrefix),
		WindowSeconds: cfg.RateLimit.TrackWindowSeconds,
		MaxRequests:   cfg.RateLimit.TrackMaxRequests,
		BlockSeconds:  cfg.RateLimit.TrackBlockSeconds,
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.RateLimit.LoginWindowSeconds,
		MaxRequests:   cfg.RateLimit.LoginMaxAttempts,
		BlockSeconds:  cfg.RateLimit.LoginBlockSeconds,
	}
	registerRule := loginRule
	registerRule.Prefix = fmt.Sprintf("%s:rate:register", redisPrefix)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/track/:tracking_number", RateLimitMiddleware(redisClient, trackRule, KeyByIP), publicHandler.TrackParcel)
		}

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", RateLimitMiddleware(redisClient, registerRule, KeyByIPAndJSONField("email")), publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 需要鉴权的接口，角色策略由 casbin 判定
		authorized := apiV1.Group("")
		authorized.Use(JWTAuthMiddleware(c.AuthService), RBACMiddleware(c.AuthzService))
		{
			authorized.GET("/auth/me", publicHandler.GetCurrentUser)
			authorized.PUT("/auth/password", publicHandler.ChangePassword)

			// 寄件申请
			authorized.POST("/parcel-requests", publicHandler.SubmitParcelRequest)
			authorized.GET("/parcel-requests", publicHandler.ListMyParcelRequests)
			authorized.GET("/parcel-requests/:id", publicHandler.GetMyParcelRequest)
			authorized.DELETE("/parcel-requests/:id", publicHandler.DeleteMyParcelRequest)

			// 包裹
			authorized.GET("/parcels", publicHandler.ListMyParcels)
			authorized.GET("/parcels/:id", publicHandler.GetMyParcel)
			authorized.GET("/parcels/:id/history", publicHandler.GetParcelHistory)
			authorized.GET("/parcels/:id/route", publicHandler.GetParcelRoute)
			authorized.POST("/parcels/:id/receive", publicHandler.ReceiveParcel)

			// 管理员接口
			admin := authorized.Group("/admin")
			{
				// 寄件申请审批
				admin.GET("/parcel-requests", adminHandler.ListParcelRequests)
				admin.GET("/parcel-requests/:id", adminHandler.GetParcelRequest)
				admin.PUT("/parcel-requests/:id/status", adminHandler.SetParcelRequestStatus)
				admin.POST("/parcel-requests/:id/convert", adminHandler.ConvertParcelRequest)
				admin.DELETE("/parcel-requests/:id", adminHandler.DeleteParcelRequest)

				// 包裹管理
				admin.GET("/parcels", adminHandler.ListParcels)
				admin.POST("/parcels", adminHandler.CreateParcel)
				admin.PUT("/parcels/status", adminHandler.BulkUpdateParcelStatus)
				admin.GET("/parcels/:id", adminHandler.GetParcel)
				admin.PUT("/parcels/:id/status", adminHandler.UpdateParcelStatus)
				admin.DELETE("/parcels/:id", adminHandler.DeleteParcel)

				// 通知与运费
				admin.GET("/notifications", adminHandler.ListNotificationEvents)
				admin.GET("/pricing/tiers", adminHandler.ListPricingTiers)

				// 权限管理
				admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
				admin.POST("/authz/roles", adminHandler.CreateAuthzRole)
				admin.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				admin.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				admin.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				admin.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				admin.GET("/authz/permissions", func(ctx *gin.Context) {
					response.Success(ctx, buildPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type permissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildPermissionCatalog 列出需要鉴权的路由，供配置角色策略时选择
func buildPermissionCatalog(engine *gin.Engine) []permissionCatalogItem {
	if engine == nil {
		return []permissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]permissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/") || isAnonymousPath(item.Path) {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, permissionCatalogItem{
			Module:     derivePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func isAnonymousPath(path string) bool {
	switch {
	case strings.HasPrefix(path, "/api/v1/public/"):
		return true
	case path == "/api/v1/auth/login", path == "/api/v1/auth/register":
		return true
	}
	return false
}

func derivePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	return "admin:" + segments[1]
}
