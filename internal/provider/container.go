package provider

import (
	"context"
	"strings"

	"github.com/courier-next/internal/authz"
	"github.com/courier-next/internal/cache"
	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/events"
	"github.com/courier-next/internal/geo"
	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/queue"
	"github.com/courier-next/internal/repository"
	"github.com/courier-next/internal/service"
)

// Infrastructure 外部依赖，测试中可替换为假实现
type Infrastructure struct {
	Geocoder  geo.Geocoder
	Mailer    service.Mailer
	Enqueuer  service.NotificationEnqueuer
	Publisher *events.Publisher
}

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Publisher   *events.Publisher
	Geocoder    geo.Geocoder
	Mailer      service.Mailer
	Enqueuer    service.NotificationEnqueuer

	// Repositories
	UserRepo              repository.UserRepository
	ParcelRequestRepo     repository.ParcelRequestRepository
	ParcelRepo            repository.ParcelRepository
	PaymentRepo           repository.PaymentRepository
	ParcelEventRepo       repository.ParcelEventRepository
	NotificationEventRepo repository.NotificationEventRepository
	AuthzAuditLogRepo     repository.AuthzAuditLogRepository

	// Services
	AuthzService         *authz.Service
	AuthzAuditService    *service.AuthzAuditService
	AuthService          *service.AuthService
	IdentityService      *service.IdentityService
	NotificationService  *service.NotificationService
	ParcelService        *service.ParcelService
	ConversionService    *service.ConversionService
	ParcelRequestService *service.ParcelRequestService
}

// NewContainer 按配置初始化外部依赖与容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端，未启用时事件留在发件箱等待中继
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
	}

	mailer, err := service.NewEmailService(context.Background(), &cfg.Email)
	if err != nil {
		logger.Errorw("provider_init_email_failed", "error", err)
		mailer = nil
	}

	infra := Infrastructure{
		Geocoder:  buildGeocoder(cfg.Geo),
		Publisher: events.NewPublisher(cfg.Events),
	}
	if mailer != nil {
		infra.Mailer = mailer
	}
	if queueClient != nil {
		infra.Enqueuer = queueClient
	}

	c := NewContainerWith(cfg, infra)
	c.QueueClient = queueClient
	return c
}

// NewContainerWith 使用给定的外部依赖初始化容器
func NewContainerWith(cfg *config.Config, infra Infrastructure) *Container {
	c := &Container{
		Config:    cfg,
		Publisher: infra.Publisher,
		Geocoder:  infra.Geocoder,
		Mailer:    infra.Mailer,
		Enqueuer:  infra.Enqueuer,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func buildGeocoder(cfg config.GeoConfig) geo.Geocoder {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == constants.GeoProviderNone || strings.TrimSpace(cfg.APIKey) == "" {
		logger.Infow("provider_geocoder_disabled", "provider", provider)
		return geo.Disabled{}
	}
	var g geo.Geocoder = geo.NewGoogleClient(geo.GoogleOptions{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout(),
		Language: cfg.Language,
		Region:   cfg.Region,
	})
	if cache.Enabled() {
		g = geo.NewCached(g, cache.Default(), cfg.CacheTTL())
	}
	return g
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.ParcelRequestRepo = repository.NewParcelRequestRepository(db)
	c.ParcelRepo = repository.NewParcelRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.ParcelEventRepo = repository.NewParcelEventRepository(db)
	c.NotificationEventRepo = repository.NewNotificationEventRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)
	c.AuthService = service.NewAuthService(c.Config, c.UserRepo)
	c.IdentityService = service.NewIdentityService(c.Config, c.UserRepo)
	c.NotificationService = service.NewNotificationService(c.Config, c.NotificationEventRepo, c.Mailer, c.Enqueuer)
	c.ParcelService = service.NewParcelService(c.Config, service.ParcelServiceOptions{
		ParcelRepo:    c.ParcelRepo,
		PaymentRepo:   c.PaymentRepo,
		EventRepo:     c.ParcelEventRepo,
		UserRepo:      c.UserRepo,
		Identity:      c.IdentityService,
		Notifications: c.NotificationService,
		Geocoder:      c.Geocoder,
		Publisher:     c.Publisher,
	})
	c.ConversionService = service.NewConversionService(c.ParcelRequestRepo, c.ParcelRepo, c.UserRepo, c.ParcelService, c.NotificationService)
	c.ParcelRequestService = service.NewParcelRequestService(c.ParcelRequestRepo, c.UserRepo, c.IdentityService, c.NotificationService, c.ConversionService)
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_failed", "error", err)
	}
	if err := c.Publisher.Close(); err != nil {
		logger.Warnw("provider_close_publisher_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
