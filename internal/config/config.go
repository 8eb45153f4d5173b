package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/courier-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Queue        QueueConfig        `mapstructure:"queue"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Email        EmailConfig        `mapstructure:"email"`
	Geo          GeoConfig          `mapstructure:"geo"`
	Parcel       ParcelConfig       `mapstructure:"parcel"`
	Notification NotificationConfig `mapstructure:"notification"`
	Events       EventsConfig       `mapstructure:"events"`
}

// AppConfig 应用基础信息
type AppConfig struct {
	Name              string `mapstructure:"name"`
	PublicURL         string `mapstructure:"public_url"` // 通知邮件中的追踪链接前缀
	AdminEmail        string `mapstructure:"admin_email"`
	AdminPassword     string `mapstructure:"admin_password"`
	DefaultLocale     string `mapstructure:"default_locale"`
	DefaultCurrency   string `mapstructure:"default_currency"`
	ShutdownTimeoutMS int    `mapstructure:"shutdown_timeout_ms"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host                string `mapstructure:"host"`
	Port                string `mapstructure:"port"`
	Mode                string `mapstructure:"mode"` // debug / release
	ReadHeaderTimeoutMS int    `mapstructure:"read_header_timeout_ms"`
	ReadTimeoutMS       int    `mapstructure:"read_timeout_ms"`
	WriteTimeoutMS      int    `mapstructure:"write_timeout_ms"`
	IdleTimeoutMS       int    `mapstructure:"idle_timeout_ms"`
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Console    bool   `mapstructure:"console"`
}

// ToLoggerOptions 转换为 logger 配置，service 写入每条日志
func (c LogConfig) ToLoggerOptions(service string) logger.Options {
	return logger.Options{
		Service:    service,
		Dir:        c.Dir,
		Filename:   c.Filename,
		Level:      c.Level,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Console:    c.Console,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	MaxRetry    int            `mapstructure:"max_retry"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// RateLimitConfig 公开接口限流
type RateLimitConfig struct {
	TrackWindowSeconds int `mapstructure:"track_window_seconds"`
	TrackMaxRequests   int `mapstructure:"track_max_requests"`
	TrackBlockSeconds  int `mapstructure:"track_block_seconds"`
	LoginWindowSeconds int `mapstructure:"login_window_seconds"`
	LoginMaxAttempts   int `mapstructure:"login_max_attempts"`
	LoginBlockSeconds  int `mapstructure:"login_block_seconds"`
}

// EmailConfig 邮件服务配置
type EmailConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Driver   string         `mapstructure:"driver"` // smtp / ses
	From     string         `mapstructure:"from"`
	FromName string         `mapstructure:"from_name"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	SES      SESEmailConfig `mapstructure:"ses"`
}

// SMTPConfig SMTP 配置
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

// SESEmailConfig AWS SES 配置，凭证走默认链（环境变量/共享配置/实例角色）
type SESEmailConfig struct {
	Region           string `mapstructure:"region"`
	ConfigurationSet string `mapstructure:"configuration_set"`
}

// GeoConfig 地理编码配置
type GeoConfig struct {
	Provider        string `mapstructure:"provider"` // google / none
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"`
	TimeoutMS       int    `mapstructure:"timeout_ms"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
	Region          string `mapstructure:"region"`
	Language        string `mapstructure:"language"`
}

// Timeout 单次调用超时
func (c GeoConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// CacheTTL 缓存时长
func (c GeoConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ParcelConfig 包裹业务配置
type ParcelConfig struct {
	TrackingPrefix     string `mapstructure:"tracking_prefix"`
	TrackingAttempts   int    `mapstructure:"tracking_attempts"`
	TempPasswordHours  int    `mapstructure:"temp_password_hours"`
	TempPasswordLength int    `mapstructure:"temp_password_length"`
}

// NotificationConfig 通知发件箱配置
type NotificationConfig struct {
	SecretKey            string `mapstructure:"secret_key"`
	RelayIntervalSeconds int    `mapstructure:"relay_interval_seconds"`
	RelayBatchSize       int    `mapstructure:"relay_batch_size"`
}

// RelayInterval 中继扫描间隔，同时作为 pending 事件的滞留阈值
func (c NotificationConfig) RelayInterval() time.Duration {
	if c.RelayIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RelayIntervalSeconds) * time.Second
}

// EventsConfig Kafka 事件流配置
type EventsConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	WriteTimeoutMS int      `mapstructure:"write_timeout_ms"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")
	v.AddConfigPath("./etc")

	setDefaults(v)

	// 环境变量支持，例如 server.port -> SERVER_PORT
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "courier-next")
	v.SetDefault("app.public_url", "http://localhost:8080")
	v.SetDefault("app.admin_email", "admin@courier.local")
	v.SetDefault("app.admin_password", "")
	v.SetDefault("app.default_locale", "zh-CN")
	v.SetDefault("app.default_currency", "USD")
	v.SetDefault("app.shutdown_timeout_ms", 10000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_header_timeout_ms", 5000)
	v.SetDefault("server.read_timeout_ms", 15000)
	v.SetDefault("server.write_timeout_ms", 30000)
	v.SetDefault("server.idle_timeout_ms", 60000)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "courier.log")
	v.SetDefault("log.level", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.console", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/courier.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "courier")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.max_retry", 8)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("rate_limit.track_window_seconds", 60)
	v.SetDefault("rate_limit.track_max_requests", 30)
	v.SetDefault("rate_limit.track_block_seconds", 120)
	v.SetDefault("rate_limit.login_window_seconds", 300)
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.login_block_seconds", 900)
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.driver", "smtp")
	v.SetDefault("email.from", "")
	v.SetDefault("email.from_name", "Courier")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.use_ssl", false)
	v.SetDefault("email.ses.region", "us-east-1")
	v.SetDefault("geo.provider", "google")
	v.SetDefault("geo.api_key", "")
	v.SetDefault("geo.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("geo.timeout_ms", 5000)
	v.SetDefault("geo.cache_ttl_seconds", 86400)
	v.SetDefault("parcel.tracking_prefix", "PCL")
	v.SetDefault("parcel.tracking_attempts", 5)
	v.SetDefault("parcel.temp_password_hours", 24)
	v.SetDefault("parcel.temp_password_length", 12)
	v.SetDefault("notification.secret_key", "change-me-notification-secret")
	v.SetDefault("notification.relay_interval_seconds", 30)
	v.SetDefault("notification.relay_batch_size", 100)
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("events.topic", "parcel.events")
	v.SetDefault("events.write_timeout_ms", 3000)
}
