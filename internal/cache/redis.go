package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/courier-next/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "courier"

// Store 带命名空间前缀的 JSON 键值存储；零值或未启用时读写均为空操作
type Store struct {
	client *redis.Client
	prefix string
}

var defaultStore = &Store{prefix: defaultPrefix}

// NewStore 包装已有客户端，client 为空表示禁用
func NewStore(client *redis.Client, prefix string) *Store {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// InitRedis 按配置创建默认存储，未启用时保持禁用
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		defaultStore = NewStore(nil, "")
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	defaultStore = NewStore(client, cfg.Prefix)
	return nil
}

// Default 全局存储
func Default() *Store {
	return defaultStore
}

// Enabled 全局存储是否可用
func Enabled() bool {
	return defaultStore.Enabled()
}

// Client 全局 Redis 客户端，禁用时为 nil
func Client() *redis.Client {
	return defaultStore.client
}

// Prefix 全局 key 前缀
func Prefix() string {
	return defaultStore.prefix
}

// Close 关闭全局客户端
func Close() error {
	store := defaultStore
	defaultStore = NewStore(nil, store.prefix)
	return store.Close()
}

// Enabled 是否持有客户端
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Close 关闭客户端
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Close()
}

// Key 拼接命名空间前缀
func (s *Store) Key(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.prefix
	}
	return s.prefix + ":" + key
}

// Get 读取 JSON 值；未命中返回 false
func (s *Store) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	raw, err := s.client.Get(ctx, s.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set 写入 JSON 值，ttl<=0 表示不过期
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.Key(key), payload, ttl).Err()
}

// Del 删除
func (s *Store) Del(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Del(ctx, s.Key(key)).Err()
}
