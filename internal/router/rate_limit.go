package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/i18n"
	"github.com/courier-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中提取限流维度
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流；超限后 key 封禁 BlockSeconds，未配置封禁时等到窗口结束
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	MessageKey    string
}

// KEYS[1]=计数 key，ARGV=窗口秒数、上限、封禁秒数；返回 {计数, 剩余秒数}
var rateLimitScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
if tonumber(ARGV[3]) > 0 and hits == tonumber(ARGV[2]) + 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[3])
end
return {hits, redis.call("TTL", KEYS[1])}
`)

var errRateLimitReply = errors.New("unexpected rate limit reply")

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) storageKey(subject string) string {
	if r.Prefix == "" {
		return subject
	}
	return r.Prefix + ":" + subject
}

// hit 记录一次访问，返回当前计数与 key 剩余存活秒数
func (r RateLimitRule) hit(ctx context.Context, client *redis.Client, subject string) (int64, int64, error) {
	reply, err := rateLimitScript.Run(ctx, client, []string{r.storageKey(subject)}, r.WindowSeconds, r.MaxRequests, r.BlockSeconds).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(reply) != 2 {
		return 0, 0, errRateLimitReply
	}
	return reply[0], reply[1], nil
}

// retryAfter TTL 缺失（-1/-2）时回退到窗口长度
func (r RateLimitRule) retryAfter(ttl int64) int {
	if ttl > 0 {
		return int(ttl)
	}
	if r.BlockSeconds > 0 {
		return r.BlockSeconds
	}
	if r.WindowSeconds > 0 {
		return r.WindowSeconds
	}
	return 1
}

// RateLimitMiddleware 基于 Redis 的限流；client 为空时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	msgKey := strings.TrimSpace(rule.MessageKey)
	if msgKey == "" {
		msgKey = "error.rate_limited"
	}
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		subject := ""
		if keyFunc != nil {
			subject = strings.TrimSpace(keyFunc(c))
		}
		if subject == "" {
			subject = c.ClientIP()
		}

		hits, ttl, err := rule.hit(c.Request.Context(), client, subject)
		if err != nil {
			logger.Warnw("rate_limit_unavailable", "prefix", rule.Prefix, "error", err)
			response.Error(c, response.CodeInternal, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			c.Abort()
			return
		}
		if hits <= int64(rule.MaxRequests) {
			c.Next()
			return
		}

		wait := rule.retryAfter(ttl)
		c.Header("Retry-After", strconv.Itoa(wait))
		response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, wait))
		c.Abort()
	}
}

// KeyByIP 按客户端 IP 限流
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 按 JSON 字段（小写）与 IP 组合限流，字段缺失时退化为 IP
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(peekJSONString(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return fmt.Sprintf("%s|%s", value, c.ClientIP())
	}
}

// peekJSONString 读取请求体中的字符串字段，并把请求体还原给后续 handler
func peekJSONString(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(fields[field], &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
