package public

import "github.com/courier-next/internal/provider"

// Handler 公开与用户侧接口处理器入口
// 说明：包含游客追踪、登录注册以及寄件人/收件人的个人接口。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
