package public

import "github.com/dujiao-next/tableside/internal/provider"

// Handler 前台/公开接口处理器入口
// 说明：该处理器用于扫码入座、桌台会话、共享购物车与实时连接。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
