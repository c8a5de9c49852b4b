// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
// 遵循依赖倒置原则，通过构造函数注入依赖
package handler

import (
	"linkup_social_server/internal/dao/mysql/repository"
	"linkup_social_server/internal/gateway"
	"linkup_social_server/internal/service/presence"
)

// Handlers 聚合所有 Handler 实例
// 作为依赖注入的入口，Router 层通过此结构访问各个 Handler
type Handlers struct {
	Ws     *WsHandler
	Status *StatusHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(gw *gateway.Gateway, registry *presence.Registry,
	users repository.UserRepository, records repository.CallRecordRepository) *Handlers {
	return &Handlers{
		Ws:     NewWsHandler(gw),
		Status: NewStatusHandler(registry, users, records),
	}
}
