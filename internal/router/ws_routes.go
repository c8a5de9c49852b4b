// Package router 提供 HTTP 路由注册
// 本文件定义 WebSocket 相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes 注册 WebSocket 相关路由
func (rt *Router) RegisterWebSocketRoutes(engine *gin.Engine) {
	// WebSocket 连接入口，认证在握手处理器内完成
	// 请求示例: wss://host:port/wss?token=xxx
	engine.GET("/wss", rt.handlers.Ws.WsConnectHandler)
}
