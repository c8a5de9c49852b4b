// Package router 提供 HTTP 路由注册
// 本文件定义服务状态相关的路由
package router

import (
	"github.com/gin-gonic/gin"

	"linkup_social_server/internal/infrastructure/middleware"
)

// RegisterStatusRoutes 注册服务状态路由（需要认证）
func (rt *Router) RegisterStatusRoutes(engine *gin.Engine) {
	statusGroup := engine.Group("/status", middleware.JWTAuth())
	statusGroup.GET("", rt.handlers.Status.GetStatusHandler)
	statusGroup.GET("/users", rt.handlers.Status.GetOnlineProfilesHandler)
	statusGroup.GET("/calls", rt.handlers.Status.GetCallRecordsHandler)
}
