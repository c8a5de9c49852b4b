// Package handler 提供 HTTP 请求处理器
// 本文件处理 WebSocket 连接相关的 API 请求
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkup_social_server/internal/gateway"
	"linkup_social_server/pkg/errorx"
	"linkup_social_server/pkg/util/jwt"
)

// WsHandler 处理 WebSocket 握手请求
type WsHandler struct {
	gateway *gateway.Gateway
}

func NewWsHandler(gw *gateway.Gateway) *WsHandler {
	return &WsHandler{gateway: gw}
}

// WsConnectHandler WebSocket 连接入口
// GET /wss?token=xxx
// 浏览器 WebSocket 无法自定义 Header，token 走查询参数
// 功能:
//   - 校验主 API 签发的 Access Token
//   - 将 HTTP 连接升级为 WebSocket 并启动会话
func (h *WsHandler) WsConnectHandler(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code": errorx.CodeUnauthorized,
			"msg":  "token获取失败",
		})
		return
	}
	claims, err := jwt.ParseToken(token)
	if err != nil || claims.Subject != "access_token" {
		zap.L().Warn("ws握手token校验失败", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"code": errorx.CodeUnauthorized,
			"msg":  "Token 已过期或无效，请重新登录",
		})
		return
	}
	h.gateway.HandleConnection(c, claims.UserID)
}
