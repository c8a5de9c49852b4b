// handler_presence.go
// 在线状态相关事件：注册、特性通道、在线名单、登出
package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"linkup_social_server/internal/dto/request"
	"linkup_social_server/internal/dto/respond"
	"linkup_social_server/pkg/constants"
)

// handleRegisterUser 登记当前连接为用户在线连接
// 注册的 userId 必须与握手 token 的身份一致
func (g *Gateway) handleRegisterUser(ctx context.Context, c *Conn, data json.RawMessage) error {
	var req request.RegisterUserRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}
	if req.UserId != c.authUserId {
		return fmt.Errorf("注册身份与连接凭证不一致")
	}
	if err := g.registry.Register(ctx, req.UserId, c.Id); err != nil {
		return fmt.Errorf("注册失败，请重试")
	}
	c.userId = req.UserId
	g.broadcastOnlineSnapshot(ctx)
	return nil
}

// handleUpdateFeatureChannel 把当前连接登记为用户的特性通道
func (g *Gateway) handleUpdateFeatureChannel(ctx context.Context, c *Conn, data json.RawMessage) error {
	var req request.UpdateFeatureChannelRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}
	if req.UserId != c.authUserId {
		return fmt.Errorf("注册身份与连接凭证不一致")
	}
	if err := g.registry.RegisterFeatureChannel(ctx, req.UserId, c.Id); err != nil {
		return fmt.Errorf("特性通道更新失败，请重试")
	}
	c.userId = req.UserId
	return nil
}

// handleGetOnlineUsers 向当前连接回送在线用户全量快照
func (g *Gateway) handleGetOnlineUsers(ctx context.Context, c *Conn, _ json.RawMessage) error {
	g.SendToConn(c.Id, constants.EventOnlineUsersUpdated, respond.OnlineUsersRespond{
		UserIds: g.registry.ListOnline(ctx),
	})
	return nil
}

// handleLogout 删除用户的全部在线记录并广播快照
// 各连接的 WebSocket 断开由客户端自行发起
func (g *Gateway) handleLogout(ctx context.Context, c *Conn, data json.RawMessage) error {
	var req request.LogoutRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}
	if req.UserId != c.authUserId {
		return fmt.Errorf("注册身份与连接凭证不一致")
	}
	if err := g.registry.DeregisterByUser(ctx, req.UserId); err != nil {
		return fmt.Errorf("登出失败，请重试")
	}
	g.broadcastOnlineSnapshot(ctx)
	return nil
}

// requireRegistered 信令与房间事件要求连接已完成注册
func (c *Conn) requireRegistered() (string, error) {
	if c.userId == "" {
		return "", fmt.Errorf("连接尚未注册")
	}
	return c.userId, nil
}
