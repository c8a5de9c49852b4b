// handler_room.go
// 房间事件：加入、退出、房间内消息分发
package gateway

import (
	"context"
	"encoding/json"
	"time"

	"linkup_social_server/internal/dto/request"
	"linkup_social_server/internal/dto/respond"
	"linkup_social_server/pkg/constants"
)

func (g *Gateway) handleJoinRoom(ctx context.Context, c *Conn, data json.RawMessage) error {
	if _, err := c.requireRegistered(); err != nil {
		return err
	}
	var req request.JoinRoomRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}
	g.hub.Join(req.RoomId, c.Id)
	return nil
}

func (g *Gateway) handleLeaveRoom(ctx context.Context, c *Conn, data json.RawMessage) error {
	if _, err := c.requireRegistered(); err != nil {
		return err
	}
	var req request.LeaveRoomRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}
	g.hub.Leave(req.RoomId, c.Id)
	return nil
}

// handleChatMessage 把消息分发给会话房间内的其他成员
// 指定了接收方且其不在房间内时，走送达连接推 chat-updated 提醒
func (g *Gateway) handleChatMessage(ctx context.Context, c *Conn, data json.RawMessage) error {
	fromUserId, err := c.requireRegistered()
	if err != nil {
		return err
	}
	var req request.ChatMessageRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}

	g.hub.Broadcast(req.ChatId, constants.EventChatMessage, respond.ChatMessageRespond{
		ChatId:     req.ChatId,
		FromUserId: fromUserId,
		Type:       req.Type,
		Content:    req.Content,
		SentAt:     time.Now().Format("2006-01-02 15:04:05"),
	}, c.Id)

	if req.ToUserId == "" {
		return nil
	}
	if g.recipientInRoom(ctx, req.ChatId, req.ToUserId) {
		return nil
	}
	if connId := g.registry.ResolveDeliveryConn(ctx, req.ToUserId); connId != "" {
		g.SendToConn(connId, constants.EventChatUpdated, respond.ChatUpdatedRespond{ChatId: req.ChatId})
	}
	return nil
}

// recipientInRoom 接收方是否已有连接加入该房间
func (g *Gateway) recipientInRoom(ctx context.Context, roomId, userId string) bool {
	members := g.hub.Members(roomId)
	if len(members) == 0 {
		return false
	}
	inRoom := make(map[string]struct{}, len(members))
	for _, connId := range members {
		inRoom[connId] = struct{}{}
	}
	for _, connId := range g.registry.ConnectionIdsOf(ctx, userId) {
		if _, ok := inRoom[connId]; ok {
			return true
		}
	}
	return false
}
