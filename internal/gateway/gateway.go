// gateway.go
// 核心职责：会话网关
// 1. 维护本进程 connId -> *Conn 映射，实现按连接投递（room.Sender）
// 2. 入站事件解码 + 负载校验 + 按事件名分发
// 3. 连接断开时的在线状态清理与管理房间快照广播
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"linkup_social_server/internal/dto/respond"
	"linkup_social_server/internal/infrastructure/validation"
	"linkup_social_server/internal/service/call"
	"linkup_social_server/internal/service/presence"
	"linkup_social_server/internal/service/room"
	"linkup_social_server/pkg/constants"
)

// eventEnvelope 入站事件信封
type eventEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// outEnvelope 出站事件信封
type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// handlerFunc 入站事件处理函数，返回的 error 会以 error 事件回给当前连接
type handlerFunc func(ctx context.Context, c *Conn, data json.RawMessage) error

// Gateway 会话网关
type Gateway struct {
	registry *presence.Registry
	hub      *room.Hub
	relay    *call.Relay
	handlers map[string]handlerFunc
	conns    connMap
}

var (
	initOnce sync.Once
	instance *Gateway
)

// Init 创建进程内唯一的网关实例，重复调用返回同一实例
// 网关持有 connId -> 连接 的进程内映射，多个实例会让投递彼此不可见
func Init(registry *presence.Registry) *Gateway {
	initOnce.Do(func() {
		instance = newGateway(registry)
	})
	return instance
}

func newGateway(registry *presence.Registry) *Gateway {
	g := &Gateway{
		registry: registry,
	}
	g.handlers = map[string]handlerFunc{
		constants.EventRegisterUser:         g.handleRegisterUser,
		constants.EventUpdateFeatureChannel: g.handleUpdateFeatureChannel,
		constants.EventGetOnlineUsers:       g.handleGetOnlineUsers,
		constants.EventLogout:               g.handleLogout,
		constants.EventCallOffer:            g.handleCallOffer,
		constants.EventCallAnswer:           g.handleCallAnswer,
		constants.EventCallIceCandidate:     g.handleCallIceCandidate,
		constants.EventCallToggleMic:        g.handleCallToggleMic,
		constants.EventCallToggleVideo:      g.handleCallToggleVideo,
		constants.EventCallEnd:              g.handleCallEnd,
		constants.EventJoinRoom:             g.handleJoinRoom,
		constants.EventLeaveRoom:            g.handleLeaveRoom,
		constants.EventChatMessage:          g.handleChatMessage,
	}
	return g
}

// Bind 注入依赖网关投递能力的下游服务
// 房间中心和信令转发都以 room.Sender 依赖网关，构造顺序上后绑定
func (g *Gateway) Bind(hub *room.Hub, relay *call.Relay) {
	g.hub = hub
	g.relay = relay
}

// HandleConnection 升级 WebSocket 并启动读写协程
// authUserId 为握手 token 中的用户 id，注册事件必须与之一致
func (g *Gateway) HandleConnection(c *gin.Context, authUserId string) {
	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Error(err.Error())
		return
	}
	conn := newConn(wsConn, uuid.NewString(), authUserId)
	g.conns.Store(conn.Id, conn)
	go conn.Read(g)
	go conn.Write()

	// 连接建立即推一份在线快照，客户端无需额外拉取
	g.SendToConn(conn.Id, constants.EventOnlineUsersUpdated, respond.OnlineUsersRespond{
		UserIds: g.registry.ListOnline(c.Request.Context()),
	})
	zap.L().Info("ws连接成功", zap.String("connId", conn.Id), zap.String("userId", authUserId))
}

// SendToConn 按连接 id 投递事件，实现 room.Sender
func (g *Gateway) SendToConn(connId string, event string, payload any) bool {
	conn, ok := g.conns.Load(connId)
	if !ok {
		return false
	}
	message, err := json.Marshal(outEnvelope{Event: event, Data: payload})
	if err != nil {
		zap.L().Error(err.Error())
		return false
	}
	return conn.send(message)
}

// dispatch 解码信封并调用对应处理函数
// 处理函数的 panic 被收敛为 error 事件，不影响连接上后续事件
func (g *Gateway) dispatch(c *Conn, jsonMessage []byte) {
	var envelope eventEnvelope
	if err := json.Unmarshal(jsonMessage, &envelope); err != nil {
		g.sendError(c, "", "事件格式不合法")
		return
	}
	handler, ok := g.handlers[envelope.Event]
	if !ok {
		g.sendError(c, envelope.Event, "未知事件")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error(fmt.Sprintf("事件处理panic: %v", r),
				zap.String("event", envelope.Event), zap.String("connId", c.Id))
			g.sendError(c, envelope.Event, "服务器内部错误")
		}
	}()
	if err := handler(context.Background(), c, envelope.Data); err != nil {
		g.sendError(c, envelope.Event, err.Error())
	}
}

// bind 解码并校验事件负载，校验错误带翻译后的字段提示
func (g *Gateway) bind(data json.RawMessage, req any) error {
	if err := json.Unmarshal(data, req); err != nil {
		return fmt.Errorf("负载格式不合法")
	}
	if err := validation.Struct(req); err != nil {
		return fmt.Errorf("负载校验失败: %s", validation.TranslateBrief(err))
	}
	return nil
}

func (g *Gateway) sendError(c *Conn, event, message string) {
	g.SendToConn(c.Id, constants.EventError, respond.ErrorRespond{Event: event, Message: message})
}

// closeConn 连接断开时的清理：退出全部房间、注销在线记录、广播快照
func (g *Gateway) closeConn(c *Conn) {
	if err := c.Conn.Close(); err != nil {
		zap.L().Debug(err.Error())
	}
	g.conns.Delete(c.Id)
	c.shutdown()
	g.hub.LeaveAll(c.Id)

	ctx := context.Background()
	userId := g.registry.DeregisterByConnection(ctx, c.Id)
	if userId != "" {
		g.broadcastOnlineSnapshot(ctx)
	}
}

// broadcastOnlineSnapshot 把在线用户全量快照广播到管理房间
func (g *Gateway) broadcastOnlineSnapshot(ctx context.Context) {
	g.hub.Broadcast(constants.ADMIN_ROOM, constants.EventOnlineUsersUpdated, respond.OnlineUsersRespond{
		UserIds: g.registry.ListOnline(ctx),
	}, "")
}
