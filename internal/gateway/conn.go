// Package gateway 管理 WebSocket 会话网关
// conn.go
// 核心职责：单个 WebSocket 连接的生命周期
// 1. 升级 HTTP 连接并分配连接 id
// 2. 读协程：接收入站事件并交给网关分发（单协程内联处理，保证同连接事件有序）
// 3. 写协程：从 SendBack 通道取出站帧推给前端
package gateway

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"linkup_social_server/pkg/constants"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	// 检查连接的Origin头
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Conn 一条已升级的 WebSocket 连接
type Conn struct {
	Id   string
	Conn *websocket.Conn
	// SendBack 出站帧缓冲，写协程消费
	SendBack chan []byte
	// authUserId 握手时 JWT 解析出的用户 id
	authUserId string
	// userId 注册完成后的用户 id，只在读协程内读写
	userId string

	// closeOnce 与 closed 保护 SendBack 的关闭，投递方可能与清理并发
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// Read 读协程：接收入站帧并逐条分发
// 读取出错（含正常关闭）即退出，由 defer 完成注销清理
func (c *Conn) Read(g *Gateway) {
	defer g.closeConn(c)
	for {
		_, jsonMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				zap.L().Warn("ws读取失败", zap.String("connId", c.Id), zap.Error(err))
			}
			return
		}
		g.dispatch(c, jsonMessage)
	}
}

// Write 写协程：把 SendBack 中的帧推给前端
func (c *Conn) Write() {
	for message := range c.SendBack {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			zap.L().Error(err.Error())
			return
		}
	}
}

// send 非阻塞投递一帧，连接已关闭或缓冲满时丢弃并返回 false
func (c *Conn) send(message []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.SendBack <- message:
		return true
	default:
		zap.L().Warn("连接发送缓冲已满，帧被丢弃", zap.String("connId", c.Id))
		return false
	}
}

// shutdown 标记关闭并释放发送通道，幂等
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.SendBack)
	})
}

func newConn(wsConn *websocket.Conn, connId, authUserId string) *Conn {
	return &Conn{
		Id:         connId,
		Conn:       wsConn,
		SendBack:   make(chan []byte, constants.CHANNEL_SIZE),
		authUserId: authUserId,
	}
}

// connMap 并发安全的 connId -> *Conn 映射
type connMap struct {
	m sync.Map
}

func (cm *connMap) Store(connId string, c *Conn) {
	cm.m.Store(connId, c)
}

func (cm *connMap) Load(connId string) (*Conn, bool) {
	value, ok := cm.m.Load(connId)
	if !ok {
		return nil, false
	}
	return value.(*Conn), true
}

func (cm *connMap) Delete(connId string) {
	cm.m.Delete(connId)
}
