package room

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Hub 房间广播中心，维护本进程内 房间->连接 与 连接->房间 双向索引
// 两张表在同一把锁下更新，保证互为镜像
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]struct{} // roomId -> connId 集合
	conns  map[string]map[string]struct{} // connId -> roomId 集合
	sender Sender
	bridge *Bridge // 可选，跨实例广播桥
}

func NewHub(sender Sender) *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]struct{}),
		conns:  make(map[string]map[string]struct{}),
		sender: sender,
	}
}

// AttachBridge 挂载跨实例广播桥，kafka 模式下由启动流程调用
func (h *Hub) AttachBridge(b *Bridge) {
	h.bridge = b
	b.hub = h
}

// Join 将连接加入房间，重复加入幂等
func (h *Hub) Join(roomId, connId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomId]; !ok {
		h.rooms[roomId] = make(map[string]struct{})
	}
	if _, ok := h.conns[connId]; !ok {
		h.conns[connId] = make(map[string]struct{})
	}
	h.rooms[roomId][connId] = struct{}{}
	h.conns[connId][roomId] = struct{}{}
	zap.L().Debug(fmt.Sprintf("连接%s加入房间%s", connId, roomId))
}

// Leave 将连接移出房间，成员走空时回收房间条目
func (h *Hub) Leave(roomId, connId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(roomId, connId)
}

// LeaveAll 将连接移出其加入的全部房间，连接关闭时调用
func (h *Hub) LeaveAll(connId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomId := range h.conns[connId] {
		h.removeLocked(roomId, connId)
	}
}

func (h *Hub) removeLocked(roomId, connId string) {
	if members, ok := h.rooms[roomId]; ok {
		delete(members, connId)
		if len(members) == 0 {
			delete(h.rooms, roomId)
		}
	}
	if joined, ok := h.conns[connId]; ok {
		delete(joined, roomId)
		if len(joined) == 0 {
			delete(h.conns, connId)
		}
	}
}

// Members 房间当前成员连接 id 快照
func (h *Hub) Members(roomId string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]string, 0, len(h.rooms[roomId]))
	for connId := range h.rooms[roomId] {
		members = append(members, connId)
	}
	return members
}

// RoomsOf 连接当前加入的房间 id 快照
func (h *Hub) RoomsOf(connId string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]string, 0, len(h.conns[connId]))
	for roomId := range h.conns[connId] {
		rooms = append(rooms, roomId)
	}
	return rooms
}

// Broadcast 向房间内全部成员投递事件，excludeConnId 非空时跳过该连接
// 本地投递后经广播桥（若挂载）同步给其他实例
func (h *Hub) Broadcast(roomId, event string, payload any, excludeConnId string) {
	h.broadcastLocal(roomId, event, payload, excludeConnId)
	if h.bridge != nil {
		h.bridge.Publish(roomId, event, payload, excludeConnId)
	}
}

func (h *Hub) broadcastLocal(roomId, event string, payload any, excludeConnId string) {
	for _, connId := range h.Members(roomId) {
		if connId == excludeConnId {
			continue
		}
		if !h.sender.SendToConn(connId, event, payload) {
			zap.L().Warn("房间广播投递失败", zap.String("roomId", roomId), zap.String("connId", connId))
		}
	}
}
