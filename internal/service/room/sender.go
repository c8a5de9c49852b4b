package room

// Sender 按连接 id 投递事件的能力，由网关实现
// 返回 false 表示连接不在本进程（或发送缓冲已满被丢弃）
type Sender interface {
	SendToConn(connId string, event string, payload any) bool
}
