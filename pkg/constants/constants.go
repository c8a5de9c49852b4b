package constants

const (
	CHANNEL_SIZE  = 100 // 连接发送通道大小
	REDIS_TIMEOUT = 5   // 资料缓存过期时间 (分钟)

	// ADMIN_ROOM 管理员广播房间的固定房间号
	ADMIN_ROOM = "admin"
)
