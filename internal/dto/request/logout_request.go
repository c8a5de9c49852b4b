package request

// LogoutRequest logout 事件负载
// 强制注销该用户的全部在线记录（所有设备）
type LogoutRequest struct {
	UserId string `json:"userId" validate:"required"`
}
