package request

// RegisterUserRequest register-user 事件负载
// 连接建立后客户端必须先注册，之后的信令才能被路由
type RegisterUserRequest struct {
	UserId string `json:"userId" validate:"required"`
}
