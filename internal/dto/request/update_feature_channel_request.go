package request

// UpdateFeatureChannelRequest update-feature-channel 事件负载
// 将当前连接登记为该用户的特性通道（如专用的聊天通知通道）
type UpdateFeatureChannelRequest struct {
	UserId string `json:"userId" validate:"required"`
}
