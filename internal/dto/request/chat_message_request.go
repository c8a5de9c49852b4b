package request

// ChatMessageRequest chat-message 事件负载
// 消息本体的持久化由平台主 API 负责，这里只做房间内实时分发；
// ToUserId 非空时，对未加入房间但在线的接收方直接推送 chat-updated 提醒
type ChatMessageRequest struct {
	ChatId   string `json:"chatId" validate:"required"`
	ToUserId string `json:"toUserId"`
	Type     int8   `json:"type"`
	Content  string `json:"content" validate:"required"`
}
