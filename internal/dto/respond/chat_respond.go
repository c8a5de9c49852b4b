package respond

// ChatMessageRespond chat-message 事件负载（房间内分发）
type ChatMessageRespond struct {
	ChatId     string `json:"chatId"`
	FromUserId string `json:"fromUserId"`
	Type       int8   `json:"type"`
	Content    string `json:"content"`
	SentAt     string `json:"sentAt"`
}

// ChatUpdatedRespond chat-updated 事件负载
// 推送给在线但未加入会话房间的接收方
type ChatUpdatedRespond struct {
	ChatId string `json:"chatId"`
}
