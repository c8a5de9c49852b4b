package respond

// ErrorRespond error 事件负载，按连接级上报事件处理失败
type ErrorRespond struct {
	Event   string `json:"event"` // 触发失败的入站事件名
	Message string `json:"message"`
}
