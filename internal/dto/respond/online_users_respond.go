package respond

// OnlineUsersRespond online-users-updated 事件负载，在线用户全量快照
type OnlineUsersRespond struct {
	UserIds []string `json:"userIds"`
}
