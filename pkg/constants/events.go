package constants

// 客户端 -> 服务端事件名
const (
	EventRegisterUser         = "register-user"          // 主连接在线注册
	EventUpdateFeatureChannel = "update-feature-channel" // 将当前连接登记为特性通道
	EventGetOnlineUsers       = "get-online-users"       // 请求在线用户快照
	EventLogout               = "logout"                 // 强制注销用户全部在线记录
	EventCallOffer            = "call-offer"
	EventCallAnswer           = "call-answer"
	EventCallIceCandidate     = "call-ice-candidate"
	EventCallEnd              = "call-end"
	EventCallToggleMic        = "call-toggle-mic"
	EventCallToggleVideo      = "call-toggle-video"
	EventJoinRoom             = "join-room"
	EventLeaveRoom            = "leave-room"
	EventChatMessage          = "chat-message"
)

// 服务端 -> 客户端事件名
const (
	EventOnlineUsersUpdated  = "online-users-updated"
	EventIncomingCall        = "incoming-call"
	EventCallAccepted        = "call-accepted"
	EventIceCandidateRelayed = "ice-candidate-relayed"
	EventCallEnded           = "call-ended"
	EventMicToggled          = "mic-toggled"
	EventVideoToggled        = "video-toggled"
	EventChatUpdated         = "chat-updated"
	EventError               = "error"
)
