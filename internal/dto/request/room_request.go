package request

// JoinRoomRequest join-room 事件负载
type JoinRoomRequest struct {
	RoomId string `json:"roomId" validate:"required"`
}

// LeaveRoomRequest leave-room 事件负载
type LeaveRoomRequest struct {
	RoomId string `json:"roomId" validate:"required"`
}
