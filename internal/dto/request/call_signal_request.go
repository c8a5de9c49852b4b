package request

import "encoding/json"

// CallOfferRequest call-offer 事件负载
// Offer 为 WebRTC SDP，转发层不解析内容，原样透传
type CallOfferRequest struct {
	ToUserId string          `json:"toUserId" validate:"required"`
	Offer    json.RawMessage `json:"offer" validate:"required"`
	CallKind int8            `json:"callKind" validate:"oneof=0 1"` // 0=语音, 1=视频
}

// CallAnswerRequest call-answer 事件负载
type CallAnswerRequest struct {
	ToUserId string          `json:"toUserId" validate:"required"`
	Answer   json.RawMessage `json:"answer" validate:"required"`
}

// CallIceCandidateRequest call-ice-candidate 事件负载
type CallIceCandidateRequest struct {
	ToUserId  string          `json:"toUserId" validate:"required"`
	Candidate json.RawMessage `json:"candidate" validate:"required"`
}

// CallToggleRequest call-toggle-mic / call-toggle-video 事件负载
type CallToggleRequest struct {
	ToUserId string `json:"toUserId" validate:"required"`
	Enabled  *bool  `json:"enabled" validate:"required"` // 指针区分 false 与缺失
}

// CallEndRequest call-end 事件负载
// 时间戳为毫秒；ChatId 非空时才会落一条通话记录
type CallEndRequest struct {
	ToUserId  string `json:"toUserId" validate:"required"`
	StartedAt int64  `json:"startedAt" validate:"required"`
	EndedAt   int64  `json:"endedAt" validate:"required"`
	CallKind  int8   `json:"callKind" validate:"oneof=0 1"`
	ChatId    string `json:"chatId"`
}
