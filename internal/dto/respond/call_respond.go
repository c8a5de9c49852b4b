package respond

import "encoding/json"

// CallerProfile 来电提示附带的最小呼叫方资料
type CallerProfile struct {
	Id          string `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// IncomingCallRespond incoming-call 事件负载
type IncomingCallRespond struct {
	Caller   CallerProfile   `json:"caller"`
	Offer    json.RawMessage `json:"offer"`
	CallKind int8            `json:"callKind"`
}

// CallAcceptedRespond call-accepted 事件负载
type CallAcceptedRespond struct {
	FromUserId string          `json:"fromUserId"`
	Answer     json.RawMessage `json:"answer"`
}

// IceCandidateRespond ice-candidate-relayed 事件负载
type IceCandidateRespond struct {
	FromUserId string          `json:"fromUserId"`
	Candidate  json.RawMessage `json:"candidate"`
}

// CallToggleRespond mic-toggled / video-toggled 事件负载
type CallToggleRespond struct {
	FromUserId string `json:"fromUserId"`
	Enabled    bool   `json:"enabled"`
}

// CallEndedRespond call-ended 事件负载
type CallEndedRespond struct {
	FromUserId string `json:"fromUserId"`
	StartedAt  int64  `json:"startedAt"`
	EndedAt    int64  `json:"endedAt"`
	CallKind   int8   `json:"callKind"`
	ChatId     string `json:"chatId,omitempty"`
}

// CallRecordRespond 通话记录查询结果
type CallRecordRespond struct {
	Uuid      string `json:"uuid"` // 雪花 id 字符串化，避免 JavaScript 精度丢失
	CallerId  string `json:"callerId"`
	CalleeId  string `json:"calleeId"`
	ChatId    string `json:"chatId"`
	Kind      int8   `json:"kind"`
	StartedAt string `json:"startedAt"`
	EndedAt   string `json:"endedAt"`
	Duration  int64  `json:"duration"` // 秒
}
