// Package call 实现一对一音视频通话的信令转发
//
// 通话状态由两端客户端各自维护，服务端不落内存状态，只做
// 解析送达连接 + 透传 的无状态转发：
//
//	IDLE -> OFFER_SENT -> ANSWERED -> ACTIVE -> ENDED
//	                  \-> DROPPED（对端不在线，offer 丢弃）
package call

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"linkup_social_server/internal/dao/mysql/repository"
	myredis "linkup_social_server/internal/dao/redis"
	"linkup_social_server/internal/dto/request"
	"linkup_social_server/internal/dto/respond"
	"linkup_social_server/internal/model"
	"linkup_social_server/internal/service/presence"
	"linkup_social_server/internal/service/room"
	"linkup_social_server/pkg/constants"
	"linkup_social_server/pkg/util/snowflake"
)

const callerProfileKeyPrefix = "caller_profile_"

// Relay 通话信令转发服务
type Relay struct {
	registry *presence.Registry
	users    repository.UserRepository
	records  repository.CallRecordRepository
	cache    myredis.AsyncCacheService
	sender   room.Sender
}

func NewRelay(registry *presence.Registry, users repository.UserRepository,
	records repository.CallRecordRepository, cache myredis.AsyncCacheService, sender room.Sender) *Relay {
	return &Relay{
		registry: registry,
		users:    users,
		records:  records,
		cache:    cache,
		sender:   sender,
	}
}

// RelayOffer 转发通话邀请，附带呼叫方的最小资料供被叫端弹来电提示
// 被叫不在线时丢弃并记 warn，呼叫方由前端超时机制兜底
func (r *Relay) RelayOffer(ctx context.Context, fromUserId string, req request.CallOfferRequest) {
	caller := r.callerProfile(ctx, fromUserId)
	r.forward(ctx, fromUserId, req.ToUserId, constants.EventIncomingCall, respond.IncomingCallRespond{
		Caller:   caller,
		Offer:    req.Offer,
		CallKind: req.CallKind,
	})
}

// RelayAnswer 转发应答 SDP 给呼叫方
func (r *Relay) RelayAnswer(ctx context.Context, fromUserId string, req request.CallAnswerRequest) {
	r.forward(ctx, fromUserId, req.ToUserId, constants.EventCallAccepted, respond.CallAcceptedRespond{
		FromUserId: fromUserId,
		Answer:     req.Answer,
	})
}

// RelayIceCandidate 透传 ICE 候选，内容不解析
func (r *Relay) RelayIceCandidate(ctx context.Context, fromUserId string, req request.CallIceCandidateRequest) {
	r.forward(ctx, fromUserId, req.ToUserId, constants.EventIceCandidateRelayed, respond.IceCandidateRespond{
		FromUserId: fromUserId,
		Candidate:  req.Candidate,
	})
}

// RelayMicToggle 转发麦克风开关状态
func (r *Relay) RelayMicToggle(ctx context.Context, fromUserId string, req request.CallToggleRequest) {
	r.forward(ctx, fromUserId, req.ToUserId, constants.EventMicToggled, respond.CallToggleRespond{
		FromUserId: fromUserId,
		Enabled:    *req.Enabled,
	})
}

// RelayVideoToggle 转发摄像头开关状态
func (r *Relay) RelayVideoToggle(ctx context.Context, fromUserId string, req request.CallToggleRequest) {
	r.forward(ctx, fromUserId, req.ToUserId, constants.EventVideoToggled, respond.CallToggleRespond{
		FromUserId: fromUserId,
		Enabled:    *req.Enabled,
	})
}

// RelayCallEnd 转发挂断通知，先转发保证对端及时收到，再异步落通话记录
// ChatId 为空说明通话不归属任何会话，不落记录
func (r *Relay) RelayCallEnd(ctx context.Context, fromUserId string, req request.CallEndRequest) {
	r.forward(ctx, fromUserId, req.ToUserId, constants.EventCallEnded, respond.CallEndedRespond{
		FromUserId: fromUserId,
		StartedAt:  req.StartedAt,
		EndedAt:    req.EndedAt,
		CallKind:   req.CallKind,
		ChatId:     req.ChatId,
	})

	if req.ChatId == "" {
		return
	}

	durationMs := req.EndedAt - req.StartedAt
	if durationMs < 0 {
		durationMs = 0
	}
	record := &model.CallRecord{
		Uuid:      snowflake.GenerateID(),
		CallerId:  fromUserId,
		CalleeId:  req.ToUserId,
		ChatId:    req.ChatId,
		Kind:      req.CallKind,
		StartedAt: time.UnixMilli(req.StartedAt),
		EndedAt:   time.UnixMilli(req.EndedAt),
		Duration:  durationMs / 1000,
	}
	r.cache.SubmitTask(func() {
		if err := r.records.Create(record); err != nil {
			zap.L().Error("通话记录落库失败", zap.String("chatId", req.ChatId), zap.Error(err))
		}
	})
}

// forward 解析目标用户的送达连接并投递事件
func (r *Relay) forward(ctx context.Context, fromUserId, toUserId, event string, payload any) {
	connId := r.registry.ResolveDeliveryConn(ctx, toUserId)
	if connId == "" {
		zap.L().Warn("信令目标不在线，已丢弃",
			zap.String("event", event),
			zap.String("fromUserId", fromUserId),
			zap.String("toUserId", toUserId))
		return
	}
	if !r.sender.SendToConn(connId, event, payload) {
		zap.L().Warn("信令投递失败",
			zap.String("event", event),
			zap.String("toUserId", toUserId),
			zap.String("connId", connId))
	}
}

// callerProfile 取呼叫方资料，Redis 优先，未命中回源 MySQL 并回填缓存
// 取不到资料时退化为只带 id 的最小结构，不阻断信令
func (r *Relay) callerProfile(ctx context.Context, userId string) respond.CallerProfile {
	key := callerProfileKeyPrefix + userId
	if cached, err := r.cache.GetOrError(ctx, key); err == nil {
		var profile respond.CallerProfile
		if err := json.Unmarshal([]byte(cached), &profile); err == nil {
			return profile
		}
	}

	profile := respond.CallerProfile{Id: userId}
	user, err := r.users.FindByUuid(userId)
	if err != nil {
		zap.L().Warn("查询呼叫方资料失败", zap.String("userId", userId), zap.Error(err))
		return profile
	}
	profile.DisplayName = user.Nickname
	profile.Avatar = user.Avatar

	if raw, err := json.Marshal(profile); err == nil {
		r.cache.SubmitTask(func() {
			if err := r.cache.Set(context.Background(), key, string(raw), time.Minute*constants.REDIS_TIMEOUT); err != nil {
				zap.L().Error(err.Error())
			}
		})
	}
	return profile
}
