// Package handler 提供 HTTP 请求处理器
// 本文件处理服务状态与通话记录查询请求
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"linkup_social_server/internal/dao/mysql/repository"
	"linkup_social_server/internal/dto/respond"
	"linkup_social_server/internal/model"
	"linkup_social_server/internal/service/presence"
	"linkup_social_server/pkg/errorx"
)

// StatusHandler 处理服务状态查询
type StatusHandler struct {
	registry *presence.Registry
	users    repository.UserRepository
	records  repository.CallRecordRepository
}

func NewStatusHandler(registry *presence.Registry, users repository.UserRepository,
	records repository.CallRecordRepository) *StatusHandler {
	return &StatusHandler{registry: registry, users: users, records: records}
}

// GetStatusHandler 服务状态
// GET /status
// 返回当前在线用户数和在线用户 id 列表
func (h *StatusHandler) GetStatusHandler(c *gin.Context) {
	ctx := c.Request.Context()
	HandleSuccess(c, gin.H{
		"onlineCount": h.registry.CountOnline(ctx),
		"onlineUsers": respond.OnlineUsersRespond{UserIds: h.registry.ListOnline(ctx)},
	})
}

// GetOnlineProfilesHandler 在线用户资料列表
// GET /status/users
// 在线快照批量关联用户资料，离库用户被跳过
func (h *StatusHandler) GetOnlineProfilesHandler(c *gin.Context) {
	userIds := h.registry.ListOnline(c.Request.Context())
	profiles := make([]respond.CallerProfile, 0, len(userIds))
	if len(userIds) == 0 {
		HandleSuccess(c, profiles)
		return
	}
	users, err := h.users.FindByUuids(userIds)
	if err != nil {
		HandleError(c, err)
		return
	}
	for _, user := range users {
		profiles = append(profiles, respond.CallerProfile{
			Id:          user.Uuid,
			DisplayName: user.Nickname,
			Avatar:      user.Avatar,
		})
	}
	HandleSuccess(c, profiles)
}

// GetCallRecordsHandler 通话记录查询
// GET /status/calls?chatId=xxx 或 ?userId=xxx
// 两个参数必须恰好提供一个
func (h *StatusHandler) GetCallRecordsHandler(c *gin.Context) {
	chatId := c.Query("chatId")
	userId := c.Query("userId")

	var records []model.CallRecord
	var err error
	switch {
	case chatId != "":
		records, err = h.records.FindByChatId(chatId)
	case userId != "":
		records, err = h.records.FindByUserUuid(userId)
	default:
		HandleError(c, errorx.ErrInvalidParam)
		return
	}
	if err != nil {
		HandleError(c, err)
		return
	}

	rsp := make([]respond.CallRecordRespond, 0, len(records))
	for _, record := range records {
		rsp = append(rsp, respond.CallRecordRespond{
			Uuid:      strconv.FormatInt(record.Uuid, 10),
			CallerId:  record.CallerId,
			CalleeId:  record.CalleeId,
			ChatId:    record.ChatId,
			Kind:      record.Kind,
			StartedAt: record.StartedAt.Format("2006-01-02 15:04:05"),
			EndedAt:   record.EndedAt.Format("2006-01-02 15:04:05"),
			Duration:  record.Duration,
		})
	}
	HandleSuccess(c, rsp)
}
