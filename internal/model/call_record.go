// Package model 定义数据库实体模型
// 本文件定义通话记录模型，通话结束时写入一次，之后不再修改
package model

import (
	"time"

	"gorm.io/gorm"
)

// 通话类型常量
const (
	CallKindVoice int8 = 0 // 语音通话
	CallKindVideo int8 = 1 // 视频通话
)

// CallRecord 通话记录模型
// 对应数据库 call_record 表
// 仅当结束通话的一方带上 chat_id 时才会落库
type CallRecord struct {
	gorm.Model

	// Uuid 记录唯一标识，雪花算法生成
	Uuid int64 `gorm:"column:uuid;uniqueIndex;type:bigint;not null;comment:记录雪花ID"`

	// CallerId 主叫用户 UUID
	CallerId string `gorm:"column:caller_id;index;type:char(20);not null;comment:主叫uuid"`

	// CalleeId 被叫用户 UUID
	CalleeId string `gorm:"column:callee_id;index;type:char(20);not null;comment:被叫uuid"`

	// ChatId 关联的会话 UUID
	ChatId string `gorm:"column:chat_id;index;type:char(20);not null;comment:关联会话uuid"`

	// Kind 通话类型
	// 0=语音, 1=视频
	Kind int8 `gorm:"column:kind;not null;comment:通话类型，0.语音，1.视频"`

	// StartedAt 通话开始时间
	StartedAt time.Time `gorm:"column:started_at;not null;comment:开始时间"`

	// EndedAt 通话结束时间
	EndedAt time.Time `gorm:"column:ended_at;not null;comment:结束时间"`

	// Duration 通话时长（整秒，>=0）
	Duration int64 `gorm:"column:duration;not null;comment:通话时长(秒)"`
}

// TableName 指定表名
func (CallRecord) TableName() string {
	return "call_record"
}
