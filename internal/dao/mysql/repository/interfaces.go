// Package repository 定义数据访问层接口
// 所有 Repository 接口在此文件定义，具体实现在各自的文件中
package repository

import (
	"linkup_social_server/internal/model"
)

// UserRepository 用户资料数据访问接口
// 资料由平台主 API 写入，信令层只读
type UserRepository interface {
	// FindByUuid 按 UUID 查找用户
	FindByUuid(uuid string) (*model.UserInfo, error)
	// FindByUuids 按 UUID 列表批量查找用户
	FindByUuids(uuids []string) ([]model.UserInfo, error)
}

// CallRecordRepository 通话记录数据访问接口
type CallRecordRepository interface {
	// Create 写入一条通话记录（只写一次，之后不再修改）
	Create(record *model.CallRecord) error
	// FindByChatId 按会话 ID 查找通话记录，按开始时间升序
	FindByChatId(chatId string) ([]model.CallRecord, error)
	// FindByUserUuid 查找某用户参与的所有通话记录
	FindByUserUuid(userUuid string) ([]model.CallRecord, error)
}
