// Package model 定义数据库实体模型
// 本文件定义用户资料模型，由平台主 API 维护，本服务只读
package model

import (
	"gorm.io/gorm"
)

// UserInfo 用户资料模型
// 对应数据库 user_info 表
// 信令层只用它补全来电提示的呼叫方资料（昵称、头像）和识别管理员
type UserInfo struct {
	gorm.Model // 内嵌 GORM 模型，包含 ID、CreatedAt、UpdatedAt、DeletedAt

	// Uuid 用户唯一标识
	// 格式：U + 时间戳随机字符串，如 "U2024010412345678"
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);comment:用户唯一id"`

	// Nickname 用户昵称
	Nickname string `gorm:"column:nickname;type:varchar(20);not null;comment:昵称"`

	// Avatar 用户头像 URL
	Avatar string `gorm:"column:avatar;type:char(255);not null;comment:头像"`

	// Signature 个性签名
	Signature string `gorm:"column:signature;type:varchar(100);comment:个性签名"`

	// IsAdmin 管理员标志
	// 0=普通用户, 1=管理员
	IsAdmin int8 `gorm:"column:is_admin;not null;comment:是否是管理员，0.不是，1.是"`

	// Status 账号状态
	// 0=正常, 1=禁用
	Status int8 `gorm:"column:status;index;not null;comment:状态，0.正常，1.禁用"`
}

// TableName 指定表名
func (UserInfo) TableName() string {
	return "user_info"
}
