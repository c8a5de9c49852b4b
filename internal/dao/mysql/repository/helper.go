// Package repository 定义数据访问层接口和实现
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
package repository

import (
	"errors"

	"linkup_social_server/pkg/errorx"

	"gorm.io/gorm"
)

// wrapDBError 包装数据库错误
// ErrRecordNotFound -> CodeNotFound，其他错误 -> CodeDBError
func wrapDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorx.Wrap(err, errorx.CodeNotFound, msg)
	}
	return errorx.Wrap(err, errorx.CodeDBError, msg)
}

// wrapDBErrorf 包装数据库错误（支持格式化消息）
func wrapDBErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorx.Wrapf(err, errorx.CodeNotFound, format, args...)
	}
	return errorx.Wrapf(err, errorx.CodeDBError, format, args...)
}
