// Package mysql 提供数据访问层的初始化
// 负责建立 MySQL 连接、自动迁移表结构、初始化 Repository 层
package mysql

import (
	"fmt"

	"linkup_social_server/internal/config"
	"linkup_social_server/internal/model"

	"go.uber.org/zap"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Init 初始化数据库连接并返回 Repository 层实例
// 迁移通话记录表和用户资料表（资料表由平台主 API 写入，这里只保证结构存在）
func Init() *Repositories {
	conf := config.GetConfig()

	// 构建 MySQL DSN 连接字符串
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		conf.MysqlConfig.User,
		conf.MysqlConfig.Password,
		conf.MysqlConfig.Host,
		conf.MysqlConfig.Port,
		conf.MysqlConfig.DatabaseName,
	)

	db, err := gorm.Open(mysqldriver.Open(dsn), &gorm.Config{})
	if err != nil {
		zap.L().Fatal(err.Error())
	}

	// AutoMigrate 自动迁移表结构
	// 表不存在则创建，字段变更则更新结构，不会删除已有字段或数据
	err = db.AutoMigrate(
		&model.UserInfo{},   // 用户资料表
		&model.CallRecord{}, // 通话记录表
	)
	if err != nil {
		zap.L().Fatal(err.Error())
	}

	return NewRepositories(db)
}
