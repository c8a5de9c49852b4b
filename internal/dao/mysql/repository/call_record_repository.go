package repository

import (
	"linkup_social_server/internal/model"

	"gorm.io/gorm"
)

type callRecordRepository struct {
	db *gorm.DB
}

// NewCallRecordRepository 创建通话记录 Repository
func NewCallRecordRepository(db *gorm.DB) CallRecordRepository {
	return &callRecordRepository{db: db}
}

// Create 写入通话记录
func (r *callRecordRepository) Create(record *model.CallRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return wrapDBError(err, "创建通话记录")
	}
	return nil
}

// FindByChatId 按会话 ID 查找通话记录
func (r *callRecordRepository) FindByChatId(chatId string) ([]model.CallRecord, error) {
	var records []model.CallRecord
	if err := r.db.Where("chat_id = ?", chatId).Order("started_at ASC").Find(&records).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询通话记录 chat_id=%s", chatId)
	}
	return records, nil
}

// FindByUserUuid 查找某用户参与的所有通话记录（主叫或被叫）
func (r *callRecordRepository) FindByUserUuid(userUuid string) ([]model.CallRecord, error) {
	var records []model.CallRecord
	if err := r.db.Where("caller_id = ? OR callee_id = ?", userUuid, userUuid).
		Order("started_at ASC").Find(&records).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询通话记录 user=%s", userUuid)
	}
	return records, nil
}
