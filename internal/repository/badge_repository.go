package repository

import (
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) Create(badge *model.Badge) error {
	return r.DB.Create(badge).Error
}

func (r *BadgeRepository) FindByUserID(userID uint) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.Where("user_id = ?", userID).Order("awarded_at ASC").Find(&badges).Error
	return badges, err
}

// Exists 在给定事务中判断徽章是否已发放
func (r *BadgeRepository) Exists(tx *gorm.DB, userID uint, code string) (bool, error) {
	var count int64
	err := tx.Model(&model.Badge{}).Where("user_id = ? AND code = ?", userID, code).Count(&count).Error
	return count > 0, err
}
