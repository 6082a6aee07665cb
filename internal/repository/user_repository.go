package repository

import (
	"learnsphere_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_seen", time.Now()).
		Error
}

// FindTopByPoints 排行榜查询：积分降序，积分相同者最早活跃日在前
func (r *UserRepository) FindTopByPoints(limit int) ([]model.User, error) {
	var users []model.User
	err := r.DB.Where("disabled = ?", false).
		Order("points DESC").
		Order("last_active_date ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// CountRankedAbove 计算排在指定用户之前的人数（与排行榜同一排序规则）
func (r *UserRepository) CountRankedAbove(user *model.User) (int64, error) {
	var count int64
	q := r.DB.Model(&model.User{}).Where("disabled = ?", false)
	if user.LastActiveDate != nil {
		q = q.Where("points > ? OR (points = ? AND last_active_date < ?)",
			user.Points, user.Points, *user.LastActiveDate)
	} else {
		q = q.Where("points > ?", user.Points)
	}
	err := q.Count(&count).Error
	return count, err
}
