package service

import (
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"time"
)

type UserService struct {
	UserRepo     *repository.UserRepository
	BadgeRepo    *repository.BadgeRepository
	ActivityRepo *repository.ActivityLogRepository
}

func NewUserService(
	userRepo *repository.UserRepository,
	badgeRepo *repository.BadgeRepository,
	activityRepo *repository.ActivityLogRepository,
) *UserService {
	return &UserService{
		UserRepo:     userRepo,
		BadgeRepo:    badgeRepo,
		ActivityRepo: activityRepo,
	}
}

// ProfileStats 学生档案：积分/等级/连续天数与学习统计
type ProfileStats struct {
	Points           int           `json:"points"`
	Streak           int           `json:"streak"`
	Level            int           `json:"level"`
	HoursStudied     float64       `json:"hoursStudied"`
	CoursesCompleted int           `json:"coursesCompleted"`
	QuizzesTaken     int           `json:"quizzesTaken"`
	AvgScore         float64       `json:"avgScore"`
	LastActiveDate   *time.Time    `json:"lastActiveDate"`
	Badges           []model.Badge `json:"badges"`
}

func (s *UserService) GetStats(userID uint) (*ProfileStats, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	badges, err := s.BadgeRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}

	return &ProfileStats{
		Points:           user.Points,
		Streak:           user.Streak,
		Level:            user.Level,
		HoursStudied:     user.HoursStudied,
		CoursesCompleted: user.CoursesCompleted,
		QuizzesTaken:     user.QuizzesTaken,
		AvgScore:         user.AvgScore,
		LastActiveDate:   user.LastActiveDate,
		Badges:           badges,
	}, nil
}

// GetActivity 学习活动流水（含连续天数历史依据）
func (s *UserService) GetActivity(userID uint, page, limit int) ([]model.ActivityLog, int64, error) {
	return s.ActivityRepo.ListByUser(userID, page, limit)
}
