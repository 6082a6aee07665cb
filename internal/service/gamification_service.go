package service

import (
	"context"
	"encoding/json"
	"fmt"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const leaderboardCacheKey = "leaderboard:top:%d"

// GamificationService 把离散学习事件折算为积分/连续天数/等级，并响应排行榜查询。
// 积分只能由事件驱动累加；等级是积分的单调阶跃函数，每次加分时重算，绝不独立存储漂移。
type GamificationService struct {
	UserRepo     *repository.UserRepository
	ActivityRepo *repository.ActivityLogRepository
	BadgeRepo    *repository.BadgeRepository
	Redis        *redis.Client

	mu  sync.RWMutex
	cfg config.GamificationConfig
	loc *time.Location

	// 可注入时钟，便于测试日界逻辑
	now func() time.Time
}

func NewGamificationService(
	userRepo *repository.UserRepository,
	activityRepo *repository.ActivityLogRepository,
	badgeRepo *repository.BadgeRepository,
	rdb *redis.Client,
	cfg config.GamificationConfig,
) *GamificationService {
	cfg.ApplyDefaults()
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Log.Warn("invalid gamification timezone, falling back to UTC", zap.String("timezone", cfg.Timezone))
		loc = time.UTC
	}
	return &GamificationService{
		UserRepo:     userRepo,
		ActivityRepo: activityRepo,
		BadgeRepo:    badgeRepo,
		Redis:        rdb,
		cfg:          cfg,
		loc:          loc,
		now:          time.Now,
	}
}

// UpdateConfig 配置热更新回调（积分表可在运行时调整）
func (s *GamificationService) UpdateConfig(cfg config.GamificationConfig) {
	cfg.ApplyDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		s.loc = loc
	}
}

func (s *GamificationService) Config() config.GamificationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *GamificationService) PassMark() float64 {
	return s.Config().PassMark
}

func (s *GamificationService) pointsFor(activity string) int {
	cfg := s.Config()
	switch activity {
	case model.ActivityModuleComplete:
		return cfg.ModuleCompletePoints
	case model.ActivityQuizPass:
		return cfg.QuizPassPoints
	case model.ActivityDailyLogin:
		return cfg.DailyLoginPoints
	}
	return 0
}

// dayOf 取参照时区下的日历日零点，作为连续天数的日界
func (s *GamificationService) dayOf(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// Award 结算一次有效学习事件。调用方必须已持有该学生的锁，
// 且 tx 为该学生聚合的写事务。
func (s *GamificationService) Award(tx *gorm.DB, userID uint, activity, detail string) error {
	var user model.User
	if err := tx.First(&user, userID).Error; err != nil {
		return err
	}

	cfg := s.Config()
	today := s.dayOf(s.now())
	points := s.pointsFor(activity)

	// 连续天数：同日幂等；昨日有活动则 +1；否则归 1。
	// 当日首个有效事件额外触发 daily_login 奖励。
	firstToday := true
	if user.LastActiveDate != nil {
		last := s.dayOf(*user.LastActiveDate)
		switch {
		case last.Equal(today):
			firstToday = false
		case last.Equal(today.AddDate(0, 0, -1)):
			user.Streak++
		default:
			user.Streak = 1
		}
	} else {
		user.Streak = 1
	}

	if err := tx.Create(&model.ActivityLog{
		UserID:   userID,
		Activity: activity,
		Detail:   detail,
		Points:   points,
	}).Error; err != nil {
		return err
	}

	if firstToday {
		points += cfg.DailyLoginPoints
		if err := tx.Create(&model.ActivityLog{
			UserID:   userID,
			Activity: model.ActivityDailyLogin,
			Detail:   today.Format(util.DateFormat),
			Points:   cfg.DailyLoginPoints,
		}).Error; err != nil {
			return err
		}
	}

	user.Points += points
	user.Level = 1 + user.Points/cfg.LevelThreshold
	user.LastActiveDate = &today

	if err := tx.Save(&user).Error; err != nil {
		return err
	}

	return s.awardBadges(tx, &user, activity)
}

// RecordLogin 登录视为当日活跃：刷新连续天数并发放每日登录奖励。
// 同日重复登录为空操作，不重复计分。
func (s *GamificationService) RecordLogin(tx *gorm.DB, userID uint) error {
	var user model.User
	if err := tx.First(&user, userID).Error; err != nil {
		return err
	}

	cfg := s.Config()
	today := s.dayOf(s.now())

	if user.LastActiveDate != nil {
		last := s.dayOf(*user.LastActiveDate)
		switch {
		case last.Equal(today):
			return nil
		case last.Equal(today.AddDate(0, 0, -1)):
			user.Streak++
		default:
			user.Streak = 1
		}
	} else {
		user.Streak = 1
	}

	if err := tx.Create(&model.ActivityLog{
		UserID:   userID,
		Activity: model.ActivityDailyLogin,
		Detail:   today.Format(util.DateFormat),
		Points:   cfg.DailyLoginPoints,
	}).Error; err != nil {
		return err
	}

	user.Points += cfg.DailyLoginPoints
	user.Level = 1 + user.Points/cfg.LevelThreshold
	user.LastActiveDate = &today

	if err := tx.Save(&user).Error; err != nil {
		return err
	}

	return s.awardBadges(tx, &user, model.ActivityDailyLogin)
}

// awardBadges 里程碑徽章：首个模块完成、连续 7/30 天
func (s *GamificationService) awardBadges(tx *gorm.DB, user *model.User, activity string) error {
	type milestone struct {
		code string
		name string
		hit  bool
	}
	milestones := []milestone{
		{"first_module", "启程之路", activity == model.ActivityModuleComplete},
		{"streak_7", "七日不辍", user.Streak >= 7},
		{"streak_30", "月度恒心", user.Streak >= 30},
	}

	for _, m := range milestones {
		if !m.hit {
			continue
		}
		exists, err := s.BadgeRepo.Exists(tx, user.ID, m.code)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := tx.Create(&model.Badge{
			UserID:    user.ID,
			Code:      m.code,
			Name:      m.name,
			AwardedAt: s.now(),
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Level  int    `json:"level"`
	Streak int    `json:"streak"`
	Avatar string `json:"avatar,omitempty"`
}

// GetLeaderboard 读取排行榜。Redis 读穿缓存，TTL 内允许秒级滞后；
// 排序规则：积分降序，平分者最早活跃日在前（奖励持续性）。
func (s *GamificationService) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	key := fmt.Sprintf(leaderboardCacheKey, limit)
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, key).Result(); err == nil {
			var entries []LeaderboardEntry
			if err := json.Unmarshal([]byte(cached), &entries); err == nil {
				return entries, nil
			}
		}
	}

	users, err := s.UserRepo.FindTopByPoints(limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Rank:   i + 1,
			UserID: u.ID,
			Name:   u.Name,
			Points: u.Points,
			Level:  u.Level,
			Streak: u.Streak,
			Avatar: u.Avatar,
		}
	}

	if s.Redis != nil {
		if data, err := json.Marshal(entries); err == nil {
			ttl := time.Duration(s.Config().LeaderboardCacheTTL) * time.Second
			if err := s.Redis.Set(ctx, key, data, ttl).Err(); err != nil {
				logger.Log.Warn("failed to cache leaderboard", zap.Error(err))
			}
		}
	}

	return entries, nil
}

// GetMyRank 返回调用者自己的名次（与排行榜同一排序规则，实时计算）
func (s *GamificationService) GetMyRank(userID uint) (*LeaderboardEntry, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	above, err := s.UserRepo.CountRankedAbove(user)
	if err != nil {
		return nil, err
	}
	return &LeaderboardEntry{
		Rank:   int(above) + 1,
		UserID: user.ID,
		Name:   user.Name,
		Points: user.Points,
		Level:  user.Level,
		Streak: user.Streak,
		Avatar: user.Avatar,
	}, nil
}
