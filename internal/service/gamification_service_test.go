package service

import (
	"context"
	"testing"
	"time"

	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

func award(t *testing.T, db *gorm.DB, g *GamificationService, userID uint, activity string) {
	t.Helper()
	if err := db.Transaction(func(tx *gorm.DB) error {
		return g.Award(tx, userID, activity, "")
	}); err != nil {
		t.Fatalf("award %s: %v", activity, err)
	}
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) *model.User {
	t.Helper()
	var u model.User
	if err := db.First(&u, id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return &u
}

func TestAwardStreakLifecycle(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "carol")
	g := newTestGamification(t, db)

	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	g.now = fixedClock(day1)

	// 首个事件：连续天数起算，附加当日登录奖励
	award(t, db, g, user.ID, model.ActivityModuleComplete)
	u := reloadUser(t, db, user.ID)
	if u.Streak != 1 {
		t.Errorf("streak = %d, want 1", u.Streak)
	}
	if u.Points != 110 {
		t.Errorf("points = %d, want 110", u.Points)
	}

	// 同日第二个事件：连续天数不变，不重复发放登录奖励
	award(t, db, g, user.ID, model.ActivityQuizPass)
	u = reloadUser(t, db, user.ID)
	if u.Streak != 1 {
		t.Errorf("same-day streak = %d, want 1", u.Streak)
	}
	if u.Points != 160 {
		t.Errorf("points = %d, want 160", u.Points)
	}

	// 次日：连续天数 +1
	g.now = fixedClock(day1.AddDate(0, 0, 1))
	award(t, db, g, user.ID, model.ActivityModuleComplete)
	u = reloadUser(t, db, user.ID)
	if u.Streak != 2 {
		t.Errorf("next-day streak = %d, want 2", u.Streak)
	}

	// 中断三天：归 1
	g.now = fixedClock(day1.AddDate(0, 0, 4))
	award(t, db, g, user.ID, model.ActivityQuizPass)
	u = reloadUser(t, db, user.ID)
	if u.Streak != 1 {
		t.Errorf("post-gap streak = %d, want 1", u.Streak)
	}
}

func TestAwardDayBoundaryNearMidnight(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "dave")
	g := newTestGamification(t, db)

	// 23:59 与次日 00:01 属不同日历日
	g.now = fixedClock(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC))
	award(t, db, g, user.ID, model.ActivityModuleComplete)

	g.now = fixedClock(time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC))
	award(t, db, g, user.ID, model.ActivityQuizPass)

	u := reloadUser(t, db, user.ID)
	if u.Streak != 2 {
		t.Errorf("streak = %d, want 2", u.Streak)
	}
}

func TestAwardLevelRecompute(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "erin")
	g := newTestGamification(t, db)
	g.now = fixedClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	if err := db.Model(user).Update("points", 450).Error; err != nil {
		t.Fatalf("seed points: %v", err)
	}

	// 450 + 100 + 10 = 560，跨过 500 阈值
	award(t, db, g, user.ID, model.ActivityModuleComplete)
	u := reloadUser(t, db, user.ID)
	if u.Points != 560 {
		t.Errorf("points = %d, want 560", u.Points)
	}
	if u.Level != 2 {
		t.Errorf("level = %d, want 2", u.Level)
	}
}

func TestAwardBadges(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "frank")
	g := newTestGamification(t, db)
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	g.now = fixedClock(day)

	award(t, db, g, user.ID, model.ActivityModuleComplete)
	award(t, db, g, user.ID, model.ActivityModuleComplete)

	var badges []model.Badge
	if err := db.Where("user_id = ? AND code = ?", user.ID, "first_module").Find(&badges).Error; err != nil {
		t.Fatalf("load badges: %v", err)
	}
	if len(badges) != 1 {
		t.Errorf("first_module badges = %d, want 1 (no duplicates)", len(badges))
	}

	// 连续第 7 天触发 streak_7
	yesterday := day.AddDate(0, 0, -1)
	if err := db.Model(user).Updates(map[string]interface{}{
		"streak":           6,
		"last_active_date": yesterday,
	}).Error; err != nil {
		t.Fatalf("seed streak: %v", err)
	}
	award(t, db, g, user.ID, model.ActivityQuizPass)

	var streakBadge int64
	if err := db.Model(&model.Badge{}).Where("user_id = ? AND code = ?", user.ID, "streak_7").Count(&streakBadge).Error; err != nil {
		t.Fatalf("count badges: %v", err)
	}
	if streakBadge != 1 {
		t.Errorf("streak_7 badges = %d, want 1", streakBadge)
	}
}

func TestRecordLoginSameDayIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "grace")
	g := newTestGamification(t, db)
	g.now = fixedClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		if err := db.Transaction(func(tx *gorm.DB) error {
			return g.RecordLogin(tx, user.ID)
		}); err != nil {
			t.Fatalf("record login: %v", err)
		}
	}

	u := reloadUser(t, db, user.ID)
	if u.Points != 10 {
		t.Errorf("points = %d, want 10", u.Points)
	}
	if u.Streak != 1 {
		t.Errorf("streak = %d, want 1", u.Streak)
	}

	var logs int64
	if err := db.Model(&model.ActivityLog{}).Where("user_id = ?", user.ID).Count(&logs).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if logs != 1 {
		t.Errorf("activity logs = %d, want 1", logs)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	db := newTestDB(t)
	g := newTestGamification(t, db)

	early := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	seed := []struct {
		name   string
		points int
		active time.Time
	}{
		{"late-tie", 200, late},
		{"early-tie", 200, early},
		{"third", 100, early},
	}
	ids := make(map[string]uint)
	for _, s := range seed {
		u := createTestUser(t, db, s.name)
		active := s.active
		if err := db.Model(u).Updates(map[string]interface{}{
			"points":           s.points,
			"last_active_date": active,
		}).Error; err != nil {
			t.Fatalf("seed %s: %v", s.name, err)
		}
		ids[s.name] = u.ID
	}

	entries, err := g.GetLeaderboard(context.Background(), 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	// 平分者最早活跃日在前
	wantOrder := []string{"early-tie", "late-tie", "third"}
	for i, name := range wantOrder {
		if entries[i].UserID != ids[name] {
			t.Errorf("rank %d = user %d, want %s (%d)", i+1, entries[i].UserID, name, ids[name])
		}
		if entries[i].Rank != i+1 {
			t.Errorf("rank field = %d, want %d", entries[i].Rank, i+1)
		}
	}

	rank, err := g.GetMyRank(ids["third"])
	if err != nil {
		t.Fatalf("my rank: %v", err)
	}
	if rank.Rank != 3 {
		t.Errorf("my rank = %d, want 3", rank.Rank)
	}

	rank, err = g.GetMyRank(ids["late-tie"])
	if err != nil {
		t.Fatalf("my rank: %v", err)
	}
	if rank.Rank != 2 {
		t.Errorf("tie-break rank = %d, want 2", rank.Rank)
	}
}

func TestUpdateConfigTakesEffect(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "heidi")
	g := newTestGamification(t, db)
	g.now = fixedClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	cfg := testGamificationConfig()
	cfg.ModuleCompletePoints = 200
	g.UpdateConfig(cfg)

	// 模块 200 + 当日首次活动 10
	award(t, db, g, user.ID, model.ActivityModuleComplete)
	u := reloadUser(t, db, user.ID)
	if u.Points != 210 {
		t.Errorf("points = %d, want 210 after config reload", u.Points)
	}
}
