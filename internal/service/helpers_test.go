package service

import (
	"context"
	"testing"
	"time"

	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// 单连接，避免每个连接各自持有一份 :memory: 数据库
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.User{},
		&model.Badge{},
		&model.ActivityLog{},
		&model.LearningPath{},
		&model.PathModule{},
		&model.PathTopic{},
		&model.PathResource{},
		&model.Assessment{},
		&model.AssessmentQuestion{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testGamificationConfig() config.GamificationConfig {
	return config.GamificationConfig{
		ModuleCompletePoints: 100,
		QuizPassPoints:       50,
		DailyLoginPoints:     10,
		LevelThreshold:       500,
		PassMark:             60,
		Timezone:             "UTC",
		LeaderboardCacheTTL:  30,
	}
}

func newTestGamification(t *testing.T, db *gorm.DB) *GamificationService {
	t.Helper()
	return NewGamificationService(
		repository.NewUserRepository(db),
		repository.NewActivityLogRepository(db),
		repository.NewBadgeRepository(db),
		nil,
		testGamificationConfig(),
	)
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	user := &model.User{
		Name:     name,
		Email:    name + "@test.local",
		Password: "hashed",
		Role:     model.Student,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// testPath 两个模块：首个解锁（两个主题），后继锁定（一个主题）
type testPath struct {
	path    *model.LearningPath
	module1 *model.PathModule
	module2 *model.PathModule
	topic1  *model.PathTopic
	topic2  *model.PathTopic
	topic3  *model.PathTopic
	res1a   *model.PathResource
	res1b   *model.PathResource
	res2a   *model.PathResource
	res3a   *model.PathResource
}

func seedTestPath(t *testing.T, db *gorm.DB, userID uint) *testPath {
	t.Helper()
	p := &testPath{}
	p.path = &model.LearningPath{UserID: userID, Field: "Go", Level: "beginner"}
	mustCreate(t, db, p.path)

	p.module1 = &model.PathModule{PathID: p.path.ID, Title: "语言基础", Status: model.ModuleUnlocked, Position: 0}
	mustCreate(t, db, p.module1)
	p.module2 = &model.PathModule{PathID: p.path.ID, Title: "并发编程", Status: model.ModuleLocked, Position: 1}
	mustCreate(t, db, p.module2)

	p.topic1 = &model.PathTopic{ModuleID: p.module1.ID, Title: "变量与类型", Status: model.TopicPending, Position: 0, ResourcesGenerated: true}
	mustCreate(t, db, p.topic1)
	p.topic2 = &model.PathTopic{ModuleID: p.module1.ID, Title: "流程控制", Status: model.TopicPending, Position: 1, ResourcesGenerated: true}
	mustCreate(t, db, p.topic2)
	p.topic3 = &model.PathTopic{ModuleID: p.module2.ID, Title: "Goroutine", Status: model.TopicPending, Position: 0}
	mustCreate(t, db, p.topic3)

	p.res1a = &model.PathResource{TopicID: p.topic1.ID, Type: model.Video, Title: "入门视频", Position: 0}
	mustCreate(t, db, p.res1a)
	p.res1b = &model.PathResource{TopicID: p.topic1.ID, Type: model.Article, Title: "类型系统详解", Position: 1}
	mustCreate(t, db, p.res1b)
	p.res2a = &model.PathResource{TopicID: p.topic2.ID, Type: model.Exercise, Title: "条件与循环练习", Position: 0}
	mustCreate(t, db, p.res2a)
	p.res3a = &model.PathResource{TopicID: p.topic3.ID, Type: model.Video, Title: "并发入门", Position: 0}
	mustCreate(t, db, p.res3a)

	return p
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// stubGenerator 可编程的 ContentGenerator 测试替身
type stubGenerator struct {
	questions    []GeneratedQuestion
	questionsErr error

	rec      *ResourceRecommendation
	recErr   error
	recCalls int

	outline      *PathOutline
	outlineErr   error
	outlineCalls int
}

func (g *stubGenerator) GenerateAssessmentQuestions(ctx context.Context, field, level string, count int) ([]GeneratedQuestion, error) {
	if g.questionsErr != nil {
		return nil, g.questionsErr
	}
	return g.questions, nil
}

func (g *stubGenerator) GenerateResourceRecommendations(ctx context.Context, field, level string, topics []string) (*ResourceRecommendation, error) {
	g.recCalls++
	if g.recErr != nil {
		return nil, g.recErr
	}
	return g.rec, nil
}

func (g *stubGenerator) GeneratePathOutline(ctx context.Context, field, level string) (*PathOutline, error) {
	g.outlineCalls++
	if g.outlineErr != nil {
		return nil, g.outlineErr
	}
	return g.outline, nil
}
