package service

import (
	"context"
	"errors"
	"testing"

	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"

	"gorm.io/gorm"
)

func testOutline() *PathOutline {
	return &PathOutline{
		Modules: []OutlineModule{
			{
				Title:       "语言基础",
				Description: "语法与类型系统",
				Topics:      []OutlineTopic{{Title: "变量与类型"}, {Title: "流程控制"}},
			},
			{
				Title:       "并发编程",
				Description: "goroutine 与 channel",
				Topics:      []OutlineTopic{{Title: "Goroutine"}},
			},
		},
	}
}

func newPathFixture(t *testing.T, gen ContentGenerator) (*PathService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	s := NewPathService(db, repository.NewPathRepository(db), gen, NewStudentLocks())
	return s, db
}

func TestCreatePathFromOutline(t *testing.T) {
	gen := &stubGenerator{outline: testOutline()}
	s, db := newPathFixture(t, gen)
	user := createTestUser(t, db, "alice")

	path, err := s.CreatePath(context.Background(), user.ID, CreatePathRequest{Field: "Go", Level: "beginner"})
	if err != nil {
		t.Fatalf("create path: %v", err)
	}

	if len(path.Modules) != 2 {
		t.Fatalf("modules = %d, want 2", len(path.Modules))
	}
	if path.Modules[0].Status != model.ModuleUnlocked {
		t.Errorf("first module = %s, want unlocked", path.Modules[0].Status)
	}
	if path.Modules[1].Status != model.ModuleLocked {
		t.Errorf("second module = %s, want locked", path.Modules[1].Status)
	}
	for _, topic := range path.Modules[0].Topics {
		if topic.Status != model.TopicPending {
			t.Errorf("topic %q = %s, want pending", topic.Title, topic.Status)
		}
	}
}

func TestCreatePathIdempotent(t *testing.T) {
	gen := &stubGenerator{outline: testOutline()}
	s, db := newPathFixture(t, gen)
	user := createTestUser(t, db, "alice")
	ctx := context.Background()

	first, err := s.CreatePath(ctx, user.ID, CreatePathRequest{Field: "Go", Level: "beginner"})
	if err != nil {
		t.Fatalf("create path: %v", err)
	}
	second, err := s.CreatePath(ctx, user.ID, CreatePathRequest{Field: "Rust", Level: "advanced"})
	if err != nil {
		t.Fatalf("repeat create: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("repeat create returned different path: %d vs %d", first.ID, second.ID)
	}
	if gen.outlineCalls != 1 {
		t.Errorf("outline generated %d times, want 1", gen.outlineCalls)
	}
}

func TestCreatePathFallbackOutline(t *testing.T) {
	gen := &stubGenerator{outlineErr: errors.New("collaborator timeout")}
	s, db := newPathFixture(t, gen)
	user := createTestUser(t, db, "alice")

	path, err := s.CreatePath(context.Background(), user.ID, CreatePathRequest{Field: "Go", Level: "beginner"})
	if err != nil {
		t.Fatalf("create path should degrade, got %v", err)
	}
	if len(path.Modules) == 0 {
		t.Fatal("fallback outline must not be empty")
	}
	if path.Modules[0].Status != model.ModuleUnlocked {
		t.Errorf("first module = %s, want unlocked", path.Modules[0].Status)
	}
}

func TestGetTopicOwnership(t *testing.T) {
	s, db := newPathFixture(t, &stubGenerator{})
	owner := createTestUser(t, db, "alice")
	intruder := createTestUser(t, db, "mallory")
	p := seedTestPath(t, db, owner.ID)

	if _, err := s.GetTopic(owner.ID, p.topic1.ID); err != nil {
		t.Errorf("owner get: %v", err)
	}
	if _, err := s.GetTopic(intruder.ID, p.topic1.ID); !errors.Is(err, util.ErrForbidden) {
		t.Errorf("foreign get err = %v, want ErrForbidden", err)
	}
	if _, err := s.GetTopic(owner.ID, 9999); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("unknown topic err = %v, want ErrNotFound", err)
	}
}

func TestGetModuleOwnership(t *testing.T) {
	s, db := newPathFixture(t, &stubGenerator{})
	owner := createTestUser(t, db, "alice")
	intruder := createTestUser(t, db, "mallory")
	p := seedTestPath(t, db, owner.ID)

	module, err := s.GetModule(owner.ID, p.module1.ID)
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if len(module.Topics) != 2 {
		t.Errorf("topics = %d, want 2", len(module.Topics))
	}
	if _, err := s.GetModule(intruder.ID, p.module1.ID); !errors.Is(err, util.ErrForbidden) {
		t.Errorf("foreign get err = %v, want ErrForbidden", err)
	}
	if _, err := s.GetModule(owner.ID, 9999); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("unknown module err = %v, want ErrNotFound", err)
	}
}

func TestEnsureTopicResources(t *testing.T) {
	gen := &stubGenerator{rec: &ResourceRecommendation{
		Content: "# Goroutine\n\n并发基础……",
		Recommendations: []RecommendedResource{
			{Type: "video", Title: "并发入门", URL: "https://example.com/v1", Duration: 20},
			{Type: "exercise", Title: "channel 练习", URL: "https://example.com/e1", Duration: 30},
		},
	}}
	s, db := newPathFixture(t, gen)
	user := createTestUser(t, db, "alice")
	p := seedTestPath(t, db, user.ID)
	ctx := context.Background()

	// 尚无任何资源的主题
	empty := &model.PathTopic{ModuleID: p.module2.ID, Title: "Channel", Status: model.TopicPending, Position: 1}
	mustCreate(t, db, empty)

	topic, err := s.EnsureTopicResources(ctx, user.ID, empty.ID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !topic.ResourcesGenerated {
		t.Error("resourcesGenerated should be set")
	}
	if topic.Content == "" {
		t.Error("topic content should be filled")
	}
	if len(topic.Resources) != 2 {
		t.Fatalf("resources = %d, want 2", len(topic.Resources))
	}
	if topic.Resources[0].Position != 0 || topic.Resources[1].Position != 1 {
		t.Error("resources must preserve recommendation order")
	}

	// 幂等：二次调用不再触发生成
	if _, err := s.EnsureTopicResources(ctx, user.ID, empty.ID); err != nil {
		t.Fatalf("repeat ensure: %v", err)
	}
	if gen.recCalls != 1 {
		t.Errorf("generator called %d times, want 1", gen.recCalls)
	}

	var count int64
	if err := db.Model(&model.PathResource{}).Where("topic_id = ?", empty.ID).Count(&count).Error; err != nil {
		t.Fatalf("count resources: %v", err)
	}
	if count != 2 {
		t.Errorf("stored resources = %d, want 2", count)
	}
}

func TestEnsureTopicResourcesNonEmptyUnflagged(t *testing.T) {
	gen := &stubGenerator{rec: &ResourceRecommendation{
		Content: "# Goroutine",
		Recommendations: []RecommendedResource{
			{Type: "video", Title: "并发入门", URL: "https://example.com/v1", Duration: 20},
		},
	}}
	s, db := newPathFixture(t, gen)
	user := createTestUser(t, db, "alice")
	p := seedTestPath(t, db, user.ID)

	// topic3 已持有一条资源但标记位未置：只补标记，不追加资源
	topic, err := s.EnsureTopicResources(context.Background(), user.ID, p.topic3.ID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !topic.ResourcesGenerated {
		t.Error("flag should be repaired")
	}
	if len(topic.Resources) != 1 {
		t.Errorf("resources = %d, want the pre-existing 1", len(topic.Resources))
	}
	if topic.Resources[0].ID != p.res3a.ID {
		t.Errorf("resource id = %d, want %d", topic.Resources[0].ID, p.res3a.ID)
	}
}

func TestEnsureTopicResourcesFailures(t *testing.T) {
	s, db := newPathFixture(t, &stubGenerator{rec: &ResourceRecommendation{}})
	user := createTestUser(t, db, "alice")
	intruder := createTestUser(t, db, "mallory")
	p := seedTestPath(t, db, user.ID)
	ctx := context.Background()

	if _, err := s.EnsureTopicResources(ctx, intruder.ID, p.topic3.ID); !errors.Is(err, util.ErrForbidden) {
		t.Errorf("foreign ensure err = %v, want ErrForbidden", err)
	}

	// 空结果与失败同样上报，不落半成品
	if _, err := s.EnsureTopicResources(ctx, user.ID, p.topic3.ID); !errors.Is(err, util.ErrGenerationFailed) {
		t.Errorf("empty result err = %v, want ErrGenerationFailed", err)
	}

	var topic model.PathTopic
	if err := db.First(&topic, p.topic3.ID).Error; err != nil {
		t.Fatalf("reload topic: %v", err)
	}
	if topic.ResourcesGenerated {
		t.Error("failed generation must not set the flag")
	}
}

func TestCreateManualPath(t *testing.T) {
	s, db := newPathFixture(t, &stubGenerator{})
	student := createTestUser(t, db, "alice")
	ctx := context.Background()

	req := ManualPathRequest{
		UserID: student.ID,
		Field:  "Go",
		Level:  "beginner",
		Modules: []ManualModule{
			{
				Title: "定制模块",
				Topics: []ManualTopic{
					{
						Title:   "指定主题",
						Content: "教师提供的讲义",
						Resources: []RecommendedResource{
							{Type: "doc", Title: "讲义", URL: "https://example.com/d1"},
						},
					},
				},
			},
		},
	}

	path, err := s.CreateManualPath(ctx, req)
	if err != nil {
		t.Fatalf("manual create: %v", err)
	}
	if path.Modules[0].Status != model.ModuleUnlocked {
		t.Errorf("first module = %s, want unlocked", path.Modules[0].Status)
	}
	// 教师提供了资源的主题视为已生成，不再触发 AI
	if !path.Modules[0].Topics[0].ResourcesGenerated {
		t.Error("pre-filled topic should be marked generated")
	}

	if _, err := s.CreateManualPath(ctx, req); !errors.Is(err, util.ErrPathExists) {
		t.Errorf("duplicate manual create err = %v, want ErrPathExists", err)
	}
}
