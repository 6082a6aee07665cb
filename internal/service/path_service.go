package service

import (
	"context"
	"errors"
	"fmt"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"
	"learnsphere_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PathService 学习路径的创建与主题内容的两段式生成。
// 生成（高延迟）一律在不持锁的情况下先行完成，结果在锁内以
// “目标仍为空”的前提提交，避免并发重复生成。
type PathService struct {
	DB        *gorm.DB
	Repo      *repository.PathRepository
	Generator ContentGenerator
	Locks     *StudentLocks
}

func NewPathService(db *gorm.DB, repo *repository.PathRepository, generator ContentGenerator, locks *StudentLocks) *PathService {
	return &PathService{
		DB:        db,
		Repo:      repo,
		Generator: generator,
		Locks:     locks,
	}
}

type CreatePathRequest struct {
	Field string `json:"field" binding:"required"`
	Level string `json:"level" binding:"required"`
}

// CreatePath 为学生生成个性化路径。幂等：已有路径时直接返回现有路径。
// 大纲生成失败降级到确定性模板，首个模块解锁，其余锁定。
func (s *PathService) CreatePath(ctx context.Context, userID uint, req CreatePathRequest) (*model.LearningPath, error) {
	if existing, err := s.Repo.FindByUserID(userID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	outline, err := s.Generator.GeneratePathOutline(context.WithoutCancel(ctx), req.Field, req.Level)
	monitoring.ObserveGeneration("outline", err)
	if err != nil || outline == nil || len(outline.Modules) == 0 {
		logger.Log.Warn("path outline generation failed, serving fallback outline",
			zap.Uint("userId", userID),
			zap.String("field", req.Field),
			zap.Error(err))
		outline = fallbackOutline(req.Field)
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	var path *model.LearningPath
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁内复查：并发创建时先到者胜出
		var count int64
		if err := tx.Model(&model.LearningPath{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return util.ErrPathExists
		}

		path = buildPath(userID, req.Field, req.Level, outline)
		return tx.Create(path).Error
	})
	if errors.Is(txErr, util.ErrPathExists) {
		return s.Repo.FindByUserID(userID)
	}
	if txErr != nil {
		return nil, txErr
	}
	return path, nil
}

// buildPath 由大纲构建路径树：模块按序排列，仅首个模块解锁
func buildPath(userID uint, field, level string, outline *PathOutline) *model.LearningPath {
	path := &model.LearningPath{
		UserID: userID,
		Field:  field,
		Level:  level,
	}
	for i, om := range outline.Modules {
		status := model.ModuleLocked
		if i == 0 {
			status = model.ModuleUnlocked
		}
		module := model.PathModule{
			Title:       om.Title,
			Description: om.Description,
			Status:      status,
			Position:    i,
		}
		for j, ot := range om.Topics {
			module.Topics = append(module.Topics, model.PathTopic{
				Title:    ot.Title,
				Status:   model.TopicPending,
				Position: j,
			})
		}
		path.Modules = append(path.Modules, module)
	}
	return path
}

// GetPath 纯读取，无副作用
func (s *PathService) GetPath(userID uint) (*model.LearningPath, error) {
	path, err := s.Repo.FindByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	return path, err
}

// GetModule 纯读取；非属主一律 Forbidden
func (s *PathService) GetModule(userID, moduleID uint) (*model.PathModule, error) {
	owner, err := s.Repo.FindModuleOwner(moduleID)
	if err != nil {
		return nil, util.ErrNotFound
	}
	if owner.UserID != userID {
		return nil, util.ErrForbidden
	}
	return s.Repo.FindModuleByID(moduleID)
}

// GetTopic 纯读取；非属主一律 Forbidden
func (s *PathService) GetTopic(userID, topicID uint) (*model.PathTopic, error) {
	owner, err := s.Repo.FindTopicOwner(topicID)
	if err != nil {
		return nil, util.ErrNotFound
	}
	if owner.UserID != userID {
		return nil, util.ErrForbidden
	}
	return s.Repo.FindTopicByID(topicID)
}

// EnsureTopicResources 两段式显式生成：幂等且锁内 CAS 提交。
// 读路径（GetTopic）保持无副作用；与读内嵌生成相比，并发下不会重复生成。
func (s *PathService) EnsureTopicResources(ctx context.Context, userID, topicID uint) (*model.PathTopic, error) {
	owner, err := s.Repo.FindTopicOwner(topicID)
	if err != nil {
		return nil, util.ErrNotFound
	}
	if owner.UserID != userID {
		return nil, util.ErrForbidden
	}

	topic, err := s.Repo.FindTopicByID(topicID)
	if err != nil {
		return nil, util.ErrNotFound
	}
	if topic.ResourcesGenerated {
		return topic, nil
	}

	// 第一阶段：不持锁生成（协作方为唯一高延迟依赖）。
	// 客户端中途断开不取消在途生成：已发起的结果仍会提交，避免半创建状态。
	genCtx := context.WithoutCancel(ctx)
	rec, err := s.Generator.GenerateResourceRecommendations(genCtx, owner.Field, owner.Level, []string{topic.Title})
	monitoring.ObserveGeneration("resources", err)
	if err != nil {
		return nil, err
	}
	if rec == nil || len(rec.Recommendations) == 0 {
		return nil, fmt.Errorf("%w: collaborator returned zero resources", util.ErrGenerationFailed)
	}

	// 第二阶段：锁内提交，仅当资源仍为空（并发生成竞争时后到者丢弃）
	unlock := s.Locks.Lock(userID)
	defer unlock()

	txErr := s.DB.WithContext(genCtx).Transaction(func(tx *gorm.DB) error {
		var current model.PathTopic
		if err := tx.First(&current, topicID).Error; err != nil {
			return util.ErrNotFound
		}
		if current.ResourcesGenerated {
			return nil
		}
		// 仅当资源确实为空才追加：标记位之外再查实际行数，
		// 非空但未置位的主题只补标记，不重复写入
		var existing int64
		if err := tx.Model(&model.PathResource{}).Where("topic_id = ?", topicID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			current.ResourcesGenerated = true
			return tx.Save(&current).Error
		}

		for i, r := range rec.Recommendations {
			resource := model.PathResource{
				TopicID:      topicID,
				Type:         model.ResourceType(r.Type),
				Title:        r.Title,
				URL:          r.URL,
				DurationHint: r.Duration,
				Position:     i,
			}
			if err := tx.Create(&resource).Error; err != nil {
				return err
			}
		}

		current.Content = rec.Content
		current.ResourcesGenerated = true
		return tx.Save(&current).Error
	})
	if txErr != nil {
		return nil, txErr
	}

	return s.Repo.FindTopicByID(topicID)
}

type ManualTopic struct {
	Title     string                `json:"title" binding:"required"`
	Content   string                `json:"content"`
	Resources []RecommendedResource `json:"resources"`
}

type ManualModule struct {
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description"`
	Topics      []ManualTopic `json:"topics" binding:"required"`
}

type ManualPathRequest struct {
	UserID  uint           `json:"userId" binding:"required"`
	Field   string         `json:"field" binding:"required"`
	Level   string         `json:"level" binding:"required"`
	Modules []ManualModule `json:"modules" binding:"required"`
}

// CreateManualPath 教师人工编排的路径（不经 AI）。目标学生已有路径时返回冲突。
func (s *PathService) CreateManualPath(ctx context.Context, req ManualPathRequest) (*model.LearningPath, error) {
	exists, err := s.Repo.ExistsForUser(req.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrPathExists
	}

	unlock := s.Locks.Lock(req.UserID)
	defer unlock()

	var path *model.LearningPath
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.LearningPath{}).Where("user_id = ?", req.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return util.ErrPathExists
		}

		path = &model.LearningPath{
			UserID: req.UserID,
			Field:  req.Field,
			Level:  req.Level,
		}
		for i, m := range req.Modules {
			status := model.ModuleLocked
			if i == 0 {
				status = model.ModuleUnlocked
			}
			module := model.PathModule{
				Title:       m.Title,
				Description: m.Description,
				Status:      status,
				Position:    i,
			}
			for j, t := range m.Topics {
				topic := model.PathTopic{
					Title:              t.Title,
					Content:            t.Content,
					Status:             model.TopicPending,
					Position:           j,
					ResourcesGenerated: len(t.Resources) > 0,
				}
				for k, r := range t.Resources {
					topic.Resources = append(topic.Resources, model.PathResource{
						Type:         model.ResourceType(r.Type),
						Title:        r.Title,
						URL:          r.URL,
						DurationHint: r.Duration,
						Position:     k,
					})
				}
				module.Topics = append(module.Topics, topic)
			}
			path.Modules = append(path.Modules, module)
		}
		return tx.Create(path).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return path, nil
}
