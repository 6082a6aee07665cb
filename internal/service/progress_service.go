package service

import (
	"context"
	"fmt"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService 资源/主题/模块完成状态与学习时长的唯一事实来源。
// 级联顺序严格固定：资源更新 -> 主题重判 -> 模块重判 -> 解锁下一模块 -> 积分事件；
// 主题与模块状态永远由资源状态重新推导，客户端不能直接改写。
type ProgressService struct {
	DB           *gorm.DB
	Locks        *StudentLocks
	Gamification *GamificationService
}

func NewProgressService(db *gorm.DB, locks *StudentLocks, gamification *GamificationService) *ProgressService {
	return &ProgressService{
		DB:           db,
		Locks:        locks,
		Gamification: gamification,
	}
}

// ProgressSyncRequest 客户端定期（约 10s）与卸载时上报的进度帧。
// SyncCursor 为客户端单调时钟（毫秒）；不前进的游标视为重复上报，不计时长。
type ProgressSyncRequest struct {
	ModuleID              uint  `json:"moduleId" binding:"required"`
	TopicID               uint  `json:"topicId" binding:"required"`
	ResourceID            uint  `json:"resourceId" binding:"required"`
	ProgressPercent       int   `json:"progressPercent"`
	TimeSpentDeltaSeconds int   `json:"timeSpentDeltaSeconds"`
	SyncCursor            int64 `json:"syncCursor"`
}

type ProgressSyncResult struct {
	ResourceCompleted bool               `json:"resourceCompleted"`
	TopicStatus       model.TopicStatus  `json:"topicStatus"`
	ModuleStatus      model.ModuleStatus `json:"moduleStatus"`
	UnlockedModuleID  *uint              `json:"unlockedModuleId,omitempty"`
	PathCompleted     bool               `json:"pathCompleted"`
	AppliedSeconds    int                `json:"appliedSeconds"`
}

// RecordResourceProgress 记录一次资源进度上报并执行完整级联。
// 幂等：重复标记已完成资源不改变完成状态，但仍接受时长增量；
// 未知 id 返回 NotFound 且不产生任何写入。
func (s *ProgressService) RecordResourceProgress(ctx context.Context, userID uint, req ProgressSyncRequest) (*ProgressSyncResult, error) {
	if req.ProgressPercent < 0 || req.ProgressPercent > 100 {
		return nil, fmt.Errorf("%w: progressPercent must be within [0,100]", util.ErrInvalidInput)
	}

	// 时钟偏移容忍：负增量收敛到 0 而不是拒绝
	delta := req.TimeSpentDeltaSeconds
	if delta < 0 {
		delta = 0
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	var result ProgressSyncResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resource, topic, module, path, err := s.loadChain(tx, req)
		if err != nil {
			return err
		}
		if path.UserID != userID {
			return util.ErrForbidden
		}
		// 锁定模块内的资源不接受进度帧：解锁只能由前一模块的级联触发
		if module.Status == model.ModuleLocked {
			return fmt.Errorf("%w: module %d", util.ErrModuleLocked, module.ID)
		}

		// 计时：游标必须前进，否则本帧时长计零（重复/迟到上报安全）
		applied := 0
		if delta > 0 && req.SyncCursor > resource.SyncCursor {
			applied = delta
			resource.TimeSpentSeconds += delta
			topic.TimeSpentSeconds += delta
			if err := tx.Model(&model.User{}).
				Where("id = ?", userID).
				Update("hours_studied", gorm.Expr("hours_studied + ?", float64(delta)/3600)).Error; err != nil {
				return err
			}
		}
		if req.SyncCursor > resource.SyncCursor {
			resource.SyncCursor = req.SyncCursor
		}

		// 完成状态单调：只允许 false -> true
		if req.ProgressPercent == 100 && !resource.Completed {
			resource.Completed = true
		}

		if err := tx.Save(resource).Error; err != nil {
			return err
		}
		if err := tx.Save(topic).Error; err != nil {
			return err
		}

		moduleCompleted, unlockedID, pathDone, err := s.cascade(tx, topic, module, path)
		if err != nil {
			return err
		}

		if moduleCompleted {
			if err := s.Gamification.Award(tx, userID, model.ActivityModuleComplete, module.Title); err != nil {
				return err
			}
		}
		if pathDone {
			if err := tx.Model(&model.User{}).
				Where("id = ?", userID).
				Update("courses_completed", gorm.Expr("courses_completed + ?", 1)).Error; err != nil {
				return err
			}
			if err := tx.Create(&model.ActivityLog{
				UserID:   userID,
				Activity: model.ActivityPathComplete,
				Detail:   path.Field,
			}).Error; err != nil {
				return err
			}
		}

		result = ProgressSyncResult{
			ResourceCompleted: resource.Completed,
			TopicStatus:       topic.Status,
			ModuleStatus:      module.Status,
			UnlockedModuleID:  unlockedID,
			PathCompleted:     pathDone,
			AppliedSeconds:    applied,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// loadChain 校验 resource -> topic -> module -> path 的从属链，任一环节不符即 NotFound
func (s *ProgressService) loadChain(tx *gorm.DB, req ProgressSyncRequest) (*model.PathResource, *model.PathTopic, *model.PathModule, *model.LearningPath, error) {
	var resource model.PathResource
	if err := tx.First(&resource, req.ResourceID).Error; err != nil {
		return nil, nil, nil, nil, util.ErrNotFound
	}
	if resource.TopicID != req.TopicID {
		return nil, nil, nil, nil, util.ErrNotFound
	}

	var topic model.PathTopic
	if err := tx.First(&topic, req.TopicID).Error; err != nil {
		return nil, nil, nil, nil, util.ErrNotFound
	}
	if topic.ModuleID != req.ModuleID {
		return nil, nil, nil, nil, util.ErrNotFound
	}

	var module model.PathModule
	if err := tx.First(&module, req.ModuleID).Error; err != nil {
		return nil, nil, nil, nil, util.ErrNotFound
	}

	var path model.LearningPath
	if err := tx.First(&path, module.PathID).Error; err != nil {
		return nil, nil, nil, nil, util.ErrNotFound
	}

	return &resource, &topic, &module, &path, nil
}

// cascade 主题重判 -> 模块重判 -> 解锁后继模块。
// 返回（模块是否在本次转为 completed，被解锁的模块 ID，路径是否整体完成）。
func (s *ProgressService) cascade(tx *gorm.DB, topic *model.PathTopic, module *model.PathModule, path *model.LearningPath) (bool, *uint, bool, error) {
	// 主题：当且仅当全部资源已完成
	var incomplete int64
	if err := tx.Model(&model.PathResource{}).
		Where("topic_id = ? AND completed = ?", topic.ID, false).
		Count(&incomplete).Error; err != nil {
		return false, nil, false, err
	}
	var total int64
	if err := tx.Model(&model.PathResource{}).
		Where("topic_id = ?", topic.ID).
		Count(&total).Error; err != nil {
		return false, nil, false, err
	}

	if total > 0 && incomplete == 0 && topic.Status != model.TopicCompleted {
		topic.Status = model.TopicCompleted
		if err := tx.Save(topic).Error; err != nil {
			return false, nil, false, err
		}
	}

	if topic.Status != model.TopicCompleted {
		return false, nil, false, nil
	}

	// 模块：当且仅当全部主题已完成
	var pendingTopics int64
	if err := tx.Model(&model.PathTopic{}).
		Where("module_id = ? AND status <> ?", module.ID, model.TopicCompleted).
		Count(&pendingTopics).Error; err != nil {
		return false, nil, false, err
	}
	if pendingTopics > 0 || module.Status == model.ModuleCompleted {
		return false, nil, false, nil
	}

	// locked 直接变 completed 意味着级联被绕过，属于内部不变量破坏
	if module.Status == model.ModuleLocked {
		logger.Log.Error("cascade invariant violation: locked module reached completion",
			zap.Uint("moduleId", module.ID),
			zap.Uint("pathId", path.ID),
			zap.Int("position", module.Position))
		return false, nil, false, fmt.Errorf("%w: module %d completed while locked", util.ErrConflict, module.ID)
	}

	module.Status = model.ModuleCompleted
	if err := tx.Save(module).Error; err != nil {
		return false, nil, false, err
	}

	// 解锁后继模块：locked -> unlocked 的唯一途径
	var next model.PathModule
	err := tx.Where("path_id = ? AND position = ?", path.ID, module.Position+1).First(&next).Error
	if err == gorm.ErrRecordNotFound {
		// 最后一个模块完成，路径整体完成
		return true, nil, true, nil
	}
	if err != nil {
		return false, nil, false, err
	}

	var unlockedID *uint
	if next.Status == model.ModuleLocked {
		next.Status = model.ModuleUnlocked
		if err := tx.Save(&next).Error; err != nil {
			return false, nil, false, err
		}
		id := next.ID
		unlockedID = &id
	}

	return true, unlockedID, false, nil
}
