package repository

import (
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

type PathRepository struct {
	DB *gorm.DB
}

func NewPathRepository(db *gorm.DB) *PathRepository {
	return &PathRepository{DB: db}
}

func (r *PathRepository) Create(path *model.LearningPath) error {
	return r.DB.Create(path).Error
}

// FindByUserID 返回学生的完整路径树，模块/主题/资源均按插入顺序排列
func (r *PathRepository) FindByUserID(userID uint) (*model.LearningPath, error) {
	var path model.LearningPath
	err := r.DB.
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("path_modules.position ASC")
		}).
		Preload("Modules.Topics", func(db *gorm.DB) *gorm.DB {
			return db.Order("path_topics.position ASC")
		}).
		Preload("Modules.Topics.Resources", func(db *gorm.DB) *gorm.DB {
			return db.Order("path_resources.position ASC")
		}).
		Where("user_id = ?", userID).
		First(&path).Error
	return &path, err
}

func (r *PathRepository) ExistsForUser(userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.LearningPath{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *PathRepository) FindModuleByID(id uint) (*model.PathModule, error) {
	var m model.PathModule
	err := r.DB.Preload("Topics", func(db *gorm.DB) *gorm.DB {
		return db.Order("path_topics.position ASC")
	}).First(&m, id).Error
	return &m, err
}

// FindModuleOwner 定位模块所属的路径与学生，用于所有权校验
func (r *PathRepository) FindModuleOwner(moduleID uint) (*model.LearningPath, error) {
	var module model.PathModule
	if err := r.DB.First(&module, moduleID).Error; err != nil {
		return nil, err
	}
	var path model.LearningPath
	if err := r.DB.First(&path, module.PathID).Error; err != nil {
		return nil, err
	}
	return &path, nil
}

func (r *PathRepository) FindTopicByID(id uint) (*model.PathTopic, error) {
	var t model.PathTopic
	err := r.DB.Preload("Resources", func(db *gorm.DB) *gorm.DB {
		return db.Order("path_resources.position ASC")
	}).First(&t, id).Error
	return &t, err
}

// FindTopicOwner 定位主题所属的路径与学生，用于所有权校验
func (r *PathRepository) FindTopicOwner(topicID uint) (*model.LearningPath, error) {
	var topic model.PathTopic
	if err := r.DB.First(&topic, topicID).Error; err != nil {
		return nil, err
	}
	var module model.PathModule
	if err := r.DB.First(&module, topic.ModuleID).Error; err != nil {
		return nil, err
	}
	var path model.LearningPath
	if err := r.DB.First(&path, module.PathID).Error; err != nil {
		return nil, err
	}
	return &path, nil
}
