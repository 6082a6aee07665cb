package util

import "errors"

// 错误分类：NotFound / Forbidden / GenerationFailed / InvalidInput / Conflict
// 控制器层据此映射为结构化响应；Conflict 类错误对外不可达，出现即为级联缺陷
var (
	ErrNotFound            = errors.New("resource not found")
	ErrForbidden           = errors.New("permission denied")
	ErrGenerationFailed    = errors.New("content generation failed")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("state conflict")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAssessmentCompleted = errors.New("assessment already completed")
	ErrPathExists          = errors.New("learning path already exists")
	ErrModuleLocked        = errors.New("module is locked")
)
