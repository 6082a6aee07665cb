package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PathController struct {
	PathService *service.PathService
}

func NewPathController(pathService *service.PathService) *PathController {
	return &PathController{PathService: pathService}
}

// CreatePath godoc
// @Summary 生成个性化学习路径
// @Description 按领域与水平生成路径；已有路径时幂等返回现有路径
// @Tags 学习路径
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CreatePathRequest true "领域与水平"
// @Success 200 {object} util.Response{data=model.LearningPath}
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/learning-path [post]
func (c *PathController) CreatePath(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreatePathRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	path, err := c.PathService.CreatePath(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, path)
}

// GetPath godoc
// @Summary 获取当前用户的学习路径
// @Description 返回完整路径树（模块、主题、资源），按位置排序
// @Tags 学习路径
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.LearningPath}
// @Failure 404 {object} util.Response "路径不存在"
// @Router /api/learning-path [get]
func (c *PathController) GetPath(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	path, err := c.PathService.GetPath(claims.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, path)
}

// GetModule godoc
// @Summary 获取模块详情
// @Tags 学习路径
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "模块 ID"
// @Success 200 {object} util.Response{data=model.PathModule}
// @Failure 403 {object} util.Response "无权访问他人路径"
// @Failure 404 {object} util.Response "模块不存在"
// @Router /api/learning-path/modules/{id} [get]
func (c *PathController) GetModule(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID, err := util.ParseUintParam(ctx, "id")
	if err != nil {
		util.BadRequest(ctx, "无效的模块 ID")
		return
	}

	module, err := c.PathService.GetModule(claims.UserID, moduleID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, module)
}

// GetTopic godoc
// @Summary 获取主题详情
// @Tags 学习路径
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "主题 ID"
// @Success 200 {object} util.Response{data=model.PathTopic}
// @Failure 403 {object} util.Response "无权访问他人路径"
// @Failure 404 {object} util.Response "主题不存在"
// @Router /api/learning-path/topics/{id} [get]
func (c *PathController) GetTopic(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	topicID, err := util.ParseUintParam(ctx, "id")
	if err != nil {
		util.BadRequest(ctx, "无效的主题 ID")
		return
	}

	topic, err := c.PathService.GetTopic(claims.UserID, topicID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, topic)
}

// EnsureTopicResources godoc
// @Summary 按需生成主题学习资源
// @Description 首次访问时生成资源推荐与内容，之后幂等返回已有资源
// @Tags 学习路径
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "主题 ID"
// @Success 200 {object} util.Response{data=model.PathTopic}
// @Failure 403 {object} util.Response "无权访问他人路径"
// @Failure 404 {object} util.Response "主题不存在"
// @Failure 502 {object} util.Response "内容生成失败"
// @Router /api/learning-path/topics/{id}/resources [post]
func (c *PathController) EnsureTopicResources(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	topicID, err := util.ParseUintParam(ctx, "id")
	if err != nil {
		util.BadRequest(ctx, "无效的主题 ID")
		return
	}

	topic, err := c.PathService.EnsureTopicResources(ctx.Request.Context(), claims.UserID, topicID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, topic)
}

// CreateManualPath godoc
// @Summary 教师为学生手工创建路径
// @Tags 学习路径
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.ManualPathRequest true "路径结构"
// @Success 201 {object} util.Response{data=model.LearningPath}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "该学生已有路径"
// @Router /api/teacher/learning-paths [post]
func (c *PathController) CreateManualPath(ctx *gin.Context) {
	var req service.ManualPathRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	path, err := c.PathService.CreateManualPath(ctx.Request.Context(), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Created(ctx, path)
}
