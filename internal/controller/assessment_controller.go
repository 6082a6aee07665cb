package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	AssessmentService *service.AssessmentService
}

func NewAssessmentController(assessmentService *service.AssessmentService) *AssessmentController {
	return &AssessmentController{AssessmentService: assessmentService}
}

// Generate godoc
// @Summary 生成测验
// @Description 生成指定领域与水平的测验题目；返回内容不含正确答案
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.GenerateAssessmentRequest true "生成参数"
// @Success 201 {object} util.Response{data=service.AssessmentView}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 502 {object} util.Response "题目生成失败"
// @Router /api/assessments [post]
func (c *AssessmentController) Generate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.GenerateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.AssessmentService.Generate(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Created(ctx, view)
}

// Submit godoc
// @Summary 提交测验答案
// @Description 评分、生成薄弱知识点与认知层级分析，并结算积分；
// @Description 已提交的测验不可重复提交
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验 ID"
// @Param   body body service.SubmitAssessmentRequest true "答案列表"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 403 {object} util.Response "无权访问他人测验"
// @Failure 404 {object} util.Response "测验不存在"
// @Failure 409 {object} util.Response "测验已提交"
// @Router /api/assessments/{id}/submit [post]
func (c *AssessmentController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	assessmentID, err := util.ParseUintParam(ctx, "id")
	if err != nil {
		util.BadRequest(ctx, "无效的测验 ID")
		return
	}

	var req service.SubmitAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AssessmentService.Submit(ctx.Request.Context(), claims.UserID, assessmentID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// Get godoc
// @Summary 获取测验详情
// @Description 未提交时返回脱敏视图（无答案），已提交时含答案与解析
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验 ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "无权访问他人测验"
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	assessmentID, err := util.ParseUintParam(ctx, "id")
	if err != nil {
		util.BadRequest(ctx, "无效的测验 ID")
		return
	}

	view, err := c.AssessmentService.Get(claims.UserID, assessmentID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, view)
}

// List godoc
// @Summary 测验历史
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response
// @Router /api/assessments [get]
func (c *AssessmentController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page := int(util.MustParseUint(ctx.DefaultQuery("page", "1")))
	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "10")))

	items, total, err := c.AssessmentService.List(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
