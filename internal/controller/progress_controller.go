package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// Sync godoc
// @Summary 上报资源学习进度
// @Description 接收进度帧（完成度、时长增量、同步游标）并执行完成级联；
// @Description 重复或乱序的游标不计时长，重复完成不改变状态
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.ProgressSyncRequest true "进度帧"
// @Success 200 {object} util.Response{data=service.ProgressSyncResult}
// @Failure 400 {object} util.Response "进度值越界"
// @Failure 404 {object} util.Response "资源不存在"
// @Failure 409 {object} util.Response "路径状态异常"
// @Router /api/progress/sync [post]
func (c *ProgressController) Sync(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ProgressSyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ProgressService.RecordResourceProgress(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
