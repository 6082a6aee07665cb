package controller

import (
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GamificationController struct {
	GamificationService *service.GamificationService
	UserService         *service.UserService
}

func NewGamificationController(
	gamificationService *service.GamificationService,
	userService *service.UserService,
) *GamificationController {
	return &GamificationController{
		GamificationService: gamificationService,
		UserService:         userService,
	}
}

// Leaderboard godoc
// @Summary 积分排行榜
// @Description 积分降序，积分相同按最近活跃时间升序；短时缓存，允许秒级滞后
// @Tags 激励
// @Produce  json
// @Security BearerAuth
// @Param   limit query int false "榜单长度" default(10)
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /api/gamification/leaderboard [get]
func (c *GamificationController) Leaderboard(ctx *gin.Context) {
	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "10")))

	entries, err := c.GamificationService.GetLeaderboard(ctx.Request.Context(), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, entries)
}

// MyRank godoc
// @Summary 当前用户的排行榜名次
// @Tags 激励
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.LeaderboardEntry}
// @Router /api/gamification/leaderboard/me [get]
func (c *GamificationController) MyRank(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	entry, err := c.GamificationService.GetMyRank(claims.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, entry)
}

// Stats godoc
// @Summary 学习统计与成就
// @Description 积分、等级、连续天数、学习时长、测验统计与已获徽章
// @Tags 激励
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.ProfileStats}
// @Router /api/users/stats [get]
func (c *GamificationController) Stats(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.UserService.GetStats(claims.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}

// Activity godoc
// @Summary 学习活动流水
// @Tags 激励
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/activity [get]
func (c *GamificationController) Activity(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page := int(util.MustParseUint(ctx.DefaultQuery("page", "1")))
	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "20")))

	items, total, err := c.UserService.GetActivity(claims.UserID, page, limit)
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
