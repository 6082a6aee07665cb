package controller

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// Check godoc
// @Summary 健康检查
// @Description 检查数据库与 Redis 连接状态
// @Tags 系统
// @Produce  json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (c *HealthController) Check(ctx *gin.Context) {
	status := gin.H{"status": "ok"}
	code := 200

	sqlDB, err := c.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		status["database"] = "down"
		status["status"] = "degraded"
		code = 503
	} else {
		status["database"] = "up"
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()
	if c.Redis != nil && c.Redis.Ping(pingCtx).Err() == nil {
		status["redis"] = "up"
	} else {
		status["redis"] = "down"
		status["status"] = "degraded"
		code = 503
	}

	ctx.JSON(code, status)
}
