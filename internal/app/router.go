package app

import (
	"learnsphere_backend/docs"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/middleware"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.Check)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/me", c.auth.Me)

		// 学习路径
		authGroup.POST("/learning-path", c.path.CreatePath)
		authGroup.GET("/learning-path", c.path.GetPath)
		authGroup.GET("/learning-path/modules/:id", c.path.GetModule)
		authGroup.GET("/learning-path/topics/:id", c.path.GetTopic)
		authGroup.POST("/learning-path/topics/:id/resources", c.path.EnsureTopicResources)

		// 学习进度
		authGroup.POST("/progress/sync", c.progress.Sync)

		// 测验
		authGroup.POST("/assessments", c.assessment.Generate)
		authGroup.GET("/assessments", c.assessment.List)
		authGroup.GET("/assessments/:id", c.assessment.Get)
		authGroup.POST("/assessments/:id/submit", c.assessment.Submit)

		// 激励
		authGroup.GET("/gamification/leaderboard", c.gamification.Leaderboard)
		authGroup.GET("/gamification/leaderboard/me", c.gamification.MyRank)
		authGroup.GET("/users/stats", c.gamification.Stats)
		authGroup.GET("/activity", c.gamification.Activity)

		// 教师接口
		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.POST("/learning-paths", c.path.CreateManualPath)
		}
	}
}
