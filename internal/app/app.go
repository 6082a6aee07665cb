package app

import (
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/controller"
	"learnsphere_backend/internal/middleware"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/service"
	"learnsphere_backend/pkg/database"
	"learnsphere_backend/pkg/logger"
	"learnsphere_backend/pkg/monitoring"
	"learnsphere_backend/pkg/security"
	"learnsphere_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	user       *repository.UserRepository
	path       *repository.PathRepository
	assessment *repository.AssessmentRepository
	activity   *repository.ActivityLogRepository
	badge      *repository.BadgeRepository
}

type services struct {
	ai           *service.AIService
	auth         *service.AuthService
	user         *service.UserService
	path         *service.PathService
	progress     *service.ProgressService
	assessment   *service.AssessmentService
	gamification *service.GamificationService
	locks        *service.StudentLocks
}

type controllers struct {
	auth         *controller.AuthController
	path         *controller.PathController
	progress     *controller.ProgressController
	assessment   *controller.AssessmentController
	gamification *controller.GamificationController
	health       *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		path:       repository.NewPathRepository(db),
		assessment: repository.NewAssessmentRepository(db),
		activity:   repository.NewActivityLogRepository(db),
		badge:      repository.NewBadgeRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.locks = service.NewStudentLocks()
	s.ai = service.NewAIService(cfg.AI)
	s.gamification = service.NewGamificationService(repos.user, repos.activity, repos.badge, rdb, cfg.Gamification)
	s.auth = service.NewAuthService(repos.user, db, s.locks, s.gamification, cfg)
	s.user = service.NewUserService(repos.user, repos.badge, repos.activity)
	s.path = service.NewPathService(db, repos.path, s.ai, s.locks)
	s.progress = service.NewProgressService(db, s.locks, s.gamification)
	s.assessment = service.NewAssessmentService(db, repos.assessment, s.ai, s.gamification, s.locks)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		path:         controller.NewPathController(s.path),
		progress:     controller.NewProgressController(s.progress),
		assessment:   controller.NewAssessmentController(s.assessment),
		gamification: controller.NewGamificationController(s.gamification, s.user),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.RequestID())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// ReloadGamificationConfig 配置热更新回调：积分表与及格线可运行时调整
func (a *App) ReloadGamificationConfig(cfg *config.Config) {
	if a.services == nil || a.services.gamification == nil {
		return
	}
	a.services.gamification.UpdateConfig(cfg.Gamification)
	logger.Log.Info("gamification config reloaded",
		zap.Int("module_complete_points", cfg.Gamification.ModuleCompletePoints),
		zap.Int("quiz_pass_points", cfg.Gamification.QuizPassPoints),
		zap.Float64("pass_mark", cfg.Gamification.PassMark))
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("learnsphere", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Log.Sync()
	log.Println("Server exiting")
}
