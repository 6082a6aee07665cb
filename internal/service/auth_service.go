package service

import (
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo     *repository.UserRepository
	DB           *gorm.DB
	Locks        *StudentLocks
	Gamification *GamificationService
	Cfg          *config.Config
}

func NewAuthService(
	userRepo *repository.UserRepository,
	db *gorm.DB,
	locks *StudentLocks,
	gamification *GamificationService,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		UserRepo:     userRepo,
		DB:           db,
		Locks:        locks,
		Gamification: gamification,
		Cfg:          cfg,
	}
}

func (s *AuthService) Register(user *model.User) error {
	_, err := s.UserRepo.FindByEmail(user.Email)
	if err == nil {
		return util.ErrEmailRegistered
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashedPassword)
	return s.UserRepo.Create(user)
}

func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.UserRepo.FindByEmail(email)
	if err != nil {
		return "", util.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", util.ErrInvalidCredentials
	}

	// 每日首次登录计入连续天数并发放登录奖励；失败不阻塞登录
	unlock := s.Locks.Lock(user.ID)
	loginErr := s.DB.Transaction(func(tx *gorm.DB) error {
		return s.Gamification.RecordLogin(tx, user.ID)
	})
	unlock()
	if loginErr != nil {
		logger.Log.Warn("record login activity failed",
			zap.Uint("user_id", user.ID),
			zap.Error(loginErr))
	}

	return util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
}

func (s *AuthService) GetCurrentUser(c *gin.Context) *model.User {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil
	}

	user, _ := s.UserRepo.FindByID(claims.UserID)
	return user
}
