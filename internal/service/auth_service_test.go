package service

import (
	"errors"
	"testing"
	"time"

	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"

	"gorm.io/gorm"
)

func newAuthFixture(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpireTime = time.Hour
	g := newTestGamification(t, db)
	g.now = fixedClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	s := NewAuthService(repository.NewUserRepository(db), db, NewStudentLocks(), g, cfg)
	return s, db
}

func TestRegisterAndLogin(t *testing.T) {
	s, db := newAuthFixture(t)

	user := &model.User{Name: "alice", Email: "alice@test.local", Password: "secret-password", Role: model.Student}
	if err := s.Register(user); err != nil {
		t.Fatalf("register: %v", err)
	}

	// 密码散列后存储
	var stored model.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.Password == "secret-password" {
		t.Error("password must not be stored in plain text")
	}

	dup := &model.User{Name: "alice2", Email: "alice@test.local", Password: "other-password"}
	if err := s.Register(dup); !errors.Is(err, util.ErrEmailRegistered) {
		t.Errorf("duplicate register err = %v, want ErrEmailRegistered", err)
	}

	token, err := s.Login("alice@test.local", "secret-password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatal("login must return a token")
	}

	claims, err := util.ParseJWT(token, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("token userID = %d, want %d", claims.UserID, user.ID)
	}

	if _, err := s.Login("alice@test.local", "wrong"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Login("nobody@test.local", "secret-password"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginRecordsDailyActivity(t *testing.T) {
	s, db := newAuthFixture(t)

	user := &model.User{Name: "bob", Email: "bob@test.local", Password: "secret-password"}
	if err := s.Register(user); err != nil {
		t.Fatalf("register: %v", err)
	}

	// 同日两次登录只发放一次登录奖励
	for i := 0; i < 2; i++ {
		if _, err := s.Login("bob@test.local", "secret-password"); err != nil {
			t.Fatalf("login: %v", err)
		}
	}

	var u model.User
	if err := db.First(&u, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if u.Points != 10 {
		t.Errorf("points = %d, want 10", u.Points)
	}
	if u.Streak != 1 {
		t.Errorf("streak = %d, want 1", u.Streak)
	}
}
