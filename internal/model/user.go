package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// User 同时承载账号信息与学生的游戏化档案
// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;unique;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"size:20;default:'student'" json:"role"`
	Avatar   string   `gorm:"size:255" json:"avatar"`
	Disabled bool     `gorm:"default:false" json:"disabled"`

	// 游戏化档案：积分/连续天数/等级均由事件驱动，禁止客户端直接写入
	Points int `gorm:"default:0" json:"points"`
	Streak int `gorm:"default:0" json:"streak"`
	Level  int `gorm:"default:1" json:"level"`

	// 学习统计
	HoursStudied     float64 `gorm:"default:0" json:"hoursStudied"`
	CoursesCompleted int     `gorm:"default:0" json:"coursesCompleted"`
	QuizzesTaken     int     `gorm:"default:0" json:"quizzesTaken"`
	AvgScore         float64 `gorm:"default:0" json:"avgScore"`

	// 最近一次有效学习活动日（连续天数的判定依据）
	LastActiveDate *time.Time `json:"lastActiveDate"`
	LastLogin      time.Time  `json:"lastLogin"`
	LastSeen       time.Time  `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
