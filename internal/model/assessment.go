package model

import (
	"encoding/json"
	"time"
)

type AssessmentType string

const (
	AssessmentInitial       AssessmentType = "initial"
	AssessmentPractice      AssessmentType = "practice"
	AssessmentFormal        AssessmentType = "formal"
	AssessmentSpeed         AssessmentType = "speed"
	AssessmentCertification AssessmentType = "certification"
)

func (t AssessmentType) Valid() bool {
	switch t {
	case AssessmentInitial, AssessmentPractice, AssessmentFormal, AssessmentSpeed, AssessmentCertification:
		return true
	}
	return false
}

type BloomLevel string

const (
	BloomRemember   BloomLevel = "remember"
	BloomUnderstand BloomLevel = "understand"
	BloomApply      BloomLevel = "apply"
	BloomAnalyze    BloomLevel = "analyze"
	BloomEvaluate   BloomLevel = "evaluate"
	BloomCreate     BloomLevel = "create"
)

// Assessment 一次测验：生成时落库全量题目，提交后一次性评分
// 状态机只有两步：created（隐藏答案）-> submitted（CompletedAt 非空）
// swagger:model Assessment
type Assessment struct {
	BaseModel
	UserID         uint                 `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Type           AssessmentType       `gorm:"size:20;not null" json:"type"`
	Field          string               `gorm:"size:100" json:"field"`
	Level          string               `gorm:"size:50" json:"level"`
	Topic          string               `gorm:"size:100" json:"topic"`
	Score          int                  `gorm:"default:0" json:"score"`
	TotalQuestions int                  `gorm:"default:0" json:"totalQuestions"`
	Percentage     float64              `gorm:"default:0" json:"percentage"`
	WeakAreas      json.RawMessage      `gorm:"type:json" json:"weakAreas"`
	BloomStats     json.RawMessage      `gorm:"type:json" json:"bloomStats"`
	Fallback       bool                 `gorm:"default:false" json:"fallback"` // 题目来自降级题库
	CompletedAt    *time.Time           `json:"completedAt"`
	Questions      []AssessmentQuestion `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

func (a *Assessment) Submitted() bool {
	return a.CompletedAt != nil
}

// AssessmentQuestion 单题；CorrectAnswer 在提交前绝不返回给客户端
type AssessmentQuestion struct {
	BaseModel
	AssessmentID  uint            `gorm:"index;type:bigint unsigned;not null" json:"assessmentId"`
	Position      int             `gorm:"not null" json:"position"`
	Content       string          `gorm:"type:text;not null" json:"content"`
	Options       json.RawMessage `gorm:"type:json" json:"options"`
	CorrectAnswer string          `gorm:"size:500;not null" json:"-"`
	Explanation   string          `gorm:"type:text" json:"explanation,omitempty"`
	Hint          string          `gorm:"size:500" json:"hint,omitempty"`
	BloomLevel    BloomLevel      `gorm:"size:20" json:"bloomLevel"`
	Topic         string          `gorm:"size:100" json:"topic"`
	UserAnswer    *string         `gorm:"size:500" json:"userAnswer"`
	IsCorrect     bool            `gorm:"default:false" json:"isCorrect"`
	TimeTaken     int             `gorm:"default:0" json:"timeTaken"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}
