package service

import (
	"context"
	"encoding/json"
	"fmt"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"
	"learnsphere_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultQuestionCount = 5
const maxQuestionCount = 20

// AssessmentService 生成、下发与评分题目集，提交前绝不泄露答案。
// 状态机：created（隐藏答案）-> submitted（评分并揭示已作答题目的答案）。
type AssessmentService struct {
	DB           *gorm.DB
	Repo         *repository.AssessmentRepository
	Generator    ContentGenerator
	Gamification *GamificationService
	Locks        *StudentLocks
}

func NewAssessmentService(
	db *gorm.DB,
	repo *repository.AssessmentRepository,
	generator ContentGenerator,
	gamification *GamificationService,
	locks *StudentLocks,
) *AssessmentService {
	return &AssessmentService{
		DB:           db,
		Repo:         repo,
		Generator:    generator,
		Gamification: gamification,
		Locks:        locks,
	}
}

type GenerateAssessmentRequest struct {
	Field string               `json:"field" binding:"required"`
	Level string               `json:"level" binding:"required"`
	Count int                  `json:"count"`
	Type  model.AssessmentType `json:"type" binding:"required"`
	Topic string               `json:"topic"`
}

// QuestionView 提交前对客户端可见的题目投影（无答案、无解析）
type QuestionView struct {
	Position   int              `json:"position"`
	Content    string           `json:"content"`
	Options    json.RawMessage  `json:"options"`
	Hint       string           `json:"hint,omitempty"`
	BloomLevel model.BloomLevel `json:"bloomLevel"`
	Topic      string           `json:"topic"`
}

type AssessmentView struct {
	ID             uint                 `json:"id"`
	Type           model.AssessmentType `json:"type"`
	Field          string               `json:"field"`
	Level          string               `json:"level"`
	Topic          string               `json:"topic,omitempty"`
	TotalQuestions int                  `json:"totalQuestions"`
	Fallback       bool                 `json:"fallback"`
	Questions      []QuestionView       `json:"questions"`
}

// Generate 调用 AI 协作方出题并落库。生成阶段不持学生锁（高延迟操作）；
// 协作方失败时，诊断（initial）测验降级到确定性题库，其余类型上报 GenerationFailed。
func (s *AssessmentService) Generate(ctx context.Context, userID uint, req GenerateAssessmentRequest) (*AssessmentView, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown assessment type %q", util.ErrInvalidInput, req.Type)
	}
	count := req.Count
	if count <= 0 {
		count = defaultQuestionCount
	}
	if count > maxQuestionCount {
		count = maxQuestionCount
	}

	// 生成不随请求取消而中止：在途结果仍会落库
	generated, err := s.Generator.GenerateAssessmentQuestions(context.WithoutCancel(ctx), req.Field, req.Level, count)
	monitoring.ObserveGeneration("questions", err)
	if err == nil && len(generated) == 0 {
		err = fmt.Errorf("%w: collaborator returned zero questions", util.ErrGenerationFailed)
	}

	fallback := false
	if err != nil {
		if req.Type != model.AssessmentInitial {
			return nil, err
		}
		logger.Log.Warn("question generation failed, serving fallback bank",
			zap.Uint("userId", userID),
			zap.String("field", req.Field),
			zap.Error(err))
		generated = fallbackQuestions(req.Field, count)
		fallback = true
	}

	assessment := &model.Assessment{
		UserID:         userID,
		Type:           req.Type,
		Field:          req.Field,
		Level:          req.Level,
		Topic:          req.Topic,
		TotalQuestions: len(generated),
		Fallback:       fallback,
	}
	for i, q := range generated {
		options, merr := json.Marshal(q.Options)
		if merr != nil {
			return nil, merr
		}
		assessment.Questions = append(assessment.Questions, model.AssessmentQuestion{
			Position:      i,
			Content:       q.Question,
			Options:       options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			Hint:          q.Hint,
			BloomLevel:    model.BloomLevel(q.BloomLevel),
			Topic:         q.Topic,
		})
	}

	if err := s.Repo.Create(assessment); err != nil {
		return nil, err
	}

	return sanitize(assessment), nil
}

// sanitize 剥离答案与解析后的客户端视图
func sanitize(a *model.Assessment) *AssessmentView {
	view := &AssessmentView{
		ID:             a.ID,
		Type:           a.Type,
		Field:          a.Field,
		Level:          a.Level,
		Topic:          a.Topic,
		TotalQuestions: a.TotalQuestions,
		Fallback:       a.Fallback,
	}
	for _, q := range a.Questions {
		view.Questions = append(view.Questions, QuestionView{
			Position:   q.Position,
			Content:    q.Content,
			Options:    q.Options,
			Hint:       q.Hint,
			BloomLevel: q.BloomLevel,
			Topic:      q.Topic,
		})
	}
	return view
}

type SubmittedAnswer struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
	TimeTaken     int    `json:"timeTaken"`
}

type SubmitAssessmentRequest struct {
	Answers []SubmittedAnswer `json:"answers" binding:"required"`
}

// AnswerResult 仅对已提交的题目揭示答案与解析
type AnswerResult struct {
	QuestionIndex int    `json:"questionIndex"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
}

type SubmitResult struct {
	AssessmentID   uint           `json:"assessmentId"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Percentage     float64        `json:"percentage"`
	Passed         bool           `json:"passed"`
	WeakAreas      []string       `json:"weakAreas"`
	BloomStats     map[string]int `json:"bloomStats"`
	Answers        []AnswerResult `json:"answers"`
}

// Submit 一次性评分。仅属主可提交（Forbidden）；二次提交按已完成拒绝（Conflict）；
// 越界题号忽略不致命；判分为精确字符串相等，不做任何归一化。
func (s *AssessmentService) Submit(ctx context.Context, userID, assessmentID uint, req SubmitAssessmentRequest) (*SubmitResult, error) {
	unlock := s.Locks.Lock(userID)
	defer unlock()

	var result *SubmitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assessment model.Assessment
		if err := tx.Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("assessment_questions.position ASC")
		}).First(&assessment, assessmentID).Error; err != nil {
			return util.ErrNotFound
		}
		if assessment.UserID != userID {
			return util.ErrForbidden
		}
		if assessment.Submitted() {
			return util.ErrAssessmentCompleted
		}

		// 先落答案再评分：重复题号以最后一次为准，每题至多计 1 分
		answered := make(map[int]bool)
		for _, ans := range req.Answers {
			if ans.QuestionIndex < 0 || ans.QuestionIndex >= len(assessment.Questions) {
				continue
			}
			q := &assessment.Questions[ans.QuestionIndex]
			answer := ans.Answer
			q.UserAnswer = &answer
			q.IsCorrect = answer == q.CorrectAnswer
			q.TimeTaken = ans.TimeTaken
			answered[ans.QuestionIndex] = true
		}

		score := 0
		var answerResults []AnswerResult
		for i := range assessment.Questions {
			if !answered[i] {
				continue
			}
			q := &assessment.Questions[i]
			if q.IsCorrect {
				score++
			}
			answerResults = append(answerResults, AnswerResult{
				QuestionIndex: i,
				Correct:       q.IsCorrect,
				CorrectAnswer: q.CorrectAnswer,
				Explanation:   q.Explanation,
			})
			if err := tx.Save(q).Error; err != nil {
				return err
			}
		}

		total := assessment.TotalQuestions
		percentage := 0.0
		if total > 0 {
			percentage = float64(score) / float64(total) * 100
		}

		// 薄弱主题：所有未答对题目的主题（去重，保持题序）
		weakAreas := make([]string, 0)
		seen := make(map[string]bool)
		for _, q := range assessment.Questions {
			if !q.IsCorrect && q.Topic != "" && !seen[q.Topic] {
				seen[q.Topic] = true
				weakAreas = append(weakAreas, q.Topic)
			}
		}

		// 认知层级统计：按已作答题目的 Bloom 层级计数
		bloomStats := make(map[string]int)
		for _, q := range assessment.Questions {
			if q.UserAnswer != nil {
				bloomStats[string(q.BloomLevel)]++
			}
		}

		weakJSON, err := json.Marshal(weakAreas)
		if err != nil {
			return err
		}
		bloomJSON, err := json.Marshal(bloomStats)
		if err != nil {
			return err
		}

		now := time.Now()
		assessment.Score = score
		assessment.Percentage = percentage
		assessment.WeakAreas = weakJSON
		assessment.BloomStats = bloomJSON
		assessment.CompletedAt = &now
		if err := tx.Save(&assessment).Error; err != nil {
			return err
		}

		// 档案统计：测验次数与平均分
		var user model.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		user.QuizzesTaken++
		user.AvgScore = (user.AvgScore*float64(user.QuizzesTaken-1) + percentage) / float64(user.QuizzesTaken)
		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		passed := percentage >= s.Gamification.PassMark()
		if passed {
			if err := s.Gamification.Award(tx, userID, model.ActivityQuizPass, string(assessment.Type)); err != nil {
				return err
			}
		}

		result = &SubmitResult{
			AssessmentID:   assessment.ID,
			Score:          score,
			TotalQuestions: total,
			Percentage:     percentage,
			Passed:         passed,
			WeakAreas:      weakAreas,
			BloomStats:     bloomStats,
			Answers:        answerResults,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RevealedQuestion 提交后对属主可见的完整题目
type RevealedQuestion struct {
	Position      int              `json:"position"`
	Content       string           `json:"content"`
	Options       json.RawMessage  `json:"options"`
	CorrectAnswer string           `json:"correctAnswer"`
	Explanation   string           `json:"explanation"`
	Hint          string           `json:"hint,omitempty"`
	BloomLevel    model.BloomLevel `json:"bloomLevel"`
	Topic         string           `json:"topic"`
	UserAnswer    *string          `json:"userAnswer"`
	IsCorrect     bool             `json:"isCorrect"`
	TimeTaken     int              `json:"timeTaken"`
}

type RevealedAssessment struct {
	model.Assessment
	Revealed []RevealedQuestion `json:"questions"`
}

// Get 提交前返回净化视图，提交后返回含答案的完整记录
func (s *AssessmentService) Get(userID, assessmentID uint) (interface{}, error) {
	assessment, err := s.Repo.FindByID(assessmentID)
	if err != nil {
		return nil, util.ErrNotFound
	}
	if assessment.UserID != userID {
		return nil, util.ErrForbidden
	}
	if !assessment.Submitted() {
		return sanitize(assessment), nil
	}

	revealed := &RevealedAssessment{Assessment: *assessment}
	for _, q := range assessment.Questions {
		revealed.Revealed = append(revealed.Revealed, RevealedQuestion{
			Position:      q.Position,
			Content:       q.Content,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			Hint:          q.Hint,
			BloomLevel:    q.BloomLevel,
			Topic:         q.Topic,
			UserAnswer:    q.UserAnswer,
			IsCorrect:     q.IsCorrect,
			TimeTaken:     q.TimeTaken,
		})
	}
	revealed.Questions = nil
	return revealed, nil
}

func (s *AssessmentService) List(userID uint, page, limit int) ([]model.Assessment, int64, error) {
	return s.Repo.ListByUser(userID, page, limit)
}
