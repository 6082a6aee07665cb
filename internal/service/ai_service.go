package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/util"
	"net/http"
	"strings"
	"time"
)

// GeneratedQuestion AI 协作方返回的单题
type GeneratedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Hint          string   `json:"hint"`
	BloomLevel    string   `json:"bloomLevel"`
	Topic         string   `json:"topic"`
}

type RecommendedResource struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Duration int    `json:"duration"`
}

type ResourceRecommendation struct {
	Recommendations []RecommendedResource `json:"recommendations"`
	Content         string                `json:"content"`
}

type OutlineTopic struct {
	Title string `json:"title"`
}

type OutlineModule struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Topics      []OutlineTopic `json:"topics"`
}

type PathOutline struct {
	Modules []OutlineModule `json:"modules"`
}

// ContentGenerator AI 内容协作方的边界接口。
// 实现方被视为高延迟且可能失败；失败（超时/格式错误）与空结果需区分上报。
type ContentGenerator interface {
	GenerateAssessmentQuestions(ctx context.Context, field, level string, count int) ([]GeneratedQuestion, error)
	GenerateResourceRecommendations(ctx context.Context, field, level string, topics []string) (*ResourceRecommendation, error)
	GeneratePathOutline(ctx context.Context, field, level string) (*PathOutline, error)
}

// AIService 通过 OpenAI 兼容接口实现 ContentGenerator
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type aiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []aiChatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message aiChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *AIService) complete(ctx context.Context, system, prompt string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: s.config.Model,
		Messages: []aiChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("AI returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}

// stripCodeFence 去掉模型偶尔包裹的 ```json 代码块
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

const questionSystemPrompt = "你是一个教育测评出题引擎。只输出严格合法的 JSON，不要输出任何其他文字。"

func (s *AIService) GenerateAssessmentQuestions(ctx context.Context, field, level string, count int) ([]GeneratedQuestion, error) {
	prompt := fmt.Sprintf(
		`为领域 %q、水平 %q 的学生生成 %d 道单选题。输出 JSON 数组，每个元素形如：
{"question":"...","options":["A","B","C","D"],"correctAnswer":"...","explanation":"...","hint":"...","bloomLevel":"remember|understand|apply|analyze|evaluate|create","topic":"..."}
correctAnswer 必须与 options 中某一项完全一致。`, field, level, count)

	raw, err := s.complete(ctx, questionSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGenerationFailed, err)
	}

	var questions []GeneratedQuestion
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &questions); err != nil {
		return nil, fmt.Errorf("%w: malformed question payload: %v", util.ErrGenerationFailed, err)
	}

	return questions, nil
}

func (s *AIService) GenerateResourceRecommendations(ctx context.Context, field, level string, topics []string) (*ResourceRecommendation, error) {
	prompt := fmt.Sprintf(
		`为领域 %q、水平 %q 的学生推荐学习资源，主题：%s。输出 JSON 对象：
{"recommendations":[{"type":"video|article|doc|exercise","title":"...","url":"...","duration":10}],"content":"主题讲解正文（markdown）"}`,
		field, level, strings.Join(topics, "、"))

	raw, err := s.complete(ctx, questionSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGenerationFailed, err)
	}

	var rec ResourceRecommendation
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &rec); err != nil {
		return nil, fmt.Errorf("%w: malformed recommendation payload: %v", util.ErrGenerationFailed, err)
	}

	return &rec, nil
}

func (s *AIService) GeneratePathOutline(ctx context.Context, field, level string) (*PathOutline, error) {
	prompt := fmt.Sprintf(
		`为领域 %q、水平 %q 的学生设计学习路径大纲，4 到 6 个模块，每个模块 2 到 4 个主题。输出 JSON 对象：
{"modules":[{"title":"...","description":"...","topics":[{"title":"..."}]}]}`, field, level)

	raw, err := s.complete(ctx, questionSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGenerationFailed, err)
	}

	var outline PathOutline
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &outline); err != nil {
		return nil, fmt.Errorf("%w: malformed outline payload: %v", util.ErrGenerationFailed, err)
	}

	return &outline, nil
}
