package exercise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lbj0223/AI/internal/models"
)

// Generator is the slice of the AI service the analyzer needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const analysisPromptTemplate = `你现在是"题镜 AI"专家。识别出的题目公式为：%s
请严格按 JSON 格式输出，不要附加任何说明文字：
{
  "card": { "point": "考点名称", "concept": "一句话概念复习", "tip": "解题关键技巧" },
  "exercises": [
    { "type": "平行变式", "q": "题目内容", "a": "解析内容" },
    { "type": "进阶变式", "q": "题目内容", "a": "解析内容" },
    { "type": "应用变式", "q": "题目内容", "a": "解析内容" }
  ]
}`

// Analyzer asks the model for a knowledge card and exercise variants.
type Analyzer struct {
	gen Generator
}

func NewAnalyzer(gen Generator) *Analyzer {
	return &Analyzer{gen: gen}
}

// Analyze generates and validates the exercise set for a recognized formula.
func (a *Analyzer) Analyze(ctx context.Context, latex string) (*models.ExerciseSet, error) {
	latex = strings.TrimSpace(latex)
	if latex == "" {
		return nil, errors.New("latex is required")
	}

	raw, err := a.gen.Generate(ctx, fmt.Sprintf(analysisPromptTemplate, latex))
	if err != nil {
		return nil, err
	}

	var set models.ExerciseSet
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &set); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	if set.Card.Point == "" {
		return nil, errors.New("model output missing knowledge point")
	}
	if len(set.Exercises) == 0 {
		return nil, errors.New("model output missing exercises")
	}
	for i, ex := range set.Exercises {
		if ex.Question == "" || ex.Answer == "" {
			return nil, fmt.Errorf("exercise %d missing question or answer", i)
		}
	}
	return &set, nil
}

// stripCodeFence tolerates models that wrap JSON in a markdown code block.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
