package models

import (
	"encoding/json"
	"time"
)

// ErrorQuestion is one row of the error-question notebook: the recognized
// formula plus the AI-generated analysis and exercise variants.
type ErrorQuestion struct {
	ID        int64           `json:"id"`
	OCRLatex  string          `json:"ocr_latex"`
	Analysis  json.RawMessage `json:"analysis"`
	Variants  json.RawMessage `json:"variants"`
	CreatedAt time.Time       `json:"created_at"`
}

// KnowledgeCard summarizes the knowledge point behind a recognized problem.
type KnowledgeCard struct {
	Point   string `json:"point"`
	Concept string `json:"concept"`
	Tip     string `json:"tip"`
}

// ExerciseVariant is one generated practice problem with its solution.
type ExerciseVariant struct {
	Type     string `json:"type"`
	Question string `json:"q"`
	Answer   string `json:"a"`
}

// ExerciseSet is the full model output for one analyzed formula.
type ExerciseSet struct {
	Card      KnowledgeCard     `json:"card"`
	Exercises []ExerciseVariant `json:"exercises"`
}
