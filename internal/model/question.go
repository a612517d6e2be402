package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Difficulty tiers for questions.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Partial-credit policies for multi-correct questions. The policy is a
// question attribute; the scoring engine never hardcodes one.
const (
	PartialAllOrNothing = "all-or-nothing"
	PartialProportional = "proportional"
)

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is the published, immutable content unit the engine scores
// against. Once a question is referenced by an interface snapshot it must
// never change; corrections go through re-scoring, not edits.
type Question struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	QuestionID string `json:"question_id" gorm:"not null;uniqueIndex"`

	Subject    string `json:"subject" gorm:"not null;index"`
	Topic      string `json:"topic" gorm:"not null;index"`
	Difficulty string `json:"difficulty" gorm:"not null"` // easy, medium, hard
	Prompt     string `json:"prompt" gorm:"type:text;not null"`

	Options     datatypes.JSONSlice[Option] `json:"options" gorm:"type:jsonb"`
	CorrectKeys datatypes.JSONSlice[string] `json:"correct_keys" gorm:"type:jsonb"`

	MarksCorrect     float64 `json:"marks_correct" gorm:"not null"`
	MarksIncorrect   float64 `json:"marks_incorrect"`   // negative marking, usually <= 0
	MarksUnattempted float64 `json:"marks_unattempted"` // usually 0, positive for free-mark schemes
	PartialCredit    string  `json:"partial_credit" gorm:"default:'all-or-nothing'"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// MultiCorrect reports whether the question has more than one correct key.
func (q *Question) MultiCorrect() bool {
	return len(q.CorrectKeys) > 1
}
