package model

import (
	"time"

	"gorm.io/datatypes"
)

type SectionScore struct {
	Index        int     `json:"index"`
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	MaxScore     float64 `json:"max_score"`
	Correct      int     `json:"correct"`
	Incorrect    int     `json:"incorrect"`
	Partial      int     `json:"partial"`
	Unattempted  int     `json:"unattempted"`
	TimeSpentSec int64   `json:"time_spent_sec"`
}

type SubjectScore struct {
	Subject     string  `json:"subject"`
	Score       float64 `json:"score"`
	MaxScore    float64 `json:"max_score"`
	Correct     int     `json:"correct"`
	Incorrect   int     `json:"incorrect"`
	Partial     int     `json:"partial"`
	Unattempted int     `json:"unattempted"`
}

// ScoreBreakdown is the derived scoring result of a submitted attempt.
// Immutable once computed: re-scoring appends a new row with a higher
// Revision, prior rows are kept for audit.
type ScoreBreakdown struct {
	ID            uint `gorm:"primarykey" json:"id"`
	TestAttemptID uint `json:"test_attempt_id" gorm:"not null;index;uniqueIndex:idx_attempt_revision"`
	Revision      int  `json:"revision" gorm:"not null;uniqueIndex:idx_attempt_revision"`

	TotalScore float64 `json:"total_score"`
	MaxScore   float64 `json:"max_score"`

	CorrectCount     int `json:"correct_count"`
	IncorrectCount   int `json:"incorrect_count"`
	PartialCount     int `json:"partial_count"`
	UnattemptedCount int `json:"unattempted_count"`

	Sections datatypes.JSONSlice[SectionScore] `json:"sections" gorm:"type:jsonb"`
	Subjects datatypes.JSONSlice[SubjectScore] `json:"subjects" gorm:"type:jsonb"`

	ComputedAt time.Time `json:"computed_at" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}
