package dto

import "time"

type StartAttemptRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

// RecordAnswerRequest carries one answer event. Selected empty or absent
// clears the answer back to unattempted; that is a legal state, not an error.
type RecordAnswerRequest struct {
	Selected        []string `json:"selected"`
	MarkedForReview bool     `json:"marked_for_review"`
	TimeSpentSec    int64    `json:"time_spent_sec" binding:"min=0"`
}

type NavigateRequest struct {
	TargetSection *int `json:"target_section" binding:"required,min=0"`
}

type SubmitRequest struct {
	Reason string `json:"reason" binding:"required,oneof=manual section-timeout total-timeout"`
}

type AnswerRecordResponse struct {
	QuestionID      string    `json:"question_id"`
	Selected        []string  `json:"selected,omitempty"`
	MarkedForReview bool      `json:"marked_for_review"`
	Visits          int       `json:"visits"`
	TimeSpentSec    int64     `json:"time_spent_sec"`
	LastModifiedAt  time.Time `json:"last_modified_at"`
}

type SectionClockResponse struct {
	ElapsedSec int64 `json:"elapsed_sec"`
	Locked     bool  `json:"locked"`
}

type AttemptResponse struct {
	AttemptID  string `json:"attempt_id"`
	StudentID  string `json:"student_id"`
	SnapshotID string `json:"snapshot_id"`

	State        string     `json:"state"`
	StartedAt    time.Time  `json:"started_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	SubmitReason *string    `json:"submit_reason,omitempty"`

	CurrentSection int                    `json:"current_section"`
	SectionClocks  []SectionClockResponse `json:"section_clocks"`

	Answers []AnswerRecordResponse `json:"answers,omitempty"`
}

type TimeRemainingResponse struct {
	State        string `json:"state"`
	OverallSec   int64  `json:"overall_sec"`
	SectionIndex int    `json:"section_index"`
	SectionSec   *int64 `json:"section_sec,omitempty"`
}

type SectionScoreResponse struct {
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

type SubjectScoreResponse struct {
	Subject     string  `json:"subject"`
	Score       float64 `json:"score"`
	MaxScore    float64 `json:"max_score"`
	Correct     int     `json:"correct"`
	Incorrect   int     `json:"incorrect"`
	Partial     int     `json:"partial"`
	Unattempted int     `json:"unattempted"`
}

type ScoreBreakdownResponse struct {
	Revision int `json:"revision"`

	TotalScore float64 `json:"total_score"`
	MaxScore   float64 `json:"max_score"`

	CorrectCount     int `json:"correct_count"`
	IncorrectCount   int `json:"incorrect_count"`
	PartialCount     int `json:"partial_count"`
	UnattemptedCount int `json:"unattempted_count"`

	Sections []SectionScoreResponse `json:"sections"`
	Subjects []SubjectScoreResponse `json:"subjects"`

	ComputedAt time.Time `json:"computed_at"`
}

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
