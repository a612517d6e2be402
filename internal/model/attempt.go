package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Attempt lifecycle states.
const (
	AttemptInProgress = "in-progress"
	AttemptPaused     = "paused"
	AttemptSubmitted  = "submitted"
	AttemptScored     = "scored"
)

// Submit reasons.
const (
	SubmitManual         = "manual"
	SubmitSectionTimeout = "section-timeout"
	SubmitTotalTimeout   = "total-timeout"
)

// SectionClock is the per-section time accumulator. ElapsedSec only ever
// grows; the running segment of the current section lives in
// EnteredSectionAt on the attempt and is folded in on navigation, pause and
// submit.
type SectionClock struct {
	ElapsedSec int64 `json:"elapsed_sec"`
	Locked     bool  `json:"locked"`
}

// TestAttempt is one student's execution of a snapshot. Mutated exclusively
// by the attempt service, never deleted (retained for analytics and audit).
type TestAttempt struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	AttemptID string `json:"attempt_id" gorm:"not null;uniqueIndex"`

	StudentID  string `json:"student_id" gorm:"not null;index:idx_student_snapshot"`
	SnapshotID string `json:"snapshot_id" gorm:"not null;index:idx_student_snapshot;index"`

	State        string     `json:"state" gorm:"not null;default:'in-progress';index"`
	StartedAt    time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	SubmitReason *string    `json:"submit_reason,omitempty"`

	CurrentSection   int                               `json:"current_section"`
	SectionClocks    datatypes.JSONSlice[SectionClock] `json:"section_clocks" gorm:"type:jsonb"`
	EnteredSectionAt *time.Time                        `json:"entered_section_at,omitempty"` // nil while paused or closed
	PausedAt         *time.Time                        `json:"paused_at,omitempty"`

	Answers []AnswerRecord `json:"answers,omitempty" gorm:"foreignKey:TestAttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Closed reports whether the attempt no longer accepts mutations.
func (a *TestAttempt) Closed() bool {
	return a.State == AttemptSubmitted || a.State == AttemptScored
}

// AnswerRecord tracks one touched question within an attempt. Untouched
// questions have no record and score as unattempted. Selected empty means
// the student cleared the answer: still unattempted, never incorrect.
type AnswerRecord struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	TestAttemptID uint   `json:"test_attempt_id" gorm:"not null;index;uniqueIndex:idx_attempt_question"`
	QuestionID    string `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`

	Selected        datatypes.JSONSlice[string] `json:"selected,omitempty" gorm:"type:jsonb"`
	MarkedForReview bool                        `json:"marked_for_review"`
	Visits          int                         `json:"visits" gorm:"not null;default:0"` // at-least-once on retries
	TimeSpentSec    int64                       `json:"time_spent_sec"`
	LastModifiedAt  time.Time                   `json:"last_modified_at" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attempted reports whether the record carries a live selection.
func (r *AnswerRecord) Attempted() bool {
	return len(r.Selected) > 0
}
