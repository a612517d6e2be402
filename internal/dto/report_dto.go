package dto

import "time"

// Accuracy is a correct/attempted rollup over one slice of the attempt
// (a subject, a topic or a difficulty tier).
type Accuracy struct {
	Total     int     `json:"total"`
	Attempted int     `json:"attempted"`
	Correct   int     `json:"correct"`
	Accuracy  float64 `json:"accuracy"` // correct / attempted, 0 when nothing attempted
}

type QuestionTime struct {
	QuestionID      string `json:"question_id"`
	TimeSpentSec    int64  `json:"time_spent_sec"`
	Visits          int    `json:"visits"`
	MarkedForReview bool   `json:"marked_for_review"`
}

// AttemptReport is the per-attempt analytics view derived from the latest
// score breakdown plus the raw answer records.
type AttemptReport struct {
	AttemptID  string `json:"attempt_id"`
	StudentID  string `json:"student_id"`
	SnapshotID string `json:"snapshot_id"`
	Revision   int    `json:"revision"`

	TotalScore float64 `json:"total_score"`
	MaxScore   float64 `json:"max_score"`

	SubjectAccuracy    map[string]Accuracy `json:"subject_accuracy"`
	TopicAccuracy      map[string]Accuracy `json:"topic_accuracy"`
	DifficultyAccuracy map[string]Accuracy `json:"difficulty_accuracy"`

	Sections        []SectionScoreResponse `json:"sections"`
	TimePerQuestion []QuestionTime         `json:"time_per_question"`
	ReviewFlagged   int                    `json:"review_flagged"`

	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`

	ComputedAt time.Time `json:"computed_at"`
}

type CohortSubject struct {
	Subject       string  `json:"subject"`
	MeanScore     float64 `json:"mean_score"`
	MeanMaxScore  float64 `json:"mean_max_score"`
	MeanScoreRate float64 `json:"mean_score_rate"` // mean of score/max per attempt
}

// CohortReport aggregates every attempt scored on one snapshot as of
// SnapshotAt. Percentile is a property of that moment and is never
// retroactively recomputed for a report already issued.
type CohortReport struct {
	SnapshotID   string    `json:"snapshot_id"`
	SnapshotAt   time.Time `json:"snapshot_at"`
	AttemptCount int       `json:"attempt_count"`

	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`

	AttemptID  *string  `json:"attempt_id,omitempty"`
	Percentile *float64 `json:"percentile,omitempty"`

	Subjects []CohortSubject `json:"subjects"`
}
