package dto

import "time"

type OptionDTO struct {
	ID   string `json:"id" binding:"required"`
	Text string `json:"text" binding:"required"`
}

type CreateQuestionRequest struct {
	Subject    string `json:"subject" binding:"required"`
	Topic      string `json:"topic" binding:"required"`
	Difficulty string `json:"difficulty" binding:"required,oneof=easy medium hard"`
	Prompt     string `json:"prompt" binding:"required"`

	Options     []OptionDTO `json:"options" binding:"required,min=2,dive"`
	CorrectKeys []string    `json:"correct_keys" binding:"required,min=1"`

	MarksCorrect     float64 `json:"marks_correct" binding:"required"`
	MarksIncorrect   float64 `json:"marks_incorrect"`
	MarksUnattempted float64 `json:"marks_unattempted"`
	PartialCredit    string  `json:"partial_credit" binding:"omitempty,oneof=all-or-nothing proportional"`
}

type SectionRequest struct {
	Name         string   `json:"name" binding:"required"`
	QuestionIDs  []string `json:"question_ids" binding:"required,min=1"`
	TimeLimitSec *int     `json:"time_limit_sec,omitempty"`
}

type CreateTemplateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`

	Sections []SectionRequest `json:"sections" binding:"required,min=1,dive"`

	TotalTimeLimitSec int    `json:"total_time_limit_sec" binding:"required,min=1"`
	Navigation        string `json:"navigation" binding:"required,oneof=free-roam sectional-lock"`
	AllowPause        bool   `json:"allow_pause"`
	AllowReattempt    bool   `json:"allow_reattempt"`
}

type QuestionResponse struct {
	QuestionID string `json:"question_id"`
	Subject    string `json:"subject"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Prompt     string `json:"prompt"`

	Options     []OptionDTO `json:"options"`
	CorrectKeys []string    `json:"correct_keys,omitempty"` // stripped on student-facing payloads

	MarksCorrect     float64 `json:"marks_correct"`
	MarksIncorrect   float64 `json:"marks_incorrect"`
	MarksUnattempted float64 `json:"marks_unattempted"`
	PartialCredit    string  `json:"partial_credit"`

	CreatedAt time.Time `json:"created_at"`
}

type SectionResponse struct {
	Name         string   `json:"name"`
	OrderInTest  int      `json:"order_in_test"`
	QuestionIDs  []string `json:"question_ids"`
	TimeLimitSec *int     `json:"time_limit_sec,omitempty"`
}

type TemplateResponse struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Version     int               `json:"version"`
	Sections    []SectionResponse `json:"sections,omitempty"`

	TotalTimeLimitSec int    `json:"total_time_limit_sec"`
	Navigation        string `json:"navigation"`
	AllowPause        bool   `json:"allow_pause"`
	AllowReattempt    bool   `json:"allow_reattempt"`

	CreatedAt time.Time `json:"created_at"`
}

type SnapshotResponse struct {
	SnapshotID string    `json:"snapshot_id"`
	TemplateID uint      `json:"template_id"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}
