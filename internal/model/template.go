package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Navigation policies for a test interface.
const (
	NavigationFreeRoam      = "free-roam"
	NavigationSectionalLock = "sectional-lock"
)

// TestTemplate is the authorable test configuration. Templates are never
// served to students directly: publishing produces an InterfaceSnapshot and
// attempts bind to the snapshot, so later template edits cannot change the
// rules of an exam already in flight.
type TestTemplate struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description,omitempty"`
	Version     int    `json:"version" gorm:"not null;default:1"`

	Sections []TemplateSection `json:"sections,omitempty" gorm:"foreignKey:TestTemplateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	TotalTimeLimitSec int    `json:"total_time_limit_sec" gorm:"not null"`
	Navigation        string `json:"navigation" gorm:"not null;default:'free-roam'"`
	AllowPause        bool   `json:"allow_pause"`
	AllowReattempt    bool   `json:"allow_reattempt"` // default single-attempt

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type TemplateSection struct {
	ID             uint   `gorm:"primarykey" json:"id"`
	TestTemplateID uint   `json:"test_template_id" gorm:"not null;index"`
	Name           string `json:"name" gorm:"not null"`
	OrderInTest    int    `json:"order_in_test" gorm:"not null"`

	QuestionIDs  datatypes.JSONSlice[string] `json:"question_ids" gorm:"type:jsonb"`
	TimeLimitSec *int                        `json:"time_limit_sec,omitempty"` // nil: governed by the total limit only

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// SectionDef is a section inside a frozen snapshot definition.
type SectionDef struct {
	Name         string   `json:"name"`
	QuestionIDs  []string `json:"question_ids"`
	TimeLimitSec *int     `json:"time_limit_sec,omitempty"`
}

// SnapshotDefinition is the full frozen configuration an attempt runs
// against. Stored as one JSON document so it survives template edits intact.
type SnapshotDefinition struct {
	Title             string       `json:"title"`
	Sections          []SectionDef `json:"sections"`
	TotalTimeLimitSec int          `json:"total_time_limit_sec"`
	Navigation        string       `json:"navigation"`
	AllowPause        bool         `json:"allow_pause"`
	AllowReattempt    bool         `json:"allow_reattempt"`
}

// QuestionCount returns the number of questions across all sections.
func (d SnapshotDefinition) QuestionCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.QuestionIDs)
	}
	return n
}

// SectionOf returns the index of the section containing questionID, or -1.
func (d SnapshotDefinition) SectionOf(questionID string) int {
	for i, s := range d.Sections {
		for _, qid := range s.QuestionIDs {
			if qid == questionID {
				return i
			}
		}
	}
	return -1
}

// InterfaceSnapshot is an immutable published version of a template.
type InterfaceSnapshot struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	SnapshotID string `json:"snapshot_id" gorm:"not null;uniqueIndex"`
	TemplateID uint   `json:"template_id" gorm:"not null;index"`
	Version    int    `json:"version" gorm:"not null"`

	Definition datatypes.JSONType[SnapshotDefinition] `json:"definition" gorm:"type:jsonb;not null"`

	CreatedAt time.Time `json:"created_at"`
}
