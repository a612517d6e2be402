package repository

import (
	"github.com/prepmint/examengine/internal/model"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	Create(attempt *model.TestAttempt) error
	// UpdateState persists lifecycle fields only, never the answer rows:
	// answers go through AnswerRepository so a failed answer write cannot
	// clobber attempt state.
	UpdateState(attempt *model.TestAttempt) error
	FindByAttemptID(attemptID string) (*model.TestAttempt, error)
	FindByAttemptIDWithAnswers(attemptID string) (*model.TestAttempt, error)
	FindByStudentAndSnapshot(studentID, snapshotID string) ([]model.TestAttempt, error)
	FindAllBySnapshot(snapshotID string, states []string) ([]model.TestAttempt, error)
	FindOpen() ([]model.TestAttempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.TestAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) UpdateState(attempt *model.TestAttempt) error {
	return r.db.Model(&model.TestAttempt{}).
		Where("id = ?", attempt.ID).
		Select("state", "submitted_at", "submit_reason", "current_section",
			"section_clocks", "entered_section_at", "paused_at").
		Updates(attempt).Error
}

func (r *attemptRepository) FindByAttemptID(attemptID string) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	if err := r.db.Where("attempt_id = ?", attemptID).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByAttemptIDWithAnswers(attemptID string) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.Preload("Answers").Where("attempt_id = ?", attemptID).First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByStudentAndSnapshot(studentID, snapshotID string) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.db.Where("student_id = ? AND snapshot_id = ?", studentID, snapshotID).
		Order("started_at DESC").Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) FindAllBySnapshot(snapshotID string, states []string) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	query := r.db.Where("snapshot_id = ?", snapshotID)
	if len(states) > 0 {
		query = query.Where("state IN ?", states)
	}
	err := query.Order("started_at ASC").Find(&attempts).Error
	return attempts, err
}

// FindOpen lists attempts the deadline sweeper still has to watch.
func (r *attemptRepository) FindOpen() ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.db.Where("state IN ?", []string{model.AttemptInProgress, model.AttemptPaused}).
		Find(&attempts).Error
	return attempts, err
}
