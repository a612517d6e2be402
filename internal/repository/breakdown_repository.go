package repository

import (
	"github.com/prepmint/examengine/internal/model"
	"gorm.io/gorm"
)

// BreakdownRepository appends score breakdowns. Revisions are never
// overwritten; a re-score inserts the next revision and history stays.
type BreakdownRepository interface {
	Create(breakdown *model.ScoreBreakdown) error
	Latest(testAttemptID uint) (*model.ScoreBreakdown, error)
	FindAllRevisions(testAttemptID uint) ([]model.ScoreBreakdown, error)
	LatestForAttempts(testAttemptIDs []uint) ([]model.ScoreBreakdown, error)
}

type breakdownRepository struct {
	db *gorm.DB
}

func NewBreakdownRepository(db *gorm.DB) BreakdownRepository {
	return &breakdownRepository{db: db}
}

func (r *breakdownRepository) Create(breakdown *model.ScoreBreakdown) error {
	return r.db.Create(breakdown).Error
}

func (r *breakdownRepository) Latest(testAttemptID uint) (*model.ScoreBreakdown, error) {
	var breakdown model.ScoreBreakdown
	err := r.db.Where("test_attempt_id = ?", testAttemptID).
		Order("revision DESC").First(&breakdown).Error
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}

func (r *breakdownRepository) FindAllRevisions(testAttemptID uint) ([]model.ScoreBreakdown, error) {
	var breakdowns []model.ScoreBreakdown
	err := r.db.Where("test_attempt_id = ?", testAttemptID).
		Order("revision ASC").Find(&breakdowns).Error
	return breakdowns, err
}

func (r *breakdownRepository) LatestForAttempts(testAttemptIDs []uint) ([]model.ScoreBreakdown, error) {
	if len(testAttemptIDs) == 0 {
		return nil, nil
	}
	var breakdowns []model.ScoreBreakdown
	err := r.db.
		Where("test_attempt_id IN ?", testAttemptIDs).
		Where(`revision = (SELECT MAX(b2.revision) FROM score_breakdowns b2
			WHERE b2.test_attempt_id = score_breakdowns.test_attempt_id)`).
		Find(&breakdowns).Error
	return breakdowns, err
}
