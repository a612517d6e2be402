package repository

import (
	"github.com/prepmint/examengine/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerRepository interface {
	// Upsert writes an answer record keyed (attempt, question). A record
	// with a LastModifiedAt not newer than the stored one is ignored, which
	// makes client retries idempotent.
	Upsert(record *model.AnswerRecord) error
	FindByAttempt(testAttemptID uint) ([]model.AnswerRecord, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Upsert(record *model.AnswerRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "test_attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"selected":          record.Selected,
			"marked_for_review": record.MarkedForReview,
			"visits":            record.Visits,
			"time_spent_sec":    record.TimeSpentSec,
			"last_modified_at":  record.LastModifiedAt,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lt{Column: clause.Column{Table: "answer_records", Name: "last_modified_at"}, Value: record.LastModifiedAt},
		}},
	}).Create(record).Error
}

func (r *answerRepository) FindByAttempt(testAttemptID uint) ([]model.AnswerRecord, error) {
	var records []model.AnswerRecord
	err := r.db.Where("test_attempt_id = ?", testAttemptID).Find(&records).Error
	return records, err
}
