package repository

import (
	"github.com/prepmint/examengine/internal/model"
	"gorm.io/gorm"
)

type QuestionRepository interface {
	Create(question *model.Question) error
	FindByQuestionID(questionID string) (*model.Question, error)
	FindByQuestionIDs(questionIDs []string) ([]model.Question, error)
	FindAll() ([]model.Question, error)
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(question *model.Question) error {
	return r.db.Create(question).Error
}

func (r *questionRepository) FindByQuestionID(questionID string) (*model.Question, error) {
	var question model.Question
	if err := r.db.Where("question_id = ?", questionID).First(&question).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) FindByQuestionIDs(questionIDs []string) ([]model.Question, error) {
	var questions []model.Question
	if err := r.db.Where("question_id IN ?", questionIDs).Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) FindAll() ([]model.Question, error) {
	var questions []model.Question
	if err := r.db.Order("created_at desc").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}
