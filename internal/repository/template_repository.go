package repository

import (
	"github.com/prepmint/examengine/internal/model"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	Create(template *model.TestTemplate) error
	Update(template *model.TestTemplate) error
	FindByID(id uint) (*model.TestTemplate, error)
	FindByIDWithSections(id uint) (*model.TestTemplate, error)
	FindAll() ([]model.TestTemplate, error)
}

type templateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(template *model.TestTemplate) error {
	// GORM creates associated sections when template.Sections is populated.
	return r.db.Create(template).Error
}

func (r *templateRepository) Update(template *model.TestTemplate) error {
	return r.db.Save(template).Error
}

func (r *templateRepository) FindByID(id uint) (*model.TestTemplate, error) {
	var template model.TestTemplate
	if err := r.db.First(&template, id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *templateRepository) FindByIDWithSections(id uint) (*model.TestTemplate, error) {
	var template model.TestTemplate
	err := r.db.Preload("Sections", func(db *gorm.DB) *gorm.DB {
		return db.Order("template_sections.order_in_test ASC")
	}).First(&template, id).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *templateRepository) FindAll() ([]model.TestTemplate, error) {
	var templates []model.TestTemplate
	if err := r.db.Order("created_at DESC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}
