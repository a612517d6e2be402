package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/prepmint/examengine/internal/dto"
	"github.com/prepmint/examengine/internal/model"
	"github.com/prepmint/examengine/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminService covers content authoring: publishing questions, assembling
// templates and freezing them into interface snapshots.
type AdminService interface {
	CreateQuestion(req dto.CreateQuestionRequest) (*dto.QuestionResponse, error)
	CreateTemplate(req dto.CreateTemplateRequest) (*dto.TemplateResponse, error)
	// PublishTemplate freezes the template's current shape into an immutable
	// snapshot and bumps the template version. Attempts bind to the
	// snapshot; later template edits never reach them.
	PublishTemplate(templateID uint) (*dto.SnapshotResponse, error)
}

type adminService struct {
	questionRepo repository.QuestionRepository
	templateRepo repository.TemplateRepository
	snapshotRepo repository.SnapshotRepository
	db           *gorm.DB
}

func NewAdminService(
	questionRepo repository.QuestionRepository,
	templateRepo repository.TemplateRepository,
	snapshotRepo repository.SnapshotRepository,
	db *gorm.DB,
) AdminService {
	return &adminService{
		questionRepo: questionRepo,
		templateRepo: templateRepo,
		snapshotRepo: snapshotRepo,
		db:           db,
	}
}

func (s *adminService) CreateQuestion(req dto.CreateQuestionRequest) (*dto.QuestionResponse, error) {
	optionIDs := make(map[string]bool, len(req.Options))
	for _, opt := range req.Options {
		if optionIDs[opt.ID] {
			return nil, fmt.Errorf("duplicate option id %q: %w", opt.ID, ErrInvalidDefinition)
		}
		optionIDs[opt.ID] = true
	}
	for _, key := range req.CorrectKeys {
		if !optionIDs[key] {
			return nil, fmt.Errorf("correct key %q is not an option: %w", key, ErrInvalidDefinition)
		}
	}

	question := model.Question{
		QuestionID:       uuid.NewString(),
		Subject:          req.Subject,
		Topic:            req.Topic,
		Difficulty:       req.Difficulty,
		Prompt:           req.Prompt,
		CorrectKeys:      req.CorrectKeys,
		MarksCorrect:     req.MarksCorrect,
		MarksIncorrect:   req.MarksIncorrect,
		MarksUnattempted: req.MarksUnattempted,
		PartialCredit:    req.PartialCredit,
	}
	if question.PartialCredit == "" {
		question.PartialCredit = model.PartialAllOrNothing
	}
	for _, opt := range req.Options {
		question.Options = append(question.Options, model.Option{ID: opt.ID, Text: opt.Text})
	}

	if err := s.questionRepo.Create(&question); err != nil {
		log.Error().Err(err).Msg("Failed to create question")
		return nil, fmt.Errorf("database error creating question: %w", err)
	}

	var resp dto.QuestionResponse
	if err := copier.Copy(&resp, &question); err != nil {
		return nil, fmt.Errorf("error preparing question response: %w", err)
	}
	return &resp, nil
}

func (s *adminService) CreateTemplate(req dto.CreateTemplateRequest) (*dto.TemplateResponse, error) {
	var allIDs []string
	for _, section := range req.Sections {
		if section.TimeLimitSec != nil && *section.TimeLimitSec <= 0 {
			return nil, fmt.Errorf("section %q has non-positive time limit: %w", section.Name, ErrInvalidDefinition)
		}
		allIDs = append(allIDs, section.QuestionIDs...)
	}
	seen := make(map[string]bool, len(allIDs))
	for _, id := range allIDs {
		if seen[id] {
			return nil, fmt.Errorf("question %s appears in more than one section: %w", id, ErrInvalidDefinition)
		}
		seen[id] = true
	}
	found, err := s.questionRepo.FindByQuestionIDs(allIDs)
	if err != nil {
		return nil, fmt.Errorf("validating question ids: %w", err)
	}
	if len(found) != len(allIDs) {
		return nil, fmt.Errorf("template references %d questions, only %d published: %w", len(allIDs), len(found), ErrInvalidDefinition)
	}

	template := model.TestTemplate{
		Title:             req.Title,
		Description:       req.Description,
		Version:           1,
		TotalTimeLimitSec: req.TotalTimeLimitSec,
		Navigation:        req.Navigation,
		AllowPause:        req.AllowPause,
		AllowReattempt:    req.AllowReattempt,
	}
	for i, section := range req.Sections {
		template.Sections = append(template.Sections, model.TemplateSection{
			Name:         section.Name,
			OrderInTest:  i,
			QuestionIDs:  section.QuestionIDs,
			TimeLimitSec: section.TimeLimitSec,
		})
	}

	if err := s.templateRepo.Create(&template); err != nil {
		log.Error().Err(err).Msg("Failed to create template")
		return nil, fmt.Errorf("database error creating template: %w", err)
	}
	return templateResponse(&template), nil
}

func (s *adminService) PublishTemplate(templateID uint) (*dto.SnapshotResponse, error) {
	template, err := s.templateRepo.FindByIDWithSections(templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("template %d: %w", templateID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading template %d: %w", templateID, err)
	}

	def := model.SnapshotDefinition{
		Title:             template.Title,
		TotalTimeLimitSec: template.TotalTimeLimitSec,
		Navigation:        template.Navigation,
		AllowPause:        template.AllowPause,
		AllowReattempt:    template.AllowReattempt,
	}
	for _, section := range template.Sections {
		def.Sections = append(def.Sections, model.SectionDef{
			Name:         section.Name,
			QuestionIDs:  section.QuestionIDs,
			TimeLimitSec: section.TimeLimitSec,
		})
	}

	snapshot := model.InterfaceSnapshot{
		SnapshotID: uuid.NewString(),
		TemplateID: template.ID,
		Version:    template.Version,
		Definition: datatypes.NewJSONType(def),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&snapshot).Error; err != nil {
			return fmt.Errorf("creating snapshot: %w", err)
		}
		template.Version++
		if err := tx.Save(template).Error; err != nil {
			return fmt.Errorf("bumping template version: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Uint("templateID", templateID).Msg("Failed to publish template")
		return nil, err
	}

	log.Info().Uint("templateID", templateID).Str("snapshotID", snapshot.SnapshotID).
		Int("version", snapshot.Version).Msg("Template published")
	return &dto.SnapshotResponse{
		SnapshotID: snapshot.SnapshotID,
		TemplateID: snapshot.TemplateID,
		Version:    snapshot.Version,
		CreatedAt:  snapshot.CreatedAt,
	}, nil
}

func templateResponse(template *model.TestTemplate) *dto.TemplateResponse {
	resp := &dto.TemplateResponse{
		ID:                template.ID,
		Title:             template.Title,
		Description:       template.Description,
		Version:           template.Version,
		TotalTimeLimitSec: template.TotalTimeLimitSec,
		Navigation:        template.Navigation,
		AllowPause:        template.AllowPause,
		AllowReattempt:    template.AllowReattempt,
		CreatedAt:         template.CreatedAt,
	}
	for _, section := range template.Sections {
		resp.Sections = append(resp.Sections, dto.SectionResponse{
			Name:         section.Name,
			OrderInTest:  section.OrderInTest,
			QuestionIDs:  section.QuestionIDs,
			TimeLimitSec: section.TimeLimitSec,
		})
	}
	return resp
}
