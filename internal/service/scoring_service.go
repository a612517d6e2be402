package service

import (
	"errors"
	"fmt"

	"github.com/prepmint/examengine/internal/bank"
	"github.com/prepmint/examengine/internal/clock"
	"github.com/prepmint/examengine/internal/model"
	"github.com/prepmint/examengine/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type outcome int

const (
	outcomeUnattempted outcome = iota
	outcomeCorrect
	outcomeIncorrect
	outcomePartial
)

// ScoringService turns a submitted attempt's answer set into a
// ScoreBreakdown. Computation is a pure function of the answers and the
// question bank; persistence appends revisions and never rewrites history.
type ScoringService interface {
	// ScoreAttempt computes and stores the next breakdown revision for a
	// submitted attempt.
	ScoreAttempt(attemptID string) (*model.ScoreBreakdown, error)
	// Rescore recomputes against the current question bank, e.g. after an
	// answer key correction. Same append-only semantics.
	Rescore(attemptID string) (*model.ScoreBreakdown, error)
	LatestBreakdown(attemptID string) (*model.ScoreBreakdown, error)
	Revisions(attemptID string) ([]model.ScoreBreakdown, error)
}

type scoringService struct {
	attemptRepo   repository.AttemptRepository
	snapshotRepo  repository.SnapshotRepository
	questionRepo  repository.QuestionRepository
	breakdownRepo repository.BreakdownRepository
	clk           clock.Clock
}

func NewScoringService(
	attemptRepo repository.AttemptRepository,
	snapshotRepo repository.SnapshotRepository,
	questionRepo repository.QuestionRepository,
	breakdownRepo repository.BreakdownRepository,
	clk clock.Clock,
) ScoringService {
	return &scoringService{
		attemptRepo:   attemptRepo,
		snapshotRepo:  snapshotRepo,
		questionRepo:  questionRepo,
		breakdownRepo: breakdownRepo,
		clk:           clk,
	}
}

func (s *scoringService) ScoreAttempt(attemptID string) (*model.ScoreBreakdown, error) {
	return s.score(attemptID)
}

func (s *scoringService) Rescore(attemptID string) (*model.ScoreBreakdown, error) {
	breakdown, err := s.score(attemptID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("attemptID", attemptID).Int("revision", breakdown.Revision).Msg("Attempt re-scored")
	return breakdown, nil
}

func (s *scoringService) score(attemptID string) (*model.ScoreBreakdown, error) {
	attempt, err := s.attemptRepo.FindByAttemptIDWithAnswers(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading attempt %s: %w: %v", attemptID, ErrPersistence, err)
	}
	if !attempt.Closed() {
		return nil, fmt.Errorf("scoring attempt in state %s: %w", attempt.State, ErrInvalidState)
	}

	snapshot, err := s.snapshotRepo.FindBySnapshotID(attempt.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w: %v", attempt.SnapshotID, ErrPersistence, err)
	}
	def := snapshot.Definition.Data()

	index, err := bank.Load(def, s.questionRepo)
	if err != nil {
		return nil, fmt.Errorf("building question index: %w", err)
	}

	revision := 1
	if latest, err := s.breakdownRepo.Latest(attempt.ID); err == nil {
		revision = latest.Revision + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reading prior revisions: %w: %v", ErrPersistence, err)
	}

	breakdown := ComputeBreakdown(attempt, def, index)
	breakdown.Revision = revision
	breakdown.ComputedAt = s.clk.Now()

	if err := s.breakdownRepo.Create(breakdown); err != nil {
		return nil, fmt.Errorf("saving breakdown: %w: %v", ErrPersistence, err)
	}
	return breakdown, nil
}

func (s *scoringService) LatestBreakdown(attemptID string) (*model.ScoreBreakdown, error) {
	attempt, err := s.attemptRepo.FindByAttemptID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading attempt %s: %w: %v", attemptID, ErrPersistence, err)
	}
	breakdown, err := s.breakdownRepo.Latest(attempt.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no breakdown for attempt %s: %w", attemptID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading breakdown: %w: %v", ErrPersistence, err)
	}
	return breakdown, nil
}

func (s *scoringService) Revisions(attemptID string) ([]model.ScoreBreakdown, error) {
	attempt, err := s.attemptRepo.FindByAttemptID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading attempt %s: %w: %v", attemptID, ErrPersistence, err)
	}
	return s.breakdownRepo.FindAllRevisions(attempt.ID)
}

// ComputeBreakdown is the pure scoring function: same answers, same bank,
// same result. Revision and ComputedAt are left for the caller to stamp.
func ComputeBreakdown(attempt *model.TestAttempt, def model.SnapshotDefinition, index *bank.Index) *model.ScoreBreakdown {
	records := make(map[string]*model.AnswerRecord, len(attempt.Answers))
	for i := range attempt.Answers {
		records[attempt.Answers[i].QuestionID] = &attempt.Answers[i]
	}

	breakdown := &model.ScoreBreakdown{TestAttemptID: attempt.ID}
	subjects := map[string]*model.SubjectScore{}
	var subjectOrder []string

	for si, sectionDef := range def.Sections {
		section := model.SectionScore{Index: si, Name: sectionDef.Name}
		if si < len(attempt.SectionClocks) {
			section.TimeSpentSec = attempt.SectionClocks[si].ElapsedSec
		}

		for _, q := range index.Section(si) {
			marks, result := scoreQuestion(&q, records[q.QuestionID])

			section.Score += marks
			section.MaxScore += q.MarksCorrect
			breakdown.TotalScore += marks
			breakdown.MaxScore += q.MarksCorrect

			subject, ok := subjects[q.Subject]
			if !ok {
				subject = &model.SubjectScore{Subject: q.Subject}
				subjects[q.Subject] = subject
				subjectOrder = append(subjectOrder, q.Subject)
			}
			subject.Score += marks
			subject.MaxScore += q.MarksCorrect

			switch result {
			case outcomeCorrect:
				section.Correct++
				subject.Correct++
				breakdown.CorrectCount++
			case outcomeIncorrect:
				section.Incorrect++
				subject.Incorrect++
				breakdown.IncorrectCount++
			case outcomePartial:
				section.Partial++
				subject.Partial++
				breakdown.PartialCount++
			default:
				section.Unattempted++
				subject.Unattempted++
				breakdown.UnattemptedCount++
			}
		}
		breakdown.Sections = append(breakdown.Sections, section)
	}

	for _, name := range subjectOrder {
		breakdown.Subjects = append(breakdown.Subjects, *subjects[name])
	}
	return breakdown
}

// scoreQuestion applies the question's own marking scheme. The
// partial-credit policy is a question attribute, never engine behavior.
func scoreQuestion(q *model.Question, record *model.AnswerRecord) (float64, outcome) {
	if record == nil || !record.Attempted() {
		// A cleared answer is unattempted, not incorrect.
		return q.MarksUnattempted, outcomeUnattempted
	}

	keys := stringSet(q.CorrectKeys)
	selected := stringSet(record.Selected)

	if q.MultiCorrect() && q.PartialCredit == model.PartialProportional {
		picked := 0
		for choice := range selected {
			if _, ok := keys[choice]; !ok {
				// Any wrong pick forfeits proportional credit entirely.
				return q.MarksIncorrect, outcomeIncorrect
			}
			picked++
		}
		if picked == len(keys) {
			return q.MarksCorrect, outcomeCorrect
		}
		return q.MarksCorrect * float64(picked) / float64(len(keys)), outcomePartial
	}

	if setsEqual(selected, keys) {
		return q.MarksCorrect, outcomeCorrect
	}
	return q.MarksIncorrect, outcomeIncorrect
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
