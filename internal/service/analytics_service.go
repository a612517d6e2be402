package service

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/prepmint/examengine/internal/bank"
	"github.com/prepmint/examengine/internal/clock"
	"github.com/prepmint/examengine/internal/dto"
	"github.com/prepmint/examengine/internal/model"
	"github.com/prepmint/examengine/internal/repository"
	"gorm.io/gorm"
)

// Topics at or above strongAccuracy with at least one attempt count as
// strengths, below weakAccuracy as weaknesses.
const (
	strongAccuracy = 0.75
	weakAccuracy   = 0.5
)

// AnalyticsService derives per-attempt and cohort reports from score
// breakdowns and their source answer records.
type AnalyticsService interface {
	AttemptReport(attemptID string) (*dto.AttemptReport, error)
	// CohortReport aggregates all attempts scored on the snapshot as of the
	// call. attemptID is optional; when given, the report carries that
	// attempt's percentile within the cohort snapshot.
	CohortReport(snapshotID string, attemptID *string) (*dto.CohortReport, error)
}

type analyticsService struct {
	attemptRepo   repository.AttemptRepository
	snapshotRepo  repository.SnapshotRepository
	questionRepo  repository.QuestionRepository
	breakdownRepo repository.BreakdownRepository
	clk           clock.Clock
}

func NewAnalyticsService(
	attemptRepo repository.AttemptRepository,
	snapshotRepo repository.SnapshotRepository,
	questionRepo repository.QuestionRepository,
	breakdownRepo repository.BreakdownRepository,
	clk clock.Clock,
) AnalyticsService {
	return &analyticsService{
		attemptRepo:   attemptRepo,
		snapshotRepo:  snapshotRepo,
		questionRepo:  questionRepo,
		breakdownRepo: breakdownRepo,
		clk:           clk,
	}
}

func (s *analyticsService) AttemptReport(attemptID string) (*dto.AttemptReport, error) {
	attempt, err := s.attemptRepo.FindByAttemptIDWithAnswers(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading attempt %s: %w: %v", attemptID, ErrPersistence, err)
	}
	if attempt.State != model.AttemptScored {
		return nil, fmt.Errorf("report on attempt in state %s: %w", attempt.State, ErrInvalidState)
	}

	breakdown, err := s.breakdownRepo.Latest(attempt.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no breakdown for attempt %s: %w", attemptID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading breakdown: %w: %v", ErrPersistence, err)
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

	report := &dto.AttemptReport{
		AttemptID:          attempt.AttemptID,
		StudentID:          attempt.StudentID,
		SnapshotID:         attempt.SnapshotID,
		Revision:           breakdown.Revision,
		TotalScore:         breakdown.TotalScore,
		MaxScore:           breakdown.MaxScore,
		SubjectAccuracy:    map[string]dto.Accuracy{},
		TopicAccuracy:      map[string]dto.Accuracy{},
		DifficultyAccuracy: map[string]dto.Accuracy{},
		ComputedAt:         s.clk.Now(),
	}
	for _, section := range breakdown.Sections {
		report.Sections = append(report.Sections, dto.SectionScoreResponse(section))
	}

	records := make(map[string]*model.AnswerRecord, len(attempt.Answers))
	for i := range attempt.Answers {
		rec := &attempt.Answers[i]
		records[rec.QuestionID] = rec
		report.TimePerQuestion = append(report.TimePerQuestion, dto.QuestionTime{
			QuestionID:      rec.QuestionID,
			TimeSpentSec:    rec.TimeSpentSec,
			Visits:          rec.Visits,
			MarkedForReview: rec.MarkedForReview,
		})
		if rec.MarkedForReview {
			report.ReviewFlagged++
		}
	}

	for si := range def.Sections {
		for _, q := range index.Section(si) {
			_, result := scoreQuestion(&q, records[q.QuestionID])
			attempted := result != outcomeUnattempted
			correct := result == outcomeCorrect
			bump(report.SubjectAccuracy, q.Subject, attempted, correct)
			bump(report.TopicAccuracy, q.Topic, attempted, correct)
			bump(report.DifficultyAccuracy, q.Difficulty, attempted, correct)
		}
	}

	report.Strengths, report.Weaknesses = classifyTopics(report.TopicAccuracy)
	return report, nil
}

func (s *analyticsService) CohortReport(snapshotID string, attemptID *string) (*dto.CohortReport, error) {
	if _, err := s.snapshotRepo.FindBySnapshotID(snapshotID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("snapshot %s: %w", snapshotID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading snapshot %s: %w: %v", snapshotID, ErrPersistence, err)
	}

	// One consistent read of "everything scored as of now"; the numbers
	// below all derive from this snapshot of the cohort.
	attempts, err := s.attemptRepo.FindAllBySnapshot(snapshotID, []string{model.AttemptScored})
	if err != nil {
		return nil, fmt.Errorf("listing scored attempts: %w: %v", ErrPersistence, err)
	}

	report := &dto.CohortReport{
		SnapshotID:   snapshotID,
		SnapshotAt:   s.clk.Now(),
		AttemptCount: len(attempts),
		AttemptID:    attemptID,
	}
	if len(attempts) == 0 {
		return report, nil
	}

	ids := make([]uint, len(attempts))
	byDB := make(map[uint]string, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
		byDB[a.ID] = a.AttemptID
	}
	breakdowns, err := s.breakdownRepo.LatestForAttempts(ids)
	if err != nil {
		return nil, fmt.Errorf("loading cohort breakdowns: %w: %v", ErrPersistence, err)
	}

	scores := make([]float64, 0, len(breakdowns))
	var target *float64
	subjects := map[string]*cohortSubjectAcc{}
	var subjectOrder []string

	for i := range breakdowns {
		b := &breakdowns[i]
		scores = append(scores, b.TotalScore)
		if attemptID != nil && byDB[b.TestAttemptID] == *attemptID {
			v := b.TotalScore
			target = &v
		}
		for _, sub := range b.Subjects {
			acc, ok := subjects[sub.Subject]
			if !ok {
				acc = &cohortSubjectAcc{}
				subjects[sub.Subject] = acc
				subjectOrder = append(subjectOrder, sub.Subject)
			}
			acc.score += sub.Score
			acc.max += sub.MaxScore
			if sub.MaxScore > 0 {
				acc.rate += sub.Score / sub.MaxScore
			}
			acc.n++
		}
	}
	if attemptID != nil && target == nil {
		return nil, fmt.Errorf("attempt %s not scored on snapshot %s: %w", *attemptID, snapshotID, ErrNotFound)
	}

	report.Mean = mean(scores)
	report.Median = median(scores)
	report.StdDev = stddev(scores)
	if target != nil {
		p := percentile(scores, *target)
		report.Percentile = &p
	}
	for _, name := range subjectOrder {
		acc := subjects[name]
		report.Subjects = append(report.Subjects, dto.CohortSubject{
			Subject:       name,
			MeanScore:     acc.score / float64(acc.n),
			MeanMaxScore:  acc.max / float64(acc.n),
			MeanScoreRate: acc.rate / float64(acc.n),
		})
	}
	return report, nil
}

type cohortSubjectAcc struct {
	score, max, rate float64
	n                int
}

func bump(m map[string]dto.Accuracy, key string, attempted, correct bool) {
	acc := m[key]
	acc.Total++
	if attempted {
		acc.Attempted++
	}
	if correct {
		acc.Correct++
	}
	if acc.Attempted > 0 {
		acc.Accuracy = float64(acc.Correct) / float64(acc.Attempted)
	}
	m[key] = acc
}

func classifyTopics(topics map[string]dto.Accuracy) (strengths, weaknesses []string) {
	for topic, acc := range topics {
		if acc.Attempted == 0 {
			continue
		}
		switch {
		case acc.Accuracy >= strongAccuracy:
			strengths = append(strengths, topic)
		case acc.Accuracy < weakAccuracy:
			weaknesses = append(weaknesses, topic)
		}
	}
	sort.Strings(strengths)
	sort.Strings(weaknesses)
	return strengths, weaknesses
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// percentile is the share of cohort scores strictly below the target.
func percentile(scores []float64, target float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	below := 0
	for _, v := range scores {
		if v < target {
			below++
		}
	}
	return 100 * float64(below) / float64(len(scores))
}
