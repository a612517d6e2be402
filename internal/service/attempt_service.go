package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepmint/examengine/internal/clock"
	"github.com/prepmint/examengine/internal/model"
	"github.com/prepmint/examengine/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// TimeRemaining is a pure computation over the session clock and the stored
// accumulators. Nothing in the engine polls it; the deadline sweeper (or any
// external scheduler) reads it and calls Submit when a value reaches zero.
type TimeRemaining struct {
	State          string `json:"state"`
	OverallSec     int64  `json:"overall_sec"`
	SectionIndex   int    `json:"section_index"`
	SectionSec     *int64 `json:"section_sec,omitempty"` // nil: no independent sectional limit
	SectionHasNext bool   `json:"section_has_next"`
}

// AttemptService is the attempt state machine: lifecycle
// in-progress -> (paused) -> submitted -> scored, sectional navigation,
// durable answer recording and caller-driven timeout submission.
type AttemptService interface {
	Start(studentID, snapshotID string) (*model.TestAttempt, error)
	Get(attemptID string) (*model.TestAttempt, error)
	RecordAnswer(attemptID, questionID string, selected []string, markedForReview bool, timeSpentSec int64) (*model.AnswerRecord, error)
	Navigate(attemptID string, targetSection int) (*model.TestAttempt, error)
	Pause(attemptID string) (*model.TestAttempt, error)
	Resume(attemptID string) (*model.TestAttempt, error)
	Submit(attemptID, reason string) (*model.TestAttempt, error)
	TimeRemaining(attemptID string) (*TimeRemaining, error)
}

type attemptService struct {
	attemptRepo  repository.AttemptRepository
	answerRepo   repository.AnswerRepository
	snapshotRepo repository.SnapshotRepository
	scoring      ScoringService
	clk          clock.Clock
	locks        attemptLocks
}

func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	answerRepo repository.AnswerRepository,
	snapshotRepo repository.SnapshotRepository,
	scoring ScoringService,
	clk clock.Clock,
) AttemptService {
	return &attemptService{
		attemptRepo:  attemptRepo,
		answerRepo:   answerRepo,
		snapshotRepo: snapshotRepo,
		scoring:      scoring,
		clk:          clk,
	}
}

func (s *attemptService) definition(snapshotID string) (model.SnapshotDefinition, error) {
	snapshot, err := s.snapshotRepo.FindBySnapshotID(snapshotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.SnapshotDefinition{}, fmt.Errorf("snapshot %s: %w", snapshotID, ErrNotFound)
		}
		return model.SnapshotDefinition{}, fmt.Errorf("loading snapshot %s: %w: %v", snapshotID, ErrPersistence, err)
	}
	return snapshot.Definition.Data(), nil
}

func (s *attemptService) load(attemptID string) (*model.TestAttempt, error) {
	attempt, err := s.attemptRepo.FindByAttemptID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading attempt %s: %w: %v", attemptID, ErrPersistence, err)
	}
	return attempt, nil
}

func (s *attemptService) Start(studentID, snapshotID string) (*model.TestAttempt, error) {
	def, err := s.definition(snapshotID)
	if err != nil {
		return nil, err
	}

	// Concurrent starts for the same student race the duplicate check
	// below; serializing on the pair keeps the attempt unique.
	unlock := s.locks.lock(studentID + "/" + snapshotID)
	defer unlock()

	existing, err := s.attemptRepo.FindByStudentAndSnapshot(studentID, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("checking prior attempts: %w: %v", ErrPersistence, err)
	}
	if len(existing) > 0 && !def.AllowReattempt {
		return nil, fmt.Errorf("student %s on snapshot %s: %w", studentID, snapshotID, ErrAlreadyAttempted)
	}

	now := s.clk.Now()
	attempt := &model.TestAttempt{
		AttemptID:        uuid.NewString(),
		StudentID:        studentID,
		SnapshotID:       snapshotID,
		State:            model.AttemptInProgress,
		StartedAt:        now,
		CurrentSection:   0,
		SectionClocks:    make([]model.SectionClock, len(def.Sections)),
		EnteredSectionAt: &now,
	}
	if err := s.attemptRepo.Create(attempt); err != nil {
		return nil, fmt.Errorf("creating attempt: %w: %v", ErrPersistence, err)
	}

	log.Info().Str("attemptID", attempt.AttemptID).Str("studentID", studentID).
		Str("snapshotID", snapshotID).Msg("Attempt started")
	return attempt, nil
}

func (s *attemptService) Get(attemptID string) (*model.TestAttempt, error) {
	attempt, err := s.attemptRepo.FindByAttemptIDWithAnswers(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading attempt %s: %w: %v", attemptID, ErrPersistence, err)
	}
	return attempt, nil
}

func (s *attemptService) RecordAnswer(attemptID, questionID string, selected []string, markedForReview bool, timeSpentSec int64) (*model.AnswerRecord, error) {
	unlock := s.locks.lock(attemptID)
	defer unlock()

	attempt, err := s.Get(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Closed() {
		return nil, fmt.Errorf("recordAnswer on %s: %w", attemptID, ErrAttemptClosed)
	}
	if attempt.State != model.AttemptInProgress {
		return nil, fmt.Errorf("recordAnswer while %s: %w", attempt.State, ErrInvalidState)
	}

	def, err := s.definition(attempt.SnapshotID)
	if err != nil {
		return nil, err
	}
	sectionIdx := def.SectionOf(questionID)
	if sectionIdx < 0 {
		return nil, fmt.Errorf("question %s not in snapshot %s: %w", questionID, attempt.SnapshotID, ErrUnknownQuestion)
	}
	if def.Navigation == model.NavigationSectionalLock {
		if attempt.SectionClocks[sectionIdx].Locked {
			return nil, fmt.Errorf("question %s in locked section %d: %w", questionID, sectionIdx, ErrSectionLocked)
		}
		if sectionIdx != attempt.CurrentSection {
			return nil, fmt.Errorf("question %s outside current section %d: %w", questionID, attempt.CurrentSection, ErrSectionLocked)
		}
	}

	record := model.AnswerRecord{
		TestAttemptID:   attempt.ID,
		QuestionID:      questionID,
		Selected:        selected,
		MarkedForReview: markedForReview,
		Visits:          1,
		TimeSpentSec:    timeSpentSec,
		LastModifiedAt:  s.clk.Now(),
	}
	for _, prior := range attempt.Answers {
		if prior.QuestionID == questionID {
			record.ID = prior.ID
			record.Visits = prior.Visits + 1
			record.TimeSpentSec = prior.TimeSpentSec + timeSpentSec
			break
		}
	}

	// Persist before anything else sees the record; on failure the attempt
	// is untouched and the caller can retry the identical call.
	if err := s.answerRepo.Upsert(&record); err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Str("questionID", questionID).
			Msg("Failed to persist answer record")
		return nil, fmt.Errorf("saving answer for %s: %w: %v", questionID, ErrPersistence, err)
	}
	return &record, nil
}

func (s *attemptService) Navigate(attemptID string, targetSection int) (*model.TestAttempt, error) {
	unlock := s.locks.lock(attemptID)
	defer unlock()

	attempt, err := s.load(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Closed() {
		return nil, fmt.Errorf("navigate on %s: %w", attemptID, ErrAttemptClosed)
	}
	if attempt.State != model.AttemptInProgress {
		return nil, fmt.Errorf("navigate while %s: %w", attempt.State, ErrInvalidState)
	}

	def, err := s.definition(attempt.SnapshotID)
	if err != nil {
		return nil, err
	}
	if targetSection < 0 || targetSection >= len(def.Sections) {
		return nil, fmt.Errorf("section index %d out of range: %w", targetSection, ErrInvalidState)
	}
	if targetSection == attempt.CurrentSection {
		return attempt, nil
	}

	now := s.clk.Now()
	if def.Navigation == model.NavigationSectionalLock {
		if attempt.SectionClocks[targetSection].Locked || targetSection < attempt.CurrentSection {
			return nil, fmt.Errorf("section %d: %w", targetSection, ErrSectionLocked)
		}
		// Forward movement finalizes everything behind the target.
		s.foldRunningTime(attempt, def, now)
		for i := attempt.CurrentSection; i < targetSection; i++ {
			attempt.SectionClocks[i] = model.SectionClock{ElapsedSec: attempt.SectionClocks[i].ElapsedSec, Locked: true}
		}
	} else {
		s.foldRunningTime(attempt, def, now)
	}

	attempt.CurrentSection = targetSection
	attempt.EnteredSectionAt = &now

	if err := s.attemptRepo.UpdateState(attempt); err != nil {
		return nil, fmt.Errorf("saving navigation: %w: %v", ErrPersistence, err)
	}
	return attempt, nil
}

func (s *attemptService) Pause(attemptID string) (*model.TestAttempt, error) {
	unlock := s.locks.lock(attemptID)
	defer unlock()

	attempt, err := s.load(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Closed() {
		return nil, fmt.Errorf("pause on %s: %w", attemptID, ErrAttemptClosed)
	}
	def, err := s.definition(attempt.SnapshotID)
	if err != nil {
		return nil, err
	}
	if !def.AllowPause {
		return nil, fmt.Errorf("pause on %s: %w", attemptID, ErrNotPermitted)
	}
	if attempt.State != model.AttemptInProgress {
		return nil, fmt.Errorf("pause while %s: %w", attempt.State, ErrInvalidState)
	}

	now := s.clk.Now()
	s.foldRunningTime(attempt, def, now)
	attempt.State = model.AttemptPaused
	attempt.PausedAt = &now

	if err := s.attemptRepo.UpdateState(attempt); err != nil {
		return nil, fmt.Errorf("saving pause: %w: %v", ErrPersistence, err)
	}
	return attempt, nil
}

func (s *attemptService) Resume(attemptID string) (*model.TestAttempt, error) {
	unlock := s.locks.lock(attemptID)
	defer unlock()

	attempt, err := s.load(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Closed() {
		return nil, fmt.Errorf("resume on %s: %w", attemptID, ErrAttemptClosed)
	}
	def, err := s.definition(attempt.SnapshotID)
	if err != nil {
		return nil, err
	}
	if !def.AllowPause {
		return nil, fmt.Errorf("resume on %s: %w", attemptID, ErrNotPermitted)
	}
	if attempt.State != model.AttemptPaused {
		return nil, fmt.Errorf("resume while %s: %w", attempt.State, ErrInvalidState)
	}

	// Remaining time restarts from the frozen accumulators; the original
	// allotment never stretches.
	now := s.clk.Now()
	attempt.State = model.AttemptInProgress
	attempt.PausedAt = nil
	attempt.EnteredSectionAt = &now

	if err := s.attemptRepo.UpdateState(attempt); err != nil {
		return nil, fmt.Errorf("saving resume: %w: %v", ErrPersistence, err)
	}
	return attempt, nil
}

func (s *attemptService) Submit(attemptID, reason string) (*model.TestAttempt, error) {
	switch reason {
	case model.SubmitManual, model.SubmitSectionTimeout, model.SubmitTotalTimeout:
	default:
		return nil, fmt.Errorf("submit reason %q: %w", reason, ErrInvalidState)
	}

	unlock := s.locks.lock(attemptID)
	defer unlock()

	attempt, err := s.load(attemptID)
	if err != nil {
		return nil, err
	}
	// Duplicate submits are absorbed: timeout sweeps and client retries may
	// race, the first writer wins and the rest observe its result.
	if attempt.Closed() {
		return attempt, nil
	}

	def, err := s.definition(attempt.SnapshotID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	s.foldRunningTime(attempt, def, now)
	for i := range attempt.SectionClocks {
		attempt.SectionClocks[i].Locked = true
	}
	attempt.State = model.AttemptSubmitted
	attempt.SubmittedAt = &now
	attempt.SubmitReason = &reason
	attempt.PausedAt = nil

	if err := s.attemptRepo.UpdateState(attempt); err != nil {
		return nil, fmt.Errorf("saving submission: %w: %v", ErrPersistence, err)
	}
	log.Info().Str("attemptID", attemptID).Str("reason", reason).Msg("Attempt submitted")

	// Score immediately; a scoring failure leaves the attempt submitted and
	// recoverable through an admin re-score.
	if _, err := s.scoring.ScoreAttempt(attempt.AttemptID); err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Msg("Scoring after submit failed")
		return attempt, nil
	}
	attempt.State = model.AttemptScored
	if err := s.attemptRepo.UpdateState(attempt); err != nil {
		return nil, fmt.Errorf("saving scored state: %w: %v", ErrPersistence, err)
	}
	return attempt, nil
}

func (s *attemptService) TimeRemaining(attemptID string) (*TimeRemaining, error) {
	attempt, err := s.load(attemptID)
	if err != nil {
		return nil, err
	}
	def, err := s.definition(attempt.SnapshotID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	remaining := &TimeRemaining{
		State:          attempt.State,
		SectionIndex:   attempt.CurrentSection,
		SectionHasNext: attempt.CurrentSection < len(def.Sections)-1,
	}
	if attempt.Closed() {
		return remaining, nil
	}

	total := int64(0)
	for i := range def.Sections {
		total += sectionElapsed(attempt, i, now)
	}
	remaining.OverallSec = maxInt64(0, int64(def.TotalTimeLimitSec)-total)

	cur := attempt.CurrentSection
	if limit := def.Sections[cur].TimeLimitSec; limit != nil {
		left := maxInt64(0, int64(*limit)-sectionElapsed(attempt, cur, now))
		if left > remaining.OverallSec {
			left = remaining.OverallSec
		}
		remaining.SectionSec = &left
	}
	return remaining, nil
}

// foldRunningTime moves the running segment of the current section into its
// accumulator, capped so the section never exceeds its own limit and the
// attempt total never exceeds the overall limit.
func (s *attemptService) foldRunningTime(attempt *model.TestAttempt, def model.SnapshotDefinition, now time.Time) {
	if attempt.EnteredSectionAt == nil {
		return
	}
	cur := attempt.CurrentSection
	seg := int64(now.Sub(*attempt.EnteredSectionAt).Seconds())
	if seg < 0 {
		seg = 0
	}

	if limit := def.Sections[cur].TimeLimitSec; limit != nil {
		if room := int64(*limit) - attempt.SectionClocks[cur].ElapsedSec; seg > room {
			seg = maxInt64(0, room)
		}
	}
	others := int64(0)
	for i := range attempt.SectionClocks {
		if i != cur {
			others += attempt.SectionClocks[i].ElapsedSec
		}
	}
	if room := int64(def.TotalTimeLimitSec) - others - attempt.SectionClocks[cur].ElapsedSec; seg > room {
		seg = maxInt64(0, room)
	}

	attempt.SectionClocks[cur].ElapsedSec += seg
	attempt.EnteredSectionAt = nil
}

// sectionElapsed is the accumulator plus the running segment when the
// section is current and the clock is live.
func sectionElapsed(attempt *model.TestAttempt, i int, now time.Time) int64 {
	elapsed := attempt.SectionClocks[i].ElapsedSec
	if i == attempt.CurrentSection && attempt.State == model.AttemptInProgress && attempt.EnteredSectionAt != nil {
		if seg := int64(now.Sub(*attempt.EnteredSectionAt).Seconds()); seg > 0 {
			elapsed += seg
		}
	}
	return elapsed
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
