package service

import (
	"sync"
	"time"

	"github.com/prepmint/examengine/internal/model"
	"gorm.io/gorm"
)

// In-memory repository fakes. They return copies, so a service mutation that
// skips the repository write does not leak into "storage" — the same
// contract the real gateway gives us.

type fakeQuestionRepo struct {
	mu        sync.RWMutex
	questions map[string]model.Question
}

func newFakeQuestionRepo(questions ...model.Question) *fakeQuestionRepo {
	r := &fakeQuestionRepo{questions: make(map[string]model.Question)}
	for _, q := range questions {
		r.questions[q.QuestionID] = q
	}
	return r
}

func (r *fakeQuestionRepo) Create(question *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	question.ID = uint(len(r.questions) + 1)
	r.questions[question.QuestionID] = *question
	return nil
}

func (r *fakeQuestionRepo) FindByQuestionID(questionID string) (*model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.questions[questionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &q, nil
}

func (r *fakeQuestionRepo) FindByQuestionIDs(questionIDs []string) ([]model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Question
	seen := make(map[string]bool)
	for _, id := range questionIDs {
		if q, ok := r.questions[id]; ok && !seen[id] {
			out = append(out, q)
			seen[id] = true
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) FindAll() ([]model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Question, 0, len(r.questions))
	for _, q := range r.questions {
		out = append(out, q)
	}
	return out, nil
}

type fakeSnapshotRepo struct {
	mu        sync.RWMutex
	snapshots map[string]model.InterfaceSnapshot
}

func newFakeSnapshotRepo(snapshots ...model.InterfaceSnapshot) *fakeSnapshotRepo {
	r := &fakeSnapshotRepo{snapshots: make(map[string]model.InterfaceSnapshot)}
	for _, s := range snapshots {
		r.snapshots[s.SnapshotID] = s
	}
	return r
}

func (r *fakeSnapshotRepo) Create(snapshot *model.InterfaceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot.ID = uint(len(r.snapshots) + 1)
	r.snapshots[snapshot.SnapshotID] = *snapshot
	return nil
}

func (r *fakeSnapshotRepo) FindBySnapshotID(snapshotID string) (*model.InterfaceSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[snapshotID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *fakeSnapshotRepo) FindByTemplateID(templateID uint) ([]model.InterfaceSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.InterfaceSnapshot
	for _, s := range r.snapshots {
		if s.TemplateID == templateID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeTemplateRepo struct {
	mu        sync.RWMutex
	templates map[uint]model.TestTemplate
	nextID    uint
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[uint]model.TestTemplate)}
}

func (r *fakeTemplateRepo) Create(template *model.TestTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	template.ID = r.nextID
	for i := range template.Sections {
		template.Sections[i].TestTemplateID = template.ID
	}
	r.templates[template.ID] = *template
	return nil
}

func (r *fakeTemplateRepo) Update(template *model.TestTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[template.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.templates[template.ID] = *template
	return nil
}

func (r *fakeTemplateRepo) FindByID(id uint) (*model.TestTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	t.Sections = nil
	return &t, nil
}

func (r *fakeTemplateRepo) FindByIDWithSections(id uint) (*model.TestTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *fakeTemplateRepo) FindAll() ([]model.TestTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.TestTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	return out, nil
}

type fakeAnswerRepo struct {
	mu      sync.RWMutex
	records map[uint]map[string]model.AnswerRecord // attempt DB id -> question -> record
	nextID  uint

	failNext error // injected once for persistence-failure paths
}

func newFakeAnswerRepo() *fakeAnswerRepo {
	return &fakeAnswerRepo{records: make(map[uint]map[string]model.AnswerRecord)}
}

func (r *fakeAnswerRepo) Upsert(record *model.AnswerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}

	byQuestion, ok := r.records[record.TestAttemptID]
	if !ok {
		byQuestion = make(map[string]model.AnswerRecord)
		r.records[record.TestAttemptID] = byQuestion
	}
	if existing, ok := byQuestion[record.QuestionID]; ok {
		// Stale retries lose; same contract as the conditional upsert.
		if !existing.LastModifiedAt.Before(record.LastModifiedAt) {
			return nil
		}
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		record.ID = r.nextID
		record.CreatedAt = record.LastModifiedAt
	}
	byQuestion[record.QuestionID] = cloneRecord(*record)
	return nil
}

func (r *fakeAnswerRepo) FindByAttempt(testAttemptID uint) ([]model.AnswerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.AnswerRecord
	for _, rec := range r.records[testAttemptID] {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

type fakeAttemptRepo struct {
	mu       sync.RWMutex
	attempts map[string]model.TestAttempt // keyed by attempt id
	answers  *fakeAnswerRepo
	nextID   uint

	failNext error
}

func newFakeAttemptRepo(answers *fakeAnswerRepo) *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: make(map[string]model.TestAttempt), answers: answers}
}

func (r *fakeAttemptRepo) Create(attempt *model.TestAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	r.nextID++
	attempt.ID = r.nextID
	r.attempts[attempt.AttemptID] = cloneAttempt(*attempt)
	return nil
}

func (r *fakeAttemptRepo) UpdateState(attempt *model.TestAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	stored, ok := r.attempts[attempt.AttemptID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.State = attempt.State
	stored.SubmittedAt = cloneTimePtr(attempt.SubmittedAt)
	stored.SubmitReason = cloneStringPtr(attempt.SubmitReason)
	stored.CurrentSection = attempt.CurrentSection
	stored.SectionClocks = append([]model.SectionClock(nil), attempt.SectionClocks...)
	stored.EnteredSectionAt = cloneTimePtr(attempt.EnteredSectionAt)
	stored.PausedAt = cloneTimePtr(attempt.PausedAt)
	r.attempts[attempt.AttemptID] = stored
	return nil
}

func (r *fakeAttemptRepo) FindByAttemptID(attemptID string) (*model.TestAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.attempts[attemptID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	attempt := cloneAttempt(stored)
	return &attempt, nil
}

func (r *fakeAttemptRepo) FindByAttemptIDWithAnswers(attemptID string) (*model.TestAttempt, error) {
	attempt, err := r.FindByAttemptID(attemptID)
	if err != nil {
		return nil, err
	}
	attempt.Answers, _ = r.answers.FindByAttempt(attempt.ID)
	return attempt, nil
}

func (r *fakeAttemptRepo) FindByStudentAndSnapshot(studentID, snapshotID string) ([]model.TestAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.TestAttempt
	for _, a := range r.attempts {
		if a.StudentID == studentID && a.SnapshotID == snapshotID {
			out = append(out, cloneAttempt(a))
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) FindAllBySnapshot(snapshotID string, states []string) ([]model.TestAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wanted := make(map[string]bool, len(states))
	for _, s := range states {
		wanted[s] = true
	}
	var out []model.TestAttempt
	for id := uint(1); id <= r.nextID; id++ { // stable creation order
		for _, a := range r.attempts {
			if a.ID != id || a.SnapshotID != snapshotID {
				continue
			}
			if len(states) == 0 || wanted[a.State] {
				out = append(out, cloneAttempt(a))
			}
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) FindOpen() ([]model.TestAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.TestAttempt
	for _, a := range r.attempts {
		if a.State == model.AttemptInProgress || a.State == model.AttemptPaused {
			out = append(out, cloneAttempt(a))
		}
	}
	return out, nil
}

type fakeBreakdownRepo struct {
	mu         sync.RWMutex
	breakdowns []model.ScoreBreakdown
}

func newFakeBreakdownRepo() *fakeBreakdownRepo {
	return &fakeBreakdownRepo{}
}

func (r *fakeBreakdownRepo) Create(breakdown *model.ScoreBreakdown) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	breakdown.ID = uint(len(r.breakdowns) + 1)
	r.breakdowns = append(r.breakdowns, *breakdown)
	return nil
}

func (r *fakeBreakdownRepo) Latest(testAttemptID uint) (*model.ScoreBreakdown, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *model.ScoreBreakdown
	for i := range r.breakdowns {
		b := r.breakdowns[i]
		if b.TestAttemptID != testAttemptID {
			continue
		}
		if latest == nil || b.Revision > latest.Revision {
			latest = &b
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (r *fakeBreakdownRepo) FindAllRevisions(testAttemptID uint) ([]model.ScoreBreakdown, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.ScoreBreakdown
	for rev := 1; ; rev++ {
		found := false
		for _, b := range r.breakdowns {
			if b.TestAttemptID == testAttemptID && b.Revision == rev {
				out = append(out, b)
				found = true
			}
		}
		if !found {
			return out, nil
		}
	}
}

func (r *fakeBreakdownRepo) LatestForAttempts(testAttemptIDs []uint) ([]model.ScoreBreakdown, error) {
	var out []model.ScoreBreakdown
	for _, id := range testAttemptIDs {
		if b, err := r.Latest(id); err == nil {
			out = append(out, *b)
		}
	}
	return out, nil
}

func cloneAttempt(a model.TestAttempt) model.TestAttempt {
	a.SectionClocks = append([]model.SectionClock(nil), a.SectionClocks...)
	a.SubmittedAt = cloneTimePtr(a.SubmittedAt)
	a.SubmitReason = cloneStringPtr(a.SubmitReason)
	a.EnteredSectionAt = cloneTimePtr(a.EnteredSectionAt)
	a.PausedAt = cloneTimePtr(a.PausedAt)
	a.Answers = nil
	return a
}

func cloneRecord(rec model.AnswerRecord) model.AnswerRecord {
	rec.Selected = append([]string(nil), rec.Selected...)
	return rec
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
