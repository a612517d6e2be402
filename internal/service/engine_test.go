package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prepmint/examengine/internal/clock"
	"github.com/prepmint/examengine/internal/model"
	"gorm.io/datatypes"
)

const testSnapshotID = "snap-001"

var testStart = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// engine wires the services over in-memory fakes with a hand-advanced
// clock, so every timing scenario is deterministic.
type engine struct {
	clk        *clock.Manual
	questions  *fakeQuestionRepo
	snapshots  *fakeSnapshotRepo
	answers    *fakeAnswerRepo
	attempts   *fakeAttemptRepo
	breakdowns *fakeBreakdownRepo

	scoring   ScoringService
	service   AttemptService
	analytics AnalyticsService
}

func newEngine(def model.SnapshotDefinition, questions ...model.Question) *engine {
	e := &engine{
		clk:        clock.NewManual(testStart),
		questions:  newFakeQuestionRepo(questions...),
		breakdowns: newFakeBreakdownRepo(),
		answers:    newFakeAnswerRepo(),
	}
	e.attempts = newFakeAttemptRepo(e.answers)
	e.snapshots = newFakeSnapshotRepo(model.InterfaceSnapshot{
		SnapshotID: testSnapshotID,
		TemplateID: 1,
		Version:    1,
		Definition: datatypes.NewJSONType(def),
	})
	e.scoring = NewScoringService(e.attempts, e.snapshots, e.questions, e.breakdowns, e.clk)
	e.service = NewAttemptService(e.attempts, e.answers, e.snapshots, e.scoring, e.clk)
	e.analytics = NewAnalyticsService(e.attempts, e.snapshots, e.questions, e.breakdowns, e.clk)
	return e
}

// question builds a single-correct MCQ with four options a..d.
func question(id, subject, topic, difficulty, key string, correct, incorrect float64) model.Question {
	return model.Question{
		QuestionID: id,
		Subject:    subject,
		Topic:      topic,
		Difficulty: difficulty,
		Prompt:     "prompt for " + id,
		Options: []model.Option{
			{ID: "a", Text: "A"}, {ID: "b", Text: "B"},
			{ID: "c", Text: "C"}, {ID: "d", Text: "D"},
		},
		CorrectKeys:    []string{key},
		MarksCorrect:   correct,
		MarksIncorrect: incorrect,
		PartialCredit:  model.PartialAllOrNothing,
	}
}

func multiQuestion(id string, keys []string, correct, incorrect float64, partial string) model.Question {
	q := question(id, "physics", "optics", model.DifficultyHard, "", correct, incorrect)
	q.CorrectKeys = keys
	q.PartialCredit = partial
	return q
}

func intPtr(v int) *int { return &v }

// jeeDef is a two-section snapshot with a 30 minute total limit; section 0
// carries its own 10 minute limit.
func jeeDef(navigation string, questionIDs [][]string) model.SnapshotDefinition {
	def := model.SnapshotDefinition{
		Title:             "Mock Test",
		TotalTimeLimitSec: 1800,
		Navigation:        navigation,
		AllowPause:        true,
	}
	for i, ids := range questionIDs {
		section := model.SectionDef{Name: "Section " + string(rune('A'+i)), QuestionIDs: ids}
		if i == 0 {
			section.TimeLimitSec = intPtr(600)
		}
		def.Sections = append(def.Sections, section)
	}
	return def
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func wantErr(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("got error %v, want %v", err, kind)
	}
}

func wantFloat(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func wantInt(t *testing.T, name string, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %d, want %d", name, got, want)
	}
}
