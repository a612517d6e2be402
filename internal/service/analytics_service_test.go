package service

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/prepmint/examengine/internal/model"
)

func TestAttemptReport(t *testing.T) {
	t.Run("accuracy rollups and topic classification", func(t *testing.T) {
		e := newJEEEngine(model.NavigationFreeRoam)
		attempt := startAttempt(t, e)

		answer := func(questionID string, selected []string, review bool, seconds int64) {
			e.clk.Advance(time.Second)
			_, err := e.service.RecordAnswer(attempt.AttemptID, questionID, selected, review, seconds)
			mustNoErr(t, err)
		}
		answer("q1", []string{"a"}, false, 40) // correct
		answer("q2", []string{"d"}, true, 90)  // incorrect, flagged
		answer("q3", []string{"c"}, false, 25) // correct
		// q4 untouched
		_, err := e.service.Submit(attempt.AttemptID, model.SubmitManual)
		mustNoErr(t, err)

		report, err := e.analytics.AttemptReport(attempt.AttemptID)
		mustNoErr(t, err)

		wantFloat(t, "total score", report.TotalScore, 7) // 4 - 1 + 4
		wantFloat(t, "max score", report.MaxScore, 16)
		wantInt(t, "review flagged", report.ReviewFlagged, 1)
		wantInt(t, "time per question rows", len(report.TimePerQuestion), 3)

		mathAcc := report.SubjectAccuracy["math"]
		wantInt(t, "math total", mathAcc.Total, 2)
		wantInt(t, "math attempted", mathAcc.Attempted, 2)
		wantFloat(t, "math accuracy", mathAcc.Accuracy, 0.5)

		physicsAcc := report.SubjectAccuracy["physics"]
		wantInt(t, "physics attempted", physicsAcc.Attempted, 1)
		wantFloat(t, "physics accuracy", physicsAcc.Accuracy, 1)

		hardAcc := report.DifficultyAccuracy[model.DifficultyHard]
		wantInt(t, "hard attempted", hardAcc.Attempted, 0)

		if want := []string{"algebra", "optics"}; !reflect.DeepEqual(report.Strengths, want) {
			t.Errorf("strengths = %v, want %v", report.Strengths, want)
		}
		if want := []string{"calculus"}; !reflect.DeepEqual(report.Weaknesses, want) {
			t.Errorf("weaknesses = %v, want %v", report.Weaknesses, want)
		}
	})

	t.Run("report requires a scored attempt", func(t *testing.T) {
		e := newJEEEngine(model.NavigationFreeRoam)
		attempt := startAttempt(t, e)

		_, err := e.analytics.AttemptReport(attempt.AttemptID)
		wantErr(t, err, ErrInvalidState)
	})

	t.Run("unknown attempt", func(t *testing.T) {
		e := newJEEEngine(model.NavigationFreeRoam)
		_, err := e.analytics.AttemptReport("attempt-missing")
		wantErr(t, err, ErrNotFound)
	})
}

func TestCohortReport(t *testing.T) {
	// Four students on the flat +4/-1 paper: 40, 32, 15 and 0 points.
	buildCohort := func(t *testing.T) (*engine, map[string]string) {
		t.Helper()
		questions, def := tenQuestionBank()
		e := newEngine(def, questions...)

		allIDs := []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9", "q10"}
		byStudent := map[string]string{}
		plans := []struct {
			student string
			correct int
			wrong   int
		}{
			{"ace", 10, 0},     // 40
			{"solid", 8, 0},    // 32
			{"coinflip", 5, 5}, // 15
			{"blank", 0, 0},    // 0
		}
		for _, plan := range plans {
			attempt, err := e.service.Start(plan.student, testSnapshotID)
			mustNoErr(t, err)
			for i := 0; i < plan.correct; i++ {
				e.clk.Advance(time.Second)
				_, err := e.service.RecordAnswer(attempt.AttemptID, allIDs[i], []string{"a"}, false, 1)
				mustNoErr(t, err)
			}
			for i := 0; i < plan.wrong; i++ {
				e.clk.Advance(time.Second)
				_, err := e.service.RecordAnswer(attempt.AttemptID, allIDs[plan.correct+i], []string{"b"}, false, 1)
				mustNoErr(t, err)
			}
			_, err = e.service.Submit(attempt.AttemptID, model.SubmitManual)
			mustNoErr(t, err)
			byStudent[plan.student] = attempt.AttemptID
		}
		return e, byStudent
	}

	t.Run("cohort statistics", func(t *testing.T) {
		e, _ := buildCohort(t)

		report, err := e.analytics.CohortReport(testSnapshotID, nil)
		mustNoErr(t, err)

		wantInt(t, "attempt count", report.AttemptCount, 4)
		wantFloat(t, "mean", report.Mean, 21.75)
		wantFloat(t, "median", report.Median, 23.5)
		wantFloat(t, "stddev", report.StdDev, math.Sqrt(239.1875))
		if report.Percentile != nil {
			t.Errorf("percentile without a target attempt = %v", *report.Percentile)
		}
	})

	t.Run("percentile counts scores strictly below", func(t *testing.T) {
		e, byStudent := buildCohort(t)

		for student, want := range map[string]float64{
			"ace":      75,
			"solid":    50,
			"coinflip": 25,
			"blank":    0,
		} {
			attemptID := byStudent[student]
			report, err := e.analytics.CohortReport(testSnapshotID, &attemptID)
			mustNoErr(t, err)
			if report.Percentile == nil {
				t.Fatalf("%s: missing percentile", student)
			}
			wantFloat(t, student+" percentile", *report.Percentile, want)
		}
	})

	t.Run("target attempt outside the cohort", func(t *testing.T) {
		e, _ := buildCohort(t)

		missing := "attempt-missing"
		_, err := e.analytics.CohortReport(testSnapshotID, &missing)
		wantErr(t, err, ErrNotFound)
	})

	t.Run("empty cohort", func(t *testing.T) {
		questions, def := tenQuestionBank()
		e := newEngine(def, questions...)

		report, err := e.analytics.CohortReport(testSnapshotID, nil)
		mustNoErr(t, err)
		wantInt(t, "attempt count", report.AttemptCount, 0)
		wantFloat(t, "mean", report.Mean, 0)
	})

	t.Run("unknown snapshot", func(t *testing.T) {
		questions, def := tenQuestionBank()
		e := newEngine(def, questions...)

		_, err := e.analytics.CohortReport("snap-missing", nil)
		wantErr(t, err, ErrNotFound)
	})
}

func TestStatHelpers(t *testing.T) {
	t.Run("median of an even-sized cohort", func(t *testing.T) {
		wantFloat(t, "median", median([]float64{4, 1, 3, 2}), 2.5)
	})
	t.Run("median of an odd-sized cohort", func(t *testing.T) {
		wantFloat(t, "median", median([]float64{9, 1, 5}), 5)
	})
	t.Run("stddev needs at least two values", func(t *testing.T) {
		wantFloat(t, "stddev", stddev([]float64{42}), 0)
	})
	t.Run("population stddev", func(t *testing.T) {
		wantFloat(t, "stddev", stddev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 2)
	})
	t.Run("percentile of the top score", func(t *testing.T) {
		wantFloat(t, "percentile", percentile([]float64{10, 20, 30, 40}, 40), 75)
	})
	t.Run("percentile ignores ties above", func(t *testing.T) {
		wantFloat(t, "percentile", percentile([]float64{10, 10, 20}, 10), 0)
	})
}
