package service

import (
	"testing"
	"time"

	"github.com/prepmint/examengine/internal/model"
)

func newSweeper(e *engine) *DeadlineSweeper {
	return NewDeadlineSweeper(e.attempts, e.service, time.Second)
}

func TestSweepOnce(t *testing.T) {
	t.Run("expired total limit submits the attempt", func(t *testing.T) {
		e := newJEEEngine(model.NavigationFreeRoam)
		attempt := startAttempt(t, e)

		e.clk.Advance(31 * time.Minute)
		closed, err := newSweeper(e).SweepOnce()
		mustNoErr(t, err)
		wantInt(t, "closed", closed, 1)

		swept, err := e.service.Get(attempt.AttemptID)
		mustNoErr(t, err)
		if swept.State != model.AttemptScored {
			t.Errorf("state = %s, want %s", swept.State, model.AttemptScored)
		}
		if swept.SubmitReason == nil || *swept.SubmitReason != model.SubmitTotalTimeout {
			t.Errorf("submit reason = %v, want %s", swept.SubmitReason, model.SubmitTotalTimeout)
		}
	})

	t.Run("expired section advances to the next one", func(t *testing.T) {
		e := newJEEEngine(model.NavigationSectionalLock)
		attempt := startAttempt(t, e)

		e.clk.Advance(11 * time.Minute) // past section 0's 10 minute limit
		closed, err := newSweeper(e).SweepOnce()
		mustNoErr(t, err)
		wantInt(t, "closed", closed, 0)

		swept, err := e.service.Get(attempt.AttemptID)
		mustNoErr(t, err)
		wantInt(t, "current section", swept.CurrentSection, 1)
		if !swept.SectionClocks[0].Locked {
			t.Error("expired section should be locked")
		}
		if swept.SectionClocks[0].ElapsedSec != 600 {
			t.Errorf("section 0 elapsed = %d, want capped 600", swept.SectionClocks[0].ElapsedSec)
		}
	})

	t.Run("expired final section submits with section-timeout", func(t *testing.T) {
		def := model.SnapshotDefinition{
			Title:             "One Section",
			Sections:          []model.SectionDef{{Name: "Only", QuestionIDs: []string{"q1"}, TimeLimitSec: intPtr(600)}},
			TotalTimeLimitSec: 1800,
			Navigation:        model.NavigationSectionalLock,
		}
		e := newEngine(def, question("q1", "math", "algebra", model.DifficultyEasy, "a", 4, -1))
		attempt := startAttempt(t, e)

		e.clk.Advance(11 * time.Minute)
		closed, err := newSweeper(e).SweepOnce()
		mustNoErr(t, err)
		wantInt(t, "closed", closed, 1)

		swept, err := e.service.Get(attempt.AttemptID)
		mustNoErr(t, err)
		if swept.SubmitReason == nil || *swept.SubmitReason != model.SubmitSectionTimeout {
			t.Errorf("submit reason = %v, want %s", swept.SubmitReason, model.SubmitSectionTimeout)
		}
	})

	t.Run("live attempts are left alone", func(t *testing.T) {
		e := newJEEEngine(model.NavigationFreeRoam)
		attempt := startAttempt(t, e)

		e.clk.Advance(time.Minute)
		closed, err := newSweeper(e).SweepOnce()
		mustNoErr(t, err)
		wantInt(t, "closed", closed, 0)

		swept, err := e.service.Get(attempt.AttemptID)
		mustNoErr(t, err)
		if swept.State != model.AttemptInProgress {
			t.Errorf("state = %s, want %s", swept.State, model.AttemptInProgress)
		}
	})

	t.Run("paused attempt with time left survives the sweep", func(t *testing.T) {
		e := newJEEEngine(model.NavigationFreeRoam)
		attempt := startAttempt(t, e)
		_, err := e.service.Pause(attempt.AttemptID)
		mustNoErr(t, err)

		// Clocks are frozen; a long break must not close it.
		e.clk.Advance(2 * time.Hour)
		closed, err := newSweeper(e).SweepOnce()
		mustNoErr(t, err)
		wantInt(t, "closed", closed, 0)

		swept, err := e.service.Get(attempt.AttemptID)
		mustNoErr(t, err)
		if swept.State != model.AttemptPaused {
			t.Errorf("state = %s, want %s", swept.State, model.AttemptPaused)
		}
	})

	t.Run("exhausted paused attempt is still closed", func(t *testing.T) {
		def := model.SnapshotDefinition{
			Title:             "No Section Limits",
			Sections:          []model.SectionDef{{Name: "Only", QuestionIDs: []string{"q1"}}},
			TotalTimeLimitSec: 1800,
			Navigation:        model.NavigationFreeRoam,
			AllowPause:        true,
		}
		e := newEngine(def, question("q1", "math", "algebra", model.DifficultyEasy, "a", 4, -1))
		attempt := startAttempt(t, e)

		e.clk.Advance(30 * time.Minute) // burn the whole allotment
		_, err := e.service.Pause(attempt.AttemptID)
		mustNoErr(t, err)

		closed, err := newSweeper(e).SweepOnce()
		mustNoErr(t, err)
		wantInt(t, "closed", closed, 1)

		swept, err := e.service.Get(attempt.AttemptID)
		mustNoErr(t, err)
		if !swept.Closed() {
			t.Errorf("state = %s, want closed", swept.State)
		}
	})
}
