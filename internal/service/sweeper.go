package service

import (
	"context"
	"time"

	"github.com/prepmint/examengine/internal/model"
	"github.com/prepmint/examengine/internal/repository"
	"github.com/rs/zerolog/log"
)

// DeadlineSweeper is the external scheduler role: the state machine never
// runs timers of its own, so something has to read TimeRemaining and call
// Submit when it hits zero. One sweep goroutine covers every open attempt.
type DeadlineSweeper struct {
	attemptRepo repository.AttemptRepository
	attempts    AttemptService
	interval    time.Duration
}

func NewDeadlineSweeper(attemptRepo repository.AttemptRepository, attempts AttemptService, interval time.Duration) *DeadlineSweeper {
	return &DeadlineSweeper{attemptRepo: attemptRepo, attempts: attempts, interval: interval}
}

// Run ticks until the context is cancelled.
func (s *DeadlineSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Info().Dur("interval", s.interval).Msg("Deadline sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Deadline sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(); err != nil {
				log.Error().Err(err).Msg("Deadline sweep failed")
			}
		}
	}
}

// SweepOnce checks every open attempt and enforces expired deadlines:
// a spent total limit submits the attempt; a spent sectional limit advances
// a sectional-lock attempt to the next section, or submits when it was the
// last one. Paused attempts have frozen clocks and are skipped by the zero
// checks naturally only if time remains; an exhausted paused attempt is
// still closed.
func (s *DeadlineSweeper) SweepOnce() (int, error) {
	open, err := s.attemptRepo.FindOpen()
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, attempt := range open {
		remaining, err := s.attempts.TimeRemaining(attempt.AttemptID)
		if err != nil {
			log.Error().Err(err).Str("attemptID", attempt.AttemptID).Msg("Sweep: timeRemaining failed")
			continue
		}

		switch {
		case remaining.OverallSec <= 0:
			if _, err := s.attempts.Submit(attempt.AttemptID, model.SubmitTotalTimeout); err != nil {
				log.Error().Err(err).Str("attemptID", attempt.AttemptID).Msg("Sweep: total-timeout submit failed")
				continue
			}
			closed++
		case remaining.SectionSec != nil && *remaining.SectionSec <= 0 && remaining.State == model.AttemptInProgress:
			if remaining.SectionHasNext {
				if _, err := s.attempts.Navigate(attempt.AttemptID, remaining.SectionIndex+1); err != nil {
					log.Error().Err(err).Str("attemptID", attempt.AttemptID).Msg("Sweep: section advance failed")
				}
				continue
			}
			if _, err := s.attempts.Submit(attempt.AttemptID, model.SubmitSectionTimeout); err != nil {
				log.Error().Err(err).Str("attemptID", attempt.AttemptID).Msg("Sweep: section-timeout submit failed")
				continue
			}
			closed++
		}
	}
	return closed, nil
}
