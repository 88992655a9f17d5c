// Package sched runs the digest broadcasts on cron schedules.
package sched

import (
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron   *cron.Cron
	logger log.Logger
}

// New builds a scheduler in the given timezone. Schedules use the standard
// five-field cron syntax.
func New(tz string, logger log.Logger) (*Scheduler, error) {
	loc := time.Local
	if tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, err
		}
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		logger: logger,
	}, nil
}

// Add registers a named job. A panicking job is logged and does not take the
// scheduler down.
func (s *Scheduler) Add(spec, name string, job func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Any("panic", rec).Str("job", name).Msg("scheduled job panicked")
			}
		}()
		start := time.Now()
		s.logger.Info().Str("job", name).Msg("job started")
		job()
		s.logger.Info().Str("job", name).Dur("elapsed", time.Since(start)).Msg("job finished")
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
