package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "kream_tracker/internal/lib/logger"
	"kream_tracker/internal/storage"
	"kream_tracker/internal/sweep"

	"github.com/robfig/cron/v3"
)

type SweepRunner interface {
	Run(ctx context.Context) (sweep.Summary, error)
}

// Scheduler запускает sweep по cron-выражению внутри процесса.
// Основной механизм — внешний триггер через HTTP; внутренний cron
// включается конфигом для standalone-развёртываний.
type Scheduler struct {
	log     *slog.Logger
	sweeper SweepRunner
	cron    *cron.Cron
	expr    string
}

func New(log *slog.Logger, sweeper SweepRunner, expr string) *Scheduler {
	return &Scheduler{
		log:     log,
		sweeper: sweeper,
		cron:    cron.New(),
		expr:    expr,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	const op = "scheduler.Start"

	if s.expr == "" {
		s.log.Info("no sweep schedule configured, waiting for external triggers")
		return nil
	}

	_, err := s.cron.AddFunc(s.expr, func() {
		summary, err := s.sweeper.Run(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrSweepInProgress) {
				s.log.Info("scheduled sweep skipped, previous one still running")
				return
			}

			s.log.Error("scheduled sweep failed", sl.Err(err))
			return
		}

		s.log.Info("scheduled sweep completed",
			slog.Int("processed", summary.Processed),
			slog.Int("alerts_triggered", summary.AlertsTriggered),
		)
	})
	if err != nil {
		return fmt.Errorf("%s: invalid cron expression: %w", op, err)
	}

	s.log.Info("starting sweep schedule", slog.String("cron", s.expr))
	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
