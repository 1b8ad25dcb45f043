package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SandLosT/Attendant/internal/agenda"

	"github.com/robfig/cron/v3"
)

// Sweeper drops expired dedup entries. Only the in-memory cache needs it.
type Sweeper interface {
	Sweep() int
}

// SlotGenerator keeps the agenda horizon filled.
type SlotGenerator interface {
	GenerateSlots(ctx context.Context, from string, days, capacity int) (agenda.GenerateResult, error)
}

type Config struct {
	GenerateSchedule string
	SweepSchedule    string
	Location         *time.Location
	// JobTimeout bounds a single run.
	JobTimeout time.Duration
}

// Scheduler runs the maintenance jobs on cron schedules.
type Scheduler struct {
	cron      *cron.Cron
	cfg       Config
	log       *slog.Logger
	sweeper   Sweeper
	generator SlotGenerator
}

func New(cfg Config, generator SlotGenerator, sweeper Sweeper, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:      cron.New(cron.WithParser(parser), cron.WithLocation(cfg.Location)),
		cfg:       cfg,
		log:       log.With(slog.String("service", "jobs")),
		sweeper:   sweeper,
		generator: generator,
	}
}

// Start registers the configured jobs and starts the cron loop.
// A job with an empty schedule or no collaborator is skipped.
func (s *Scheduler) Start() error {
	if s.generator != nil && s.cfg.GenerateSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.GenerateSchedule, s.runGenerate); err != nil {
			return errors.Join(errors.New("jobs: generate schedule"), err)
		}
	}
	if s.sweeper != nil && s.cfg.SweepSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.runSweep); err != nil {
			return errors.Join(errors.New("jobs: sweep schedule"), err)
		}
	}
	s.cron.Start()
	s.log.Info("cron scheduler started", "jobs", len(s.cron.Entries()), "timezone", s.cfg.Location.String())
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("cron scheduler stopped")
}

// GenerateNow extends the slot horizon with the default window.
func (s *Scheduler) GenerateNow(ctx context.Context) (agenda.GenerateResult, error) {
	if s.generator == nil {
		return agenda.GenerateResult{}, nil
	}
	return s.generator.GenerateSlots(ctx, "", 0, 0)
}

func (s *Scheduler) runGenerate() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	res, err := s.GenerateNow(ctx)
	if err != nil {
		s.log.Error("slot generation failed", "err", err)
		return
	}
	s.log.Info("slot generation completed", "created", res.Created, "existing", res.Existing)
}

func (s *Scheduler) runSweep() {
	if n := s.sweeper.Sweep(); n > 0 {
		s.log.Debug("dedup entries swept", "removed", n)
	}
}
