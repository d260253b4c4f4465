package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"library-lending/internal/logging"
	"library-lending/library"
)

// Library is what a sweep needs from the lending store.
type Library interface {
	Reconcile(ctx context.Context) (int64, error)
	Overdue(ctx context.Context) ([]*library.LendingRecord, error)
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Repaired int64
	Overdue  []*library.LendingRecord
}

// OverdueSweeper periodically repairs availability flags and reports loans
// that are past due.
type OverdueSweeper struct {
	lib      Library
	log      logging.Logger
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.Mutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewOverdueSweeper(lib Library, schedule string, log logging.Logger) *OverdueSweeper {
	if log == nil {
		log = logging.Nop()
	}
	return &OverdueSweeper{
		lib:      lib,
		log:      log.With("component", "overdue_sweep"),
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
	}
}

// ValidateSchedule reports whether schedule is a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := cron.ParseStandard(schedule)
	return err
}

// Start registers the sweep and starts the cron loop. It stops on its own
// when ctx is cancelled.
func (s *OverdueSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	var jobCtx context.Context
	jobCtx, s.cancelFunc = context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(jobCtx); err != nil {
			s.log.Error(jobCtx, "overdue sweep failed", "error", err)
		}
	})
	if err != nil {
		s.cancelFunc()
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	s.log.Info(ctx, "overdue sweep scheduled", "schedule", s.schedule, "next_run", s.cron.Entry(entryID).Next)

	go func() {
		<-jobCtx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for a running sweep to finish and stops the scheduler.
func (s *OverdueSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.cancelFunc()

	s.isRunning = false
	s.cancelFunc = nil
	s.log.Info(context.Background(), "overdue sweep stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *OverdueSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunOnce performs a single sweep immediately.
func (s *OverdueSweeper) RunOnce(ctx context.Context) (*SweepResult, error) {
	repaired, err := s.lib.Reconcile(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile availability: %w", err)
	}

	overdue, err := s.lib.Overdue(ctx)
	if err != nil {
		return nil, fmt.Errorf("list overdue: %w", err)
	}
	for _, r := range overdue {
		s.log.Warn(ctx, "lending overdue",
			"lending_id", r.ID, "book_id", r.BookID, "user_id", r.UserID, "due_date", r.DueDate)
	}

	s.log.Info(ctx, "overdue sweep finished", "repaired", repaired, "overdue", len(overdue))
	return &SweepResult{Repaired: repaired, Overdue: overdue}, nil
}
