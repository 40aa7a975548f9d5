// Package scheduler runs periodic background jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// BookLister lists every catalog book.
type BookLister interface {
	ListBooksByID(ctx context.Context) ([]entities.Book, error)
}

// CoverFetcher downloads covers that are not cached yet.
type CoverFetcher interface {
	Exists(isbn string) bool
	FetchAndCache(ctx context.Context, isbn string)
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Books   int // books in the catalog
	Missing int // distinct ISBNs without a cached cover before the sweep
	Fetched int // of those, how many are cached after it
}

// CoverSweepScheduler periodically downloads the covers of every book whose
// cover is missing, e.g. because the last listing's download failed.
type CoverSweepScheduler struct {
	books   BookLister
	fetcher CoverFetcher
	logger  *zap.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewCoverSweepScheduler creates a new scheduler instance
func NewCoverSweepScheduler(books BookLister, fetcher CoverFetcher, logger *zap.Logger) *CoverSweepScheduler {
	return &CoverSweepScheduler{
		books:   books,
		fetcher: fetcher,
		logger:  logger.Named("cover-sweep"),
		cron:    cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// ValidateSchedule checks a standard five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := cron.ParseStandard(schedule)
	return err
}

// Start registers the sweep under schedule and starts the cron loop. The
// scheduler stops by itself when ctx is cancelled.
func (s *CoverSweepScheduler) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.run(cancelCtx)
	})
	if err != nil {
		s.cancelFunc()
		return fmt.Errorf("failed to schedule cover sweep: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	s.logger.Info("Cover sweep scheduler started",
		zap.String("schedule", schedule),
		zap.Timep("next_run", s.nextRunLocked()),
	)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running sweep to finish and stops the scheduler.
func (s *CoverSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	s.logger.Info("Cover sweep scheduler stopped")
}

// IsRunning returns whether the scheduler is active
func (s *CoverSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next sweep will occur
func (s *CoverSweepScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRunLocked()
}

func (s *CoverSweepScheduler) nextRunLocked() *time.Time {
	if !s.isRunning {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() || entry.Next.IsZero() {
		return nil
	}
	t := entry.Next
	return &t
}

func (s *CoverSweepScheduler) run(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("Cover sweep failed", zap.Error(err))
	}
}

// Sweep downloads, one at a time, every missing cover of the catalog.
// Only listing the books can fail; download failures are logged by the fetcher.
func (s *CoverSweepScheduler) Sweep(ctx context.Context) (SweepResult, error) {
	list, err := s.books.ListBooksByID(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list books: %w", err)
	}

	result := SweepResult{Books: len(list)}
	seen := make(map[string]struct{}, len(list))
	start := time.Now()

	for _, book := range list {
		if ctx.Err() != nil {
			break
		}
		isbn := covers.NormalizeISBN(book.ISBN)
		if isbn == "" {
			continue
		}
		if _, dup := seen[isbn]; dup {
			continue
		}
		seen[isbn] = struct{}{}
		if s.fetcher.Exists(isbn) {
			continue
		}

		result.Missing++
		s.fetcher.FetchAndCache(ctx, isbn)
		if s.fetcher.Exists(isbn) {
			result.Fetched++
		}
	}

	s.logger.Info("Cover sweep finished",
		zap.Int("books", result.Books),
		zap.Int("missing", result.Missing),
		zap.Int("fetched", result.Fetched),
		zap.Duration("took", time.Since(start)),
	)
	return result, ctx.Err()
}
