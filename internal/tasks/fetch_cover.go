package tasks

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/bookshelf/internal/covers"
)

// FetchCoverTask downloads the cover of one ISBN if it is not cached yet.
type FetchCoverTask struct {
	ISBN string `json:"isbn"`
}

// Config returns the queue configuration for cover downloads. A failed
// download is not retried; the next listing schedules it again.
func (t FetchCoverTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "fetch_cover",
		MaxAttempts: 1,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: true,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// FetchCoverProcessor creates a processor function for FetchCoverTask.
// The fetcher logs its own failures, so the task itself always succeeds.
func FetchCoverProcessor(fetcher *covers.Fetcher) backlite.QueueProcessor[FetchCoverTask] {
	return func(ctx context.Context, task FetchCoverTask) error {
		fetcher.FetchAndCache(ctx, task.ISBN)
		return nil
	}
}

// NewFetchCoverQueue creates a backlite queue for cover downloads.
func NewFetchCoverQueue(fetcher *covers.Fetcher) backlite.Queue {
	return backlite.NewQueue(FetchCoverProcessor(fetcher))
}

// CoverScheduler schedules cover downloads through the task queue instead of
// in-process goroutines, so pending downloads survive a restart.
type CoverScheduler struct {
	client  *Client
	fetcher *covers.Fetcher
	logger  *zap.Logger
}

func NewCoverScheduler(client *Client, fetcher *covers.Fetcher, logger *zap.Logger) *CoverScheduler {
	return &CoverScheduler{
		client:  client,
		fetcher: fetcher,
		logger:  logger.Named("tasks"),
	}
}

// Schedule enqueues a task per uncached ISBN. Enqueueing happens in the
// background; the caller never waits on the queue database.
func (s *CoverScheduler) Schedule(isbns ...string) {
	seen := make(map[string]struct{}, len(isbns))
	pending := make([]backlite.Task, 0, len(isbns))
	for _, isbn := range isbns {
		key := covers.NormalizeISBN(isbn)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if s.fetcher.Exists(key) {
			continue
		}
		pending = append(pending, FetchCoverTask{ISBN: key})
	}
	if len(pending) == 0 {
		return
	}

	go func() {
		if _, err := s.client.Add(pending...).Save(); err != nil {
			s.logger.Warn("Failed to enqueue cover downloads", zap.Int("count", len(pending)), zap.Error(err))
		}
	}()
}
