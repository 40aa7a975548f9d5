package covers

import (
	"context"
	"sync"
)

// AsyncScheduler runs cover fetches in background goroutines. Schedule never
// blocks the caller; at most concurrency fetches are in flight at once.
type AsyncScheduler struct {
	fetcher *Fetcher
	sem     chan struct{}
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func NewAsyncScheduler(fetcher *Fetcher, concurrency int) *AsyncScheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncScheduler{
		fetcher: fetcher,
		sem:     make(chan struct{}, concurrency),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Schedule queues a fetch for every ISBN whose cover is not cached yet.
// Duplicates within one call are fetched once.
func (s *AsyncScheduler) Schedule(isbns ...string) {
	seen := make(map[string]struct{}, len(isbns))
	for _, isbn := range isbns {
		key := NormalizeISBN(isbn)
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

		s.wg.Add(1)
		go func(isbn string) {
			defer s.wg.Done()
			select {
			case s.sem <- struct{}{}:
			case <-s.ctx.Done():
				return
			}
			defer func() { <-s.sem }()
			s.fetcher.FetchAndCache(s.ctx, isbn)
		}(key)
	}
}

// Wait blocks until every scheduled fetch has finished.
func (s *AsyncScheduler) Wait() {
	s.wg.Wait()
}

// Stop waits for in-flight fetches until ctx is done, then aborts the rest.
func (s *AsyncScheduler) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
