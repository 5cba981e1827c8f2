package revalidate

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// InProcessScheduler runs scheduled analyses on goroutines after their delay
// hint. It stands in for an external task queue in single-process
// deployments; delivery is at-least-once from the analyzer's point of view.
type InProcessScheduler struct {
	analyzer *Analyzer
	sem      chan struct{}
	wg       sync.WaitGroup
}

// NewInProcessScheduler creates a scheduler running at most maxConcurrent
// analyses at a time.
func NewInProcessScheduler(analyzer *Analyzer, maxConcurrent int) *InProcessScheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &InProcessScheduler{
		analyzer: analyzer,
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// ScheduleAnalysis queues a full analysis of the claim after the delay hint.
// The analysis runs detached from the caller's context deadline.
func (s *InProcessScheduler) ScheduleAnalysis(_ context.Context, claimID string, delay time.Duration) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if delay > 0 {
			time.Sleep(delay)
		}
		s.sem <- struct{}{}
		defer func() { <-s.sem }()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := s.analyzer.Analyze(ctx, claimID); err != nil {
			slog.Error("Scheduled analysis failed", "claim_id", claimID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until all queued analyses have finished. Used on shutdown and
// in tests.
func (s *InProcessScheduler) Wait() {
	s.wg.Wait()
}
