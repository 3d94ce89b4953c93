package worker

import (
	"context"
	"log"
	"time"

	"anoa.com/ctfarena/internal/repository"
	"anoa.com/ctfarena/internal/service"
)

// FlushWorker drains the durable buffers into the authoritative tables.
// One batch per guard acquisition; delivery is at-least-once and replays
// are inert, so a crash between commit and buffer cleanup is safe.
type FlushWorker struct {
	bufferRepo  repository.BufferRepository
	ledgerRepo  repository.LedgerRepository
	leaderboard service.LeaderboardService
	guard       *service.Guard

	pollInterval time.Duration
	retryBackoff time.Duration
}

func NewFlushWorker(bufferRepo repository.BufferRepository, ledgerRepo repository.LedgerRepository, leaderboard service.LeaderboardService, guard *service.Guard, pollInterval, retryBackoff time.Duration) *FlushWorker {
	return &FlushWorker{
		bufferRepo:   bufferRepo,
		ledgerRepo:   ledgerRepo,
		leaderboard:  leaderboard,
		guard:        guard,
		pollInterval: pollInterval,
		retryBackoff: retryBackoff,
	}
}

// Run loops until ctx is cancelled. Errors are logged and retried on
// the next cycle, never fatal.
func (w *FlushWorker) Run(ctx context.Context) {
	log.Println("🚀 Flush worker started")

	for {
		pending, err := w.bufferRepo.Pending(ctx)
		if err != nil {
			log.Printf("❌ Flush worker: failed to check buffers: %v", err)
			if !sleep(ctx, w.pollInterval) {
				return
			}
			continue
		}
		if !pending {
			if !sleep(ctx, w.pollInterval) {
				return
			}
			continue
		}

		if !w.guard.TryEnter() {
			log.Println("⏳ Flush worker: pipeline busy, backing off")
			if !sleep(ctx, w.retryBackoff) {
				return
			}
			continue
		}

		err = w.flushOnce(ctx)
		w.guard.Exit()
		if err != nil {
			log.Printf("❌ Flush worker: batch failed, will retry: %v", err)
			if !sleep(ctx, w.retryBackoff) {
				return
			}
		}

		select {
		case <-ctx.Done():
			log.Println("🛑 Flush worker stopped")
			return
		default:
		}
	}
}

// flushOnce takes a fresh snapshot under the guard and pushes it through
// commit, buffer cleanup and leaderboard recompute, in that order.
func (w *FlushWorker) flushOnce(ctx context.Context) error {
	snapshot, err := w.bufferRepo.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snapshot.Empty() {
		return nil
	}

	result, err := w.ledgerRepo.ApplyBatch(ctx, snapshot)
	if err != nil {
		// Buffers are untouched; the whole batch is retried later.
		return err
	}

	if err := w.bufferRepo.DeleteSnapshot(ctx, snapshot); err != nil {
		return err
	}

	log.Printf("💾 Flushed batch: %d attempts, %d solves, %d hint usages (%d stale dropped)",
		result.SavedAttempts, len(result.AcceptedSolves), result.AcceptedHintUsages, result.DroppedStale)

	return w.leaderboard.RecomputeAfterFlush(ctx, result.AcceptedSolves)
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
