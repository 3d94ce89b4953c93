package worker

import (
	"context"
	"log"
	"time"

	"anoa.com/ctfarena/internal/repository"
	"anoa.com/ctfarena/internal/service"
)

// RepairWorker periodically rebuilds the user aggregates from the
// ledger, healing drift left by deletion cascades. It only runs while
// submissions are paused; against live traffic the rebuild would race
// incoming flush deltas.
type RepairWorker struct {
	ledgerRepo  repository.LedgerRepository
	leaderboard service.LeaderboardService
	settings    service.SettingsService
	guard       *service.Guard

	interval time.Duration
}

func NewRepairWorker(ledgerRepo repository.LedgerRepository, leaderboard service.LeaderboardService, settings service.SettingsService, guard *service.Guard, interval time.Duration) *RepairWorker {
	return &RepairWorker{
		ledgerRepo:  ledgerRepo,
		leaderboard: leaderboard,
		settings:    settings,
		guard:       guard,
		interval:    interval,
	}
}

func (w *RepairWorker) Run(ctx context.Context) {
	log.Println("🚀 Repair worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Repair worker stopped")
			return
		case <-ticker.C:
			w.repairOnce(ctx)
		}
	}
}

func (w *RepairWorker) repairOnce(ctx context.Context) {
	allowed, err := w.settings.SubmissionsAllowed(ctx)
	if err != nil {
		log.Printf("❌ Repair worker: failed to read submission flag: %v", err)
		return
	}
	if allowed {
		log.Println("⏭️ Repair worker: submissions open, skipping this cycle")
		return
	}

	if !w.guard.TryEnter() {
		log.Println("⏳ Repair worker: pipeline busy, skipping this cycle")
		return
	}
	defer w.guard.Exit()

	start := time.Now()
	if err := w.ledgerRepo.RebuildAggregates(ctx); err != nil {
		log.Printf("❌ Repair worker: rebuild failed: %v", err)
		return
	}
	if err := w.leaderboard.Invalidate(ctx); err != nil {
		log.Printf("⚠️ Repair worker: cache invalidation failed: %v", err)
	}

	log.Printf("🔧 Repair worker: aggregates rebuilt in %v", time.Since(start))
}
