package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultMaintenanceInterval = 1 * time.Hour

type MaintenanceResult struct {
	Forgetting   ForgettingResult `json:"forgetting"`
	Consolidated int              `json:"consolidated"`
	Saved        bool             `json:"saved"`
}

// MaintenanceWorker periodically runs forgetting and consolidation and then
// checkpoints the graph. The pass takes the system's mutation mutex, so it
// never interleaves with ingestion; recall keeps running against the live
// graph throughout.
type MaintenanceWorker struct {
	system        *MemorySystem
	forgetting    *ForgettingEngine
	consolidation *ConsolidationEngine
	logger        *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewMaintenanceWorker(system *MemorySystem, forgetting *ForgettingEngine, consolidation *ConsolidationEngine, logger *zap.Logger) *MaintenanceWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceWorker{
		system:        system,
		forgetting:    forgetting,
		consolidation: consolidation,
		logger:        logger,
		interval:      defaultMaintenanceInterval,
		stopCh:        make(chan struct{}),
	}
}

func (w *MaintenanceWorker) SetInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

func (w *MaintenanceWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("maintenance worker started", zap.Duration("interval", w.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				w.RunMaintenance(ctx)
				cancel()
			case <-w.stopCh:
				w.logger.Info("maintenance worker stopped")
				return
			}
		}
	}()
}

func (w *MaintenanceWorker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

// RunMaintenance executes one full pass: forgetting, consolidation, save.
func (w *MaintenanceWorker) RunMaintenance(ctx context.Context) MaintenanceResult {
	w.system.mu.Lock()
	defer w.system.mu.Unlock()

	var res MaintenanceResult
	if w.forgetting != nil {
		res.Forgetting = w.forgetting.Run()
	}
	if w.consolidation != nil {
		res.Consolidated = w.consolidation.Run(ctx)
	}

	if err := w.system.Save(ctx); err != nil {
		w.logger.Error("maintenance save failed", zap.Error(err))
	} else {
		res.Saved = true
	}

	w.logger.Debug("maintenance pass complete",
		zap.Int("memories_removed", res.Forgetting.MemoriesRemoved),
		zap.Int("connections_removed", res.Forgetting.ConnectionsRemoved),
		zap.Int("memories_merged", res.Consolidated),
		zap.Bool("saved", res.Saved))
	return res
}
