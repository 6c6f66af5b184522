package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mnemora/mnemora/internal/domain"
	"github.com/mnemora/mnemora/internal/graph"
	"github.com/mnemora/mnemora/internal/recall"
)

func TestRunMaintenance_FullPass(t *testing.T) {
	store := &mockStore{}
	g := graph.New()
	engine := recall.NewEngine(g, nil, recall.DefaultWeights(), zap.NewNop())
	system := NewMemorySystem(g, engine, store, Options{}, zap.NewNop())

	c := g.AddConcept(domain.Concept{Name: "coffee"})
	stale := time.Now().Add(-48 * time.Hour)
	g.AddMemory(domain.Memory{
		ConceptID: c, Content: "doomed note", Strength: 0.2,
		LastAccessed: stale, AllowForget: true,
	})
	base := time.Now().Add(-3 * time.Hour)
	addMemoryAt(g, c, "I love black coffee", base)
	addMemoryAt(g, c, "I love strong coffee", base.Add(time.Hour))

	forgetting := NewForgettingEngine(g, 24*time.Hour, zap.NewNop())
	consolidation := NewConsolidationEngine(g, nil, 1, zap.NewNop())
	worker := NewMaintenanceWorker(system, forgetting, consolidation, zap.NewNop())

	res := worker.RunMaintenance(context.Background())

	if res.Forgetting.MemoriesRemoved != 1 {
		t.Fatalf("expected forgetting to remove 1 memory, got %d", res.Forgetting.MemoriesRemoved)
	}
	if res.Consolidated != 1 {
		t.Fatalf("expected consolidation to fold 1 memory, got %d", res.Consolidated)
	}
	if !res.Saved {
		t.Fatal("expected a save checkpoint")
	}
	if store.saveCalls != 1 {
		t.Fatalf("expected 1 store save, got %d", store.saveCalls)
	}
	if g.MemoryCount() != 1 {
		t.Fatalf("expected 1 memory left, got %d", g.MemoryCount())
	}
}

func TestMaintenanceWorker_StartStop(t *testing.T) {
	store := &mockStore{}
	g := graph.New()
	engine := recall.NewEngine(g, nil, recall.DefaultWeights(), zap.NewNop())
	system := NewMemorySystem(g, engine, store, Options{}, zap.NewNop())

	worker := NewMaintenanceWorker(system, nil, nil, zap.NewNop())
	worker.SetInterval(10 * time.Millisecond)
	worker.Start()
	time.Sleep(35 * time.Millisecond)
	worker.Stop()

	store.mu.Lock()
	calls := store.saveCalls
	store.mu.Unlock()
	if calls == 0 {
		t.Fatal("expected at least one maintenance save while running")
	}
}
