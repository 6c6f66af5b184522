package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/mnemora/mnemora/internal/domain"
	"github.com/mnemora/mnemora/internal/graph"
	"github.com/mnemora/mnemora/internal/recall"
)

type mockStore struct {
	mu        sync.Mutex
	snapshot  *domain.Snapshot
	loadErr   error
	saveErr   error
	saveCalls int
}

func (m *mockStore) Load(_ context.Context) (*domain.Snapshot, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snapshot == nil {
		return &domain.Snapshot{}, nil
	}
	return m.snapshot, nil
}

func (m *mockStore) Save(_ context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snapshot = snap
	m.saveCalls++
	return nil
}

func (m *mockStore) Close() error { return nil }

func newTestSystem(t *testing.T, store domain.GraphStore) (*MemorySystem, *graph.MemoryGraph) {
	t.Helper()
	g := graph.New()
	engine := recall.NewEngine(g, nil, recall.DefaultWeights(), zap.NewNop())
	if store == nil {
		store = &mockStore{}
	}
	return NewMemorySystem(g, engine, store, Options{}, zap.NewNop()), g
}

func TestIngest_CreatesConceptsMemoriesConnections(t *testing.T) {
	s, g := newTestSystem(t, nil)

	stored := s.Ingest(context.Background(), []ExtractedMemory{
		{Theme: "coffee", Content: "prefers espresso", Confidence: 0.8},
		{Theme: "work", Content: "new project kicked off", Confidence: 0.9},
		{Theme: "", Content: "dropped: no theme"},
		{Theme: "dropped: no content"},
	}, "")

	if stored != 2 {
		t.Fatalf("expected 2 stored, got %d", stored)
	}
	if g.ConceptCount() != 2 {
		t.Fatalf("expected 2 concepts, got %d", g.ConceptCount())
	}
	if g.MemoryCount() != 2 {
		t.Fatalf("expected 2 memories, got %d", g.MemoryCount())
	}
	// Co-occurring themes in one batch connect.
	if g.ConnectionCount() != 1 {
		t.Fatalf("expected 1 connection between batch themes, got %d", g.ConnectionCount())
	}

	var m domain.Memory
	for _, cand := range g.Memories() {
		if cand.Content == "prefers espresso" {
			m = cand
		}
	}
	if m.Strength != 0.8 {
		t.Fatalf("confidence must set strength, got %f", m.Strength)
	}
	if !m.AllowForget {
		t.Fatal("allow_forget must default to true")
	}
}

func TestIngest_ReusesConceptByThemeWithinGroup(t *testing.T) {
	s, g := newTestSystem(t, nil)
	ctx := context.Background()

	s.Ingest(ctx, []ExtractedMemory{{Theme: "coffee", Content: "first", Confidence: 1}}, "")
	s.Ingest(ctx, []ExtractedMemory{{Theme: "coffee", Content: "second", Confidence: 1}}, "")
	if g.ConceptCount() != 1 {
		t.Fatalf("same theme in same group must reuse the concept, got %d concepts", g.ConceptCount())
	}

	s.Ingest(ctx, []ExtractedMemory{{Theme: "coffee", Content: "third", Confidence: 1}}, "g1")
	if g.ConceptCount() != 2 {
		t.Fatalf("same theme in another group must get its own concept, got %d", g.ConceptCount())
	}
}

func TestIngest_ImpressionRoutesThroughImpressionPath(t *testing.T) {
	s, g := newTestSystem(t, nil)

	stored := s.Ingest(context.Background(), []ExtractedMemory{
		{Theme: "alex", Content: "seems very helpful", Confidence: 0.9,
			Kind: ExtractedKindImpression, PersonName: "alex"},
	}, "g1")
	if stored != 1 {
		t.Fatalf("expected 1 stored impression, got %d", stored)
	}

	concept, ok := g.ImpressionConcept("g1", "alex")
	if !ok {
		t.Fatal("impression concept missing")
	}
	if concept.Kind != domain.ConceptPersonImpression {
		t.Fatalf("wrong concept kind: %s", concept.Kind)
	}
	if got := s.ImpressionScore("g1", "alex"); got != 0.9 {
		t.Fatalf("impression score must carry confidence, got %f", got)
	}
}

func TestRecallAll_RecordsAccess(t *testing.T) {
	s, g := newTestSystem(t, nil)
	c := g.AddConcept(domain.Concept{Name: "coffee"})
	id := g.AddMemory(domain.Memory{ConceptID: c, Content: "espresso ritual"})

	results := s.RecallAll(context.Background(), "espresso", "")
	if len(results) == 0 {
		t.Fatal("expected recall results")
	}
	m, _ := g.Memory(id)
	if m.AccessCount != 1 {
		t.Fatalf("recall must record access, count=%d", m.AccessCount)
	}
}

func TestRecallForInjection_ThresholdGate(t *testing.T) {
	s, g := newTestSystem(t, nil)
	c := g.AddConcept(domain.Concept{Name: "coffee"})
	g.AddMemory(domain.Memory{ConceptID: c, Content: "loves espresso shots"})

	// Full keyword match scores 0.25, below the 0.3 default threshold.
	if out, ok := s.RecallForInjection(context.Background(), "espresso shots", ""); ok {
		t.Fatalf("expected no injection below threshold, got %q", out)
	}

	s2, g2 := func() (*MemorySystem, *graph.MemoryGraph) {
		g2 := graph.New()
		engine := recall.NewEngine(g2, nil, recall.DefaultWeights(), zap.NewNop())
		return NewMemorySystem(g2, engine, &mockStore{}, Options{InjectionThreshold: 0.2}, zap.NewNop()), g2
	}()
	c2 := g2.AddConcept(domain.Concept{Name: "coffee"})
	g2.AddMemory(domain.Memory{ConceptID: c2, Content: "loves espresso shots"})

	out, ok := s2.RecallForInjection(context.Background(), "espresso shots", "")
	if !ok {
		t.Fatal("expected injection with lowered threshold")
	}
	if out == "" {
		t.Fatal("expected formatted output")
	}
}

func TestLoadAndSave(t *testing.T) {
	store := &mockStore{}
	s, g := newTestSystem(t, store)
	c := g.AddConcept(domain.Concept{Name: "coffee"})
	g.AddMemory(domain.Memory{ConceptID: c, Content: "espresso"})

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if store.saveCalls != 1 {
		t.Fatalf("expected 1 save, got %d", store.saveCalls)
	}

	restored, _ := newTestSystem(t, store)
	if err := restored.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if restored.Stats().Memories != 1 || restored.Stats().Concepts != 1 {
		t.Fatalf("unexpected restored stats: %+v", restored.Stats())
	}
}

func TestLoad_Error(t *testing.T) {
	store := &mockStore{loadErr: errors.New("corrupt file")}
	s, _ := newTestSystem(t, store)
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected load error to propagate")
	}
}

func TestStats(t *testing.T) {
	s, g := newTestSystem(t, nil)
	a := g.AddConcept(domain.Concept{Name: "a"})
	b := g.AddConcept(domain.Concept{Name: "b"})
	g.AddMemory(domain.Memory{ConceptID: a, Content: "m"})
	g.AddConnection(domain.Connection{FromConcept: a, ToConcept: b})

	got := s.Stats()
	if got.Concepts != 2 || got.Memories != 1 || got.Connections != 1 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}
