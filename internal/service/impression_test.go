package service

import (
	"testing"
	"time"

	"github.com/mnemora/mnemora/internal/domain"
)

func TestEnsurePersonImpression_Idempotent(t *testing.T) {
	s, g := newTestSystem(t, nil)

	first := s.EnsurePersonImpression("g1", "alex")
	second := s.EnsurePersonImpression("g1", "alex")
	if first == "" || first != second {
		t.Fatalf("expected stable concept id, got %q and %q", first, second)
	}
	if g.ConceptCount() != 1 {
		t.Fatalf("expected 1 concept, got %d", g.ConceptCount())
	}

	other := s.EnsurePersonImpression("g2", "alex")
	if other == first {
		t.Fatal("same person in another group must get a separate concept")
	}
	if s.EnsurePersonImpression("g1", "") != "" {
		t.Fatal("empty person name must not create a concept")
	}
}

func TestRecordImpression_ScoreClamping(t *testing.T) {
	s, _ := newTestSystem(t, nil)

	high := 1.7
	s.RecordImpression("g1", "alex", "overly enthusiastic", &high, "")
	if got := s.ImpressionScore("g1", "alex"); got != 1.0 {
		t.Fatalf("score must clamp to 1.0, got %f", got)
	}

	low := -0.4
	s.RecordImpression("g1", "sam", "rough first meeting", &low, "")
	if got := s.ImpressionScore("g1", "sam"); got != 0.0 {
		t.Fatalf("score must clamp to 0.0, got %f", got)
	}

	zero := 0.0
	s.RecordImpression("g1", "mallory", "fully negative view", &zero, "")
	if got := s.ImpressionScore("g1", "mallory"); got != 0.0 {
		t.Fatalf("explicit 0.0 score must read back as 0.0, got %f", got)
	}

	s.RecordImpression("g1", "kim", "no score given", nil, "")
	if got := s.ImpressionScore("g1", "kim"); got != DefaultImpressionScore {
		t.Fatalf("nil score must use default, got %f", got)
	}

	if id := s.RecordImpression("g1", "alex", "", nil, ""); id != "" {
		t.Fatal("empty summary must not create a memory")
	}
}

func TestImpressionScore_DefaultAndLatest(t *testing.T) {
	s, g := newTestSystem(t, nil)

	if got := s.ImpressionScore("g1", "nobody"); got != DefaultImpressionScore {
		t.Fatalf("unknown person must score default, got %f", got)
	}

	cid := s.EnsurePersonImpression("g1", "alex")
	old := time.Now().Add(-2 * time.Hour)
	g.AddMemory(domain.Memory{
		ConceptID: cid, Content: "older impression", Strength: 0.3,
		GroupID: "g1", LastAccessed: old,
	})
	g.AddMemory(domain.Memory{
		ConceptID: cid, Content: "newer impression", Strength: 0.8,
		GroupID: "g1", LastAccessed: time.Now(),
	})

	if got := s.ImpressionScore("g1", "alex"); got != 0.8 {
		t.Fatalf("score must come from most recently accessed memory, got %f", got)
	}
}

func TestAdjustImpressionScore(t *testing.T) {
	s, g := newTestSystem(t, nil)

	score := 0.6
	id := s.RecordImpression("g1", "alex", "friendly", &score, "")

	got := s.AdjustImpressionScore("g1", "alex", 0.3)
	if diff := got - 0.9; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected 0.9, got %f", got)
	}
	m, _ := g.Memory(id)
	if diff := m.Strength - 0.9; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("existing memory must be updated in place, strength=%f", m.Strength)
	}

	if got := s.AdjustImpressionScore("g1", "alex", 0.5); got != 1.0 {
		t.Fatalf("adjustment must clamp to 1.0, got %f", got)
	}

	// Unknown person: adjustment seeds a new impression at default+delta.
	got = s.AdjustImpressionScore("g1", "sam", -0.2)
	if diff := got - 0.3; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected 0.3 for fresh person, got %f", got)
	}
	if len(s.ImpressionMemories("g1", "sam", 0)) != 1 {
		t.Fatal("adjustment without history must record a memory")
	}
}

func TestImpressionSummaryFor(t *testing.T) {
	s, _ := newTestSystem(t, nil)

	empty := s.ImpressionSummaryFor("g1", "nobody")
	if empty.Score != DefaultImpressionScore || empty.MemoryCount != 0 {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}

	score := 0.7
	s.RecordImpression("g1", "alex", "knows their espresso", &score, "")
	got := s.ImpressionSummaryFor("g1", "alex")
	if got.Score != 0.7 || got.Summary != "knows their espresso" || got.MemoryCount != 1 {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestImpressionMemories_LimitAndGroupIsolation(t *testing.T) {
	s, g := newTestSystem(t, nil)
	cid := s.EnsurePersonImpression("g1", "alex")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		g.AddMemory(domain.Memory{
			ConceptID: cid, Content: "impression", Strength: 0.5,
			GroupID: "g1", LastAccessed: base.Add(time.Duration(i) * time.Minute),
		})
	}
	// Wrong group on the same concept: filtered out.
	g.AddMemory(domain.Memory{
		ConceptID: cid, Content: "leaked", Strength: 0.5,
		GroupID: "g2", LastAccessed: time.Now(),
	})

	memories := s.ImpressionMemories("g1", "alex", 2)
	if len(memories) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(memories))
	}
	for _, m := range memories {
		if m.GroupID != "g1" {
			t.Fatalf("group isolation violated: %+v", m)
		}
	}
	if all := s.ImpressionMemories("g1", "alex", 0); len(all) != 4 {
		t.Fatalf("zero limit must return all in-group memories, got %d", len(all))
	}
}
