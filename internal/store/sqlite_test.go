package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mnemora/mnemora/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_EmptyLoad(t *testing.T) {
	s := openTestStore(t)
	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Concepts) != 0 || len(snap.Memories) != 0 || len(snap.Connections) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	accessed := time.Now().Truncate(time.Millisecond)

	in := &domain.Snapshot{
		Concepts: []domain.Concept{
			{ID: "c1", Name: "coffee", Kind: domain.ConceptTopic,
				CreatedAt: created, LastAccessed: accessed, AccessCount: 3},
			{ID: "c2", Name: "alex", Kind: domain.ConceptPersonImpression,
				GroupID: "g1", PersonName: "alex", CreatedAt: created, LastAccessed: accessed},
		},
		Memories: []domain.Memory{
			{ID: "m1", ConceptID: "c1", Content: "prefers espresso",
				Details: "double shot", Participants: "alex", Location: "office",
				Emotion: "joy", Tags: "habit", CreatedAt: created, LastAccessed: accessed,
				AccessCount: 2, Strength: 0.85, AllowForget: true},
			{ID: "m2", ConceptID: "c2", Content: "seems helpful",
				GroupID: "g1", Strength: 0.7, CreatedAt: created, LastAccessed: accessed},
		},
		Connections: []domain.Connection{
			{ID: "e1", FromConcept: "c1", ToConcept: "c2", Strength: 1.2, LastStrengthened: accessed},
		},
	}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out.Concepts) != 2 || len(out.Memories) != 2 || len(out.Connections) != 1 {
		t.Fatalf("unexpected counts: %d/%d/%d", len(out.Concepts), len(out.Memories), len(out.Connections))
	}

	byID := make(map[string]domain.Memory)
	for _, m := range out.Memories {
		byID[m.ID] = m
	}
	m1 := byID["m1"]
	if m1.Content != "prefers espresso" || m1.Details != "double shot" || m1.Strength != 0.85 {
		t.Fatalf("memory fields lost: %+v", m1)
	}
	if !m1.AllowForget || byID["m2"].AllowForget {
		t.Fatal("allow_forget flag not round-tripped")
	}
	if !m1.CreatedAt.Equal(created) || !m1.LastAccessed.Equal(accessed) {
		t.Fatalf("timestamps not round-tripped: %v / %v", m1.CreatedAt, m1.LastAccessed)
	}

	var impression domain.Concept
	for _, c := range out.Concepts {
		if c.ID == "c2" {
			impression = c
		}
	}
	if impression.Kind != domain.ConceptPersonImpression || impression.PersonName != "alex" || impression.GroupID != "g1" {
		t.Fatalf("impression concept fields lost: %+v", impression)
	}

	conn := out.Connections[0]
	if conn.Strength != 1.2 || !conn.LastStrengthened.Equal(accessed) {
		t.Fatalf("connection fields lost: %+v", conn)
	}
}

func TestSQLiteStore_SaveReplacesPreviousSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &domain.Snapshot{
		Concepts: []domain.Concept{{ID: "c1", Name: "old"}},
		Memories: []domain.Memory{{ID: "m1", ConceptID: "c1", Content: "stale", Strength: 1}},
	}
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := &domain.Snapshot{
		Concepts: []domain.Concept{{ID: "c2", Name: "new"}},
	}
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out.Concepts) != 1 || out.Concepts[0].ID != "c2" {
		t.Fatalf("previous snapshot not replaced: %+v", out.Concepts)
	}
	if len(out.Memories) != 0 {
		t.Fatalf("stale memories survived: %+v", out.Memories)
	}
}
