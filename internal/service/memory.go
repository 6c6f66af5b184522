package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mnemora/mnemora/internal/domain"
	"github.com/mnemora/mnemora/internal/graph"
	"github.com/mnemora/mnemora/internal/recall"
)

const (
	defaultMaxRecallMemories   = 10
	defaultMaxInjectedMemories = 5
)

// ExtractedMemory is one theme+content tuple produced by upstream session
// extraction. Kind distinguishes ordinary topic memories from person
// impressions, which route through the impression path instead.
type ExtractedMemory struct {
	Theme        string  `json:"theme"`
	Content      string  `json:"content"`
	Details      string  `json:"details"`
	Participants string  `json:"participants"`
	Location     string  `json:"location"`
	Emotion      string  `json:"emotion"`
	Tags         string  `json:"tags"`
	Confidence   float64 `json:"confidence"`
	Kind         string  `json:"kind"`
	PersonName   string  `json:"person_name"`
	// AllowForget defaults to true when absent from the payload.
	AllowForget *bool `json:"allow_forget"`
}

const (
	ExtractedKindNormal     = "normal"
	ExtractedKindImpression = "impression"
)

type Options struct {
	InjectionThreshold  float64
	MaxRecallMemories   int
	MaxInjectedMemories int
}

type Stats struct {
	Concepts    int `json:"concepts"`
	Memories    int `json:"memories"`
	Connections int `json:"connections"`
}

// MemorySystem ties the graph, recall engine and persistence boundary
// together. The mutex serializes logical mutation (ingestion vs maintenance
// passes); recall reads the live graph without holding it and tolerates
// eventual consistency.
type MemorySystem struct {
	graph  *graph.MemoryGraph
	recall *recall.Engine
	store  domain.GraphStore
	opts   Options
	logger *zap.Logger

	mu sync.Mutex
}

func NewMemorySystem(g *graph.MemoryGraph, engine *recall.Engine, store domain.GraphStore, opts Options, logger *zap.Logger) *MemorySystem {
	if opts.InjectionThreshold <= 0 {
		opts.InjectionThreshold = recall.DefaultInjectionThreshold
	}
	if opts.MaxRecallMemories <= 0 {
		opts.MaxRecallMemories = defaultMaxRecallMemories
	}
	if opts.MaxInjectedMemories <= 0 {
		opts.MaxInjectedMemories = defaultMaxInjectedMemories
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemorySystem{
		graph:  g,
		recall: engine,
		store:  store,
		opts:   opts,
		logger: logger,
	}
}

func (s *MemorySystem) Graph() *graph.MemoryGraph { return s.graph }

// Load replaces the in-memory graph with the persisted snapshot.
func (s *MemorySystem) Load(ctx context.Context) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.Restore(snap)
	s.logger.Info("memory state loaded",
		zap.Int("concepts", s.graph.ConceptCount()),
		zap.Int("memories", s.graph.MemoryCount()),
		zap.Int("connections", s.graph.ConnectionCount()))
	return nil
}

// Save checkpoints the current graph to the store.
func (s *MemorySystem) Save(ctx context.Context) error {
	return s.store.Save(ctx, s.graph.Snapshot())
}

// Ingest records a batch of extracted memories for one group. Themes dedup
// against existing concept names within the group, then every concept that
// received a memory gets co-occurrence connections to the batch's other
// themes. Returns how many memories were stored.
func (s *MemorySystem) Ingest(ctx context.Context, batch []ExtractedMemory, groupID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var themes []string
	var conceptIDs []string
	stored := 0

	for _, em := range batch {
		if em.Theme == "" || em.Content == "" {
			continue
		}
		strength := clamp01(em.Confidence)
		if em.Confidence == 0 {
			strength = 1.0
		}

		if em.Kind == ExtractedKindImpression {
			person := em.PersonName
			if person == "" {
				person = em.Theme
			}
			score := strength
			if s.recordImpressionLocked(groupID, person, em.Content, &score, em.Details) != "" {
				stored++
			}
			continue
		}

		allowForget := true
		if em.AllowForget != nil {
			allowForget = *em.AllowForget
		}

		conceptID := s.conceptForTheme(em.Theme, groupID)
		s.graph.AddMemory(domain.Memory{
			ConceptID:    conceptID,
			Content:      em.Content,
			Details:      em.Details,
			Participants: em.Participants,
			Location:     em.Location,
			Emotion:      em.Emotion,
			Tags:         em.Tags,
			Strength:     strength,
			GroupID:      groupID,
			AllowForget:  allowForget,
		})
		themes = append(themes, em.Theme)
		conceptIDs = append(conceptIDs, conceptID)
		stored++
	}

	for _, conceptID := range conceptIDs {
		s.establishConnectionsLocked(conceptID, themes, groupID)
	}

	if stored > 0 {
		s.logger.Debug("ingested memories",
			zap.Int("count", stored),
			zap.String("group_id", groupID))
	}
	return stored
}

// conceptForTheme reuses an existing same-named topic concept in the group
// or creates a fresh one.
func (s *MemorySystem) conceptForTheme(theme, groupID string) string {
	for _, c := range s.graph.Concepts() {
		if c.Kind == domain.ConceptTopic && c.Name == theme && c.GroupID == groupID {
			return c.ID
		}
	}
	return s.graph.AddConcept(domain.Concept{
		Name:    theme,
		Kind:    domain.ConceptTopic,
		GroupID: groupID,
	})
}

// EstablishConnections links a concept to the concepts behind the other
// themes seen in the same batch.
func (s *MemorySystem) EstablishConnections(conceptID string, themes []string, groupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.establishConnectionsLocked(conceptID, themes, groupID)
}

func (s *MemorySystem) establishConnectionsLocked(conceptID string, themes []string, groupID string) {
	current, ok := s.graph.Concept(conceptID)
	if !ok {
		s.logger.Warn("connection source concept missing", zap.String("concept_id", conceptID))
		return
	}
	for _, theme := range themes {
		if theme == current.Name {
			continue
		}
		for _, other := range s.graph.Concepts() {
			if other.Kind != domain.ConceptTopic || other.Name != theme || other.GroupID != groupID {
				continue
			}
			if other.ID == conceptID {
				break
			}
			s.graph.AddConnection(domain.Connection{
				FromConcept: conceptID,
				ToConcept:   other.ID,
			})
			break
		}
	}
}

// RecallAll runs the full five-strategy recall and records access on every
// returned memory.
func (s *MemorySystem) RecallAll(ctx context.Context, query, groupID string) []recall.Result {
	results := s.recall.Recall(ctx, query, groupID, s.opts.MaxRecallMemories)
	s.recordResultAccess(results)
	return results
}

// RecallForInjection produces a formatted prompt block when recall is
// confident enough, with ok=false otherwise.
func (s *MemorySystem) RecallForInjection(ctx context.Context, message, groupID string) (string, bool) {
	results := s.recall.RecallForInjection(ctx, message, groupID, s.opts.MaxInjectedMemories)
	if !recall.ShouldInject(results, s.opts.InjectionThreshold) {
		return "", false
	}
	s.recordResultAccess(results)
	return recall.FormatForInjection(results), true
}

// RecallSimple is the keyword-only path for deployments without an
// embedding provider.
func (s *MemorySystem) RecallSimple(keyword, groupID string) []string {
	return s.recall.Simple(keyword, groupID)
}

func (s *MemorySystem) recordResultAccess(results []recall.Result) {
	if len(results) == 0 {
		return
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.MemoryID != "" {
			ids = append(ids, r.MemoryID)
		}
	}
	s.graph.RecordAccess(ids)
}

// MemoryByID returns a memory record by id.
func (s *MemorySystem) MemoryByID(memoryID string) (domain.Memory, bool) {
	return s.graph.Memory(memoryID)
}

// DeleteMemory removes a memory record. Returns false for unknown ids.
func (s *MemorySystem) DeleteMemory(memoryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.graph.RemoveMemory(memoryID) {
		return false
	}
	s.logger.Debug("memory deleted", zap.String("memory_id", memoryID))
	return true
}

func (s *MemorySystem) Stats() Stats {
	return Stats{
		Concepts:    s.graph.ConceptCount(),
		Memories:    s.graph.MemoryCount(),
		Connections: s.graph.ConnectionCount(),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
