package recall

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mnemora/mnemora/internal/domain"
	"github.com/mnemora/mnemora/internal/graph"
)

// Strategy names carried on Result for ranking and injection filtering.
const (
	StrategySemantic    = "semantic"
	StrategyKeyword     = "keyword"
	StrategyAssociative = "associative"
	StrategyTemporal    = "temporal"
	StrategyStrength    = "strength"
)

const (
	semanticSimilarityFloor = 0.3
	diffusionDecay          = 0.7
	diffusionMinEnergy      = 0.1
	diffusionMaxHops        = 3
	neighborStrengthFloor   = 0.3
	neighborMemoryLimit     = 2
	temporalWindow          = 24 * time.Hour
	fallbackSampleSize      = 3
	embedConcurrency        = 8
)

// Weights distribute relevance across the five strategies. They should sum
// to 1.0 so merged scores stay comparable with the injection threshold.
type Weights struct {
	Semantic    float64
	Keyword     float64
	Associative float64
	Temporal    float64
	Strength    float64
}

func DefaultWeights() Weights {
	return Weights{
		Semantic:    0.40,
		Keyword:     0.25,
		Associative: 0.20,
		Temporal:    0.10,
		Strength:    0.05,
	}
}

// Result is a single scored candidate produced by one strategy. The same
// memory may surface from several strategies; the merger collapses those by
// content, keeping the best score.
type Result struct {
	MemoryID    string
	ConceptID   string
	ConceptName string
	Content     string
	Score       float64
	Strategy    string

	// Strategy-specific context, used by the injection filter.
	Similarity      float64
	MatchedKeywords []string
	KeywordTotal    int
	SeedConceptID   string
	EdgeStrength    float64
}

// Engine runs the five recall strategies against the live graph. All
// strategies are read-only; the only recall-side mutation, bumping access
// counters, is left to the caller after merging.
type Engine struct {
	graph           *graph.MemoryGraph
	embedder        domain.EmbeddingClient
	weights         Weights
	providerTimeout time.Duration
	logger          *zap.Logger
}

func NewEngine(g *graph.MemoryGraph, embedder domain.EmbeddingClient, weights Weights, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		graph:           g,
		embedder:        embedder,
		weights:         weights,
		providerTimeout: 10 * time.Second,
		logger:          logger,
	}
}

// Recall fans out all five strategies concurrently, merges their candidates
// and returns at most maxMemories results ranked by relevance. An empty
// query degrades to the strength-sorted fallback sample.
func (e *Engine) Recall(ctx context.Context, query, groupID string, maxMemories int) []Result {
	if e.graph.MemoryCount() == 0 {
		return nil
	}
	if maxMemories <= 0 {
		maxMemories = 10
	}
	if query == "" {
		return e.fallback(groupID)
	}

	keywords := ExtractKeywords(query)
	buckets := make([][]Result, 5)

	var eg errgroup.Group
	eg.Go(func() error { buckets[0] = e.semanticRecall(ctx, query, groupID); return nil })
	eg.Go(func() error { buckets[1] = e.keywordRecall(query, groupID, keywords); return nil })
	eg.Go(func() error { buckets[2] = e.associativeRecall(query, groupID); return nil })
	eg.Go(func() error { buckets[3] = e.temporalRecall(groupID); return nil })
	eg.Go(func() error { buckets[4] = e.strengthRecall(groupID); return nil })
	_ = eg.Wait()

	var all []Result
	for _, b := range buckets {
		all = append(all, b...)
	}
	merged := MergeAndRank(all)
	if len(merged) > maxMemories {
		merged = merged[:maxMemories]
	}
	e.logger.Debug("recall complete",
		zap.String("query", query),
		zap.Int("candidates", len(all)),
		zap.Int("returned", len(merged)))
	return merged
}

// RecallForInjection is the cheaper per-message path: it swaps the diffusion
// strategy for the one-hop neighbor variant and applies the injection filter
// so weak strategies cannot surface memories unrelated to the message.
func (e *Engine) RecallForInjection(ctx context.Context, message, groupID string, maxMemories int) []Result {
	if e.graph.MemoryCount() == 0 {
		return nil
	}
	if maxMemories <= 0 {
		maxMemories = 5
	}

	keywords := ExtractKeywords(message)

	semantic := e.semanticRecall(ctx, message, groupID)
	semanticPrimary := len(semantic) > 0

	all := append([]Result{}, semantic...)
	all = append(all, e.keywordRecall(message, groupID, keywords)...)
	all = append(all, e.associativeNeighbors(message, groupID)...)
	all = append(all, e.temporalRecall(groupID)...)
	all = append(all, e.strengthRecall(groupID)...)

	merged := MergeAndRank(all)
	filtered := filterForInjection(merged, len(keywords), semanticPrimary)
	if len(filtered) > maxMemories {
		filtered = filtered[:maxMemories]
	}
	return filtered
}

// Simple is keyword-only recall returning bare contents, used when no
// embedding provider is configured. Concept names are comma-split so a
// multi-theme concept matches any of its parts.
func (e *Engine) Simple(keyword, groupID string) []string {
	if keyword == "" {
		var contents []string
		for _, r := range e.fallback(groupID) {
			contents = append(contents, r.Content)
		}
		return contents
	}

	keywordLower := strings.ToLower(keyword)
	var related []string
	seen := make(map[string]struct{})
	add := func(content string) bool {
		if _, dup := seen[content]; dup {
			return len(related) < 5
		}
		seen[content] = struct{}{}
		related = append(related, content)
		return len(related) < 5
	}

	for _, concept := range e.graph.Concepts() {
		if !conceptNameMatches(concept.Name, keywordLower) {
			continue
		}
		memories := e.memoriesInGroup(concept.ID, groupID)
		for i, m := range memories {
			if i == neighborMemoryLimit {
				break
			}
			if !add(m.Content) {
				return related
			}
		}
	}
	for _, m := range e.graph.Memories() {
		if !m.InGroup(groupID) {
			continue
		}
		if strings.Contains(strings.ToLower(m.Content), keywordLower) {
			if !add(m.Content) {
				return related
			}
		}
	}
	return related
}

// conceptNameMatches reports whether any comma-separated part of the concept
// name overlaps the query, in either containment direction.
func conceptNameMatches(conceptName, keywordLower string) bool {
	nameLower := strings.ToLower(strings.ReplaceAll(conceptName, "，", ","))
	for _, part := range strings.Split(nameLower, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, keywordLower) || strings.Contains(keywordLower, part) {
			return true
		}
		for _, kw := range strings.Split(keywordLower, ",") {
			if kw = strings.TrimSpace(kw); kw != "" && strings.Contains(part, kw) {
				return true
			}
		}
	}
	return false
}

func (e *Engine) fallback(groupID string) []Result {
	memories := e.groupMemories(groupID)
	sort.Slice(memories, func(i, j int) bool {
		if memories[i].Strength != memories[j].Strength {
			return memories[i].Strength > memories[j].Strength
		}
		return memories[i].LastAccessed.After(memories[j].LastAccessed)
	})
	if len(memories) > fallbackSampleSize {
		memories = memories[:fallbackSampleSize]
	}
	results := make([]Result, 0, len(memories))
	for _, m := range memories {
		concept, ok := e.graph.Concept(m.ConceptID)
		if !ok {
			continue
		}
		results = append(results, Result{
			MemoryID:    m.ID,
			ConceptID:   m.ConceptID,
			ConceptName: concept.Name,
			Content:     m.Content,
			Score:       m.Strength * e.weights.Strength,
			Strategy:    StrategyStrength,
		})
	}
	return results
}

func (e *Engine) semanticRecall(ctx context.Context, query, groupID string) []Result {
	if e.embedder == nil || query == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.providerTimeout)
	defer cancel()

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil || len(queryVec) == 0 {
		e.logger.Debug("semantic recall skipped: query embedding unavailable", zap.Error(err))
		return nil
	}

	memories := e.groupMemories(groupID)
	vectors := make([][]float32, len(memories))

	var eg errgroup.Group
	eg.SetLimit(embedConcurrency)
	for i, m := range memories {
		eg.Go(func() error {
			vec, err := e.embedder.Embed(ctx, m.Content)
			if err != nil {
				e.logger.Debug("memory embedding failed",
					zap.String("memory_id", m.ID), zap.Error(err))
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	_ = eg.Wait()

	var results []Result
	for i, m := range memories {
		if vectors[i] == nil {
			continue
		}
		sim := cosineSimilarity(queryVec, vectors[i])
		if sim <= semanticSimilarityFloor {
			continue
		}
		concept, ok := e.graph.Concept(m.ConceptID)
		if !ok {
			continue
		}
		results = append(results, Result{
			MemoryID:    m.ID,
			ConceptID:   m.ConceptID,
			ConceptName: concept.Name,
			Content:     m.Content,
			Score:       sim * e.weights.Semantic,
			Strategy:    StrategySemantic,
			Similarity:  sim,
		})
	}
	return results
}

func (e *Engine) keywordRecall(query, groupID string, keywords []string) []Result {
	if query == "" || len(keywords) == 0 {
		return nil
	}

	var results []Result
	for _, m := range e.groupMemories(groupID) {
		concept, ok := e.graph.Concept(m.ConceptID)
		if !ok {
			continue
		}
		searchable := strings.ToLower(m.Content + " " + m.Details + " " + m.Tags + " " + concept.Name)

		var matched []string
		for _, kw := range keywords {
			if strings.Contains(searchable, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		results = append(results, Result{
			MemoryID:        m.ID,
			ConceptID:       m.ConceptID,
			ConceptName:     concept.Name,
			Content:         m.Content,
			Score:           float64(len(matched)) / float64(len(keywords)) * e.weights.Keyword,
			Strategy:        StrategyKeyword,
			MatchedKeywords: matched,
			KeywordTotal:    len(keywords),
		})
	}
	return results
}

// associativeRecall performs bounded energy diffusion from concepts whose
// name contains the query. Energy starts at 1.0 per seed, transfers across
// an edge as energy * strength * decay, and stops below the threshold or
// after the hop limit. Memories under any activated concept become
// candidates scored by that concept's accumulated energy.
func (e *Engine) associativeRecall(query, groupID string) []Result {
	queryLower := strings.ToLower(query)

	activation := make(map[string]float64)
	var seeds []string
	for _, concept := range e.graph.Concepts() {
		if strings.Contains(strings.ToLower(concept.Name), queryLower) {
			activation[concept.ID] = 1.0
			seeds = append(seeds, concept.ID)
		}
	}
	if len(seeds) == 0 {
		return nil
	}

	visited := make(map[string]struct{})
	for hop := 0; hop < diffusionMaxHops; hop++ {
		transfers := make(map[string]float64)
		for conceptID, energy := range activation {
			if _, done := visited[conceptID]; done {
				continue
			}
			for _, n := range e.graph.Neighbors(conceptID) {
				transferred := energy * n.Strength * diffusionDecay
				if transferred > diffusionMinEnergy {
					transfers[n.ConceptID] += transferred
				}
			}
			visited[conceptID] = struct{}{}
		}
		if len(transfers) == 0 {
			break
		}
		for conceptID, energy := range transfers {
			activation[conceptID] += energy
		}
	}

	seedSet := make(map[string]struct{}, len(seeds))
	for _, id := range seeds {
		seedSet[id] = struct{}{}
	}

	var results []Result
	for conceptID, energy := range activation {
		if energy <= diffusionMinEnergy {
			continue
		}
		concept, ok := e.graph.Concept(conceptID)
		if !ok {
			continue
		}
		seed := conceptID
		if _, isSeed := seedSet[conceptID]; !isSeed {
			seed = seeds[0]
		}
		memories := e.memoriesInGroup(conceptID, groupID)
		for i, m := range memories {
			if i == neighborMemoryLimit {
				break
			}
			results = append(results, Result{
				MemoryID:      m.ID,
				ConceptID:     conceptID,
				ConceptName:   concept.Name,
				Content:       m.Content,
				Score:         energy * e.weights.Associative,
				Strategy:      StrategyAssociative,
				SeedConceptID: seed,
			})
		}
	}
	return results
}

// associativeNeighbors is the one-hop variant: immediate neighbors of
// matched concepts with edge strength above the floor contribute their two
// strongest memories, scored by the edge strength itself.
func (e *Engine) associativeNeighbors(query, groupID string) []Result {
	queryLower := strings.ToLower(query)

	var seeds []string
	for _, concept := range e.graph.Concepts() {
		if strings.Contains(strings.ToLower(concept.Name), queryLower) {
			seeds = append(seeds, concept.ID)
		}
	}
	if len(seeds) == 0 {
		return nil
	}

	var results []Result
	for _, seedID := range seeds {
		for _, n := range e.graph.Neighbors(seedID) {
			if n.Strength <= neighborStrengthFloor {
				continue
			}
			concept, ok := e.graph.Concept(n.ConceptID)
			if !ok {
				continue
			}
			memories := e.memoriesInGroup(n.ConceptID, groupID)
			for i, m := range memories {
				if i == neighborMemoryLimit {
					break
				}
				results = append(results, Result{
					MemoryID:      m.ID,
					ConceptID:     n.ConceptID,
					ConceptName:   concept.Name,
					Content:       m.Content,
					Score:         n.Strength * e.weights.Associative,
					Strategy:      StrategyAssociative,
					SeedConceptID: seedID,
					EdgeStrength:  n.Strength,
				})
			}
		}
	}
	return results
}

func (e *Engine) temporalRecall(groupID string) []Result {
	now := time.Now()

	var results []Result
	for _, m := range e.groupMemories(groupID) {
		elapsed := now.Sub(m.LastAccessed)
		if elapsed < 0 || elapsed >= temporalWindow {
			continue
		}
		concept, ok := e.graph.Concept(m.ConceptID)
		if !ok {
			continue
		}
		score := (1.0 - elapsed.Seconds()/temporalWindow.Seconds()) * e.weights.Temporal
		results = append(results, Result{
			MemoryID:    m.ID,
			ConceptID:   m.ConceptID,
			ConceptName: concept.Name,
			Content:     m.Content,
			Score:       score,
			Strategy:    StrategyTemporal,
		})
	}
	return results
}

func (e *Engine) strengthRecall(groupID string) []Result {
	memories := e.groupMemories(groupID)
	sort.Slice(memories, func(i, j int) bool {
		return memories[i].Strength > memories[j].Strength
	})

	// Top 20 percent, but never fewer than five when available.
	top := len(memories) / 5
	if top < 5 {
		top = 5
	}
	if top > len(memories) {
		top = len(memories)
	}

	var results []Result
	for _, m := range memories[:top] {
		concept, ok := e.graph.Concept(m.ConceptID)
		if !ok {
			continue
		}
		results = append(results, Result{
			MemoryID:    m.ID,
			ConceptID:   m.ConceptID,
			ConceptName: concept.Name,
			Content:     m.Content,
			Score:       m.Strength * e.weights.Strength,
			Strategy:    StrategyStrength,
		})
	}
	return results
}

func (e *Engine) groupMemories(groupID string) []domain.Memory {
	all := e.graph.Memories()
	filtered := all[:0]
	for _, m := range all {
		if m.InGroup(groupID) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func (e *Engine) memoriesInGroup(conceptID, groupID string) []domain.Memory {
	all := e.graph.MemoriesOfConcept(conceptID)
	filtered := all[:0]
	for _, m := range all {
		if m.InGroup(groupID) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
