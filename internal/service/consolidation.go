package service

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mnemora/mnemora/internal/domain"
	"github.com/mnemora/mnemora/internal/graph"
)

const (
	defaultMaxMemoriesPerTopic = 10

	jaccardSimilarityFloor = 0.5
	mergedContentMinRunes  = 10
	heuristicTokenLimit    = 5
)

// ConsolidationEngine merges near-duplicate memories under crowded concepts.
// Only concepts holding more than maxPerTopic memories are touched; within
// one, memories cluster greedily oldest-first by token overlap, and each
// cluster collapses into its most recently accessed member.
type ConsolidationEngine struct {
	graph       *graph.MemoryGraph
	llm         domain.LLMClient
	maxPerTopic int
	logger      *zap.Logger
}

func NewConsolidationEngine(g *graph.MemoryGraph, llm domain.LLMClient, maxPerTopic int, logger *zap.Logger) *ConsolidationEngine {
	if maxPerTopic <= 0 {
		maxPerTopic = defaultMaxMemoriesPerTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsolidationEngine{graph: g, llm: llm, maxPerTopic: maxPerTopic, logger: logger}
}

// Run executes one consolidation pass and returns how many memories were
// folded away.
func (e *ConsolidationEngine) Run(ctx context.Context) int {
	consolidated := 0

	for _, concept := range e.graph.Concepts() {
		memories := e.graph.MemoriesOfConcept(concept.ID)
		if len(memories) <= e.maxPerTopic {
			continue
		}

		// Oldest first, so long-standing duplicates anchor each cluster.
		sort.Slice(memories, func(i, j int) bool {
			return memories[i].CreatedAt.Before(memories[j].CreatedAt)
		})

		used := make(map[int]struct{})
		for i := range memories {
			if _, done := used[i]; done {
				continue
			}
			cluster := []domain.Memory{memories[i]}
			used[i] = struct{}{}

			for j := i + 1; j < len(memories); j++ {
				if _, done := used[j]; done {
					continue
				}
				if memoriesSimilar(memories[i], memories[j]) {
					cluster = append(cluster, memories[j])
					used[j] = struct{}{}
				}
			}
			if len(cluster) < 2 {
				continue
			}

			merged := e.mergeCluster(ctx, cluster)
			if merged == "" {
				continue
			}

			keeper := cluster[0]
			for _, m := range cluster[1:] {
				if m.LastAccessed.After(keeper.LastAccessed) {
					keeper = m
				}
			}
			now := time.Now()
			e.graph.UpdateMemory(keeper.ID, graph.MemoryUpdate{
				Content:      &merged,
				LastAccessed: &now,
			})
			for _, m := range cluster {
				if m.ID != keeper.ID {
					e.graph.RemoveMemory(m.ID)
				}
			}
			consolidated += len(cluster) - 1
		}
	}

	if consolidated > 0 {
		e.logger.Debug("consolidation complete", zap.Int("memories_merged", consolidated))
	}
	return consolidated
}

// memoriesSimilar compares token sets by Jaccard index.
func memoriesSimilar(a, b domain.Memory) bool {
	setA := tokenSet(a.Content)
	setB := tokenSet(b.Content)
	if len(setA) == 0 || len(setB) == 0 {
		return false
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection)/float64(union) > jaccardSimilarityFloor
}

func tokenSet(content string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(content) {
		set[token] = struct{}{}
	}
	return set
}

// mergeCluster produces the replacement content for a similar-memory
// cluster: LLM summary when available and substantial, otherwise a phrase
// built from the tokens all members share, otherwise the newest content.
func (e *ConsolidationEngine) mergeCluster(ctx context.Context, cluster []domain.Memory) string {
	sorted := make([]domain.Memory, len(cluster))
	copy(sorted, cluster)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	contents := make([]string, len(sorted))
	for i, m := range sorted {
		contents[i] = m.Content
	}

	if e.llm != nil {
		merged, err := e.llm.MergeMemories(ctx, contents)
		if err == nil {
			merged = strings.TrimSpace(merged)
			if utf8.RuneCountInString(merged) > mergedContentMinRunes {
				return merged
			}
		} else {
			e.logger.Warn("llm merge failed, falling back", zap.Error(err))
		}
	}

	if phrase := commonTokenPhrase(contents); phrase != "" {
		return "discussion about " + phrase
	}
	return contents[len(contents)-1]
}

// commonTokenPhrase joins the tokens shared by every content, kept in the
// order they appear in the oldest one so the result is deterministic.
func commonTokenPhrase(contents []string) string {
	common := tokenSet(contents[0])
	for _, content := range contents[1:] {
		next := tokenSet(content)
		for token := range common {
			if _, ok := next[token]; !ok {
				delete(common, token)
			}
		}
	}
	if len(common) == 0 {
		return ""
	}

	var ordered []string
	seen := make(map[string]struct{})
	for _, token := range strings.Fields(contents[0]) {
		if _, ok := common[token]; !ok {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		ordered = append(ordered, token)
		if len(ordered) == heuristicTokenLimit {
			break
		}
	}
	return strings.Join(ordered, " ")
}
