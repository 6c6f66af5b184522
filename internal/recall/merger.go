package recall

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultInjectionThreshold is the minimum best score a merged result
	// set must reach before it is worth injecting into a prompt.
	DefaultInjectionThreshold = 0.3

	formattedMemoryCap = 5
)

// MergeAndRank collapses candidates from all strategies. Duplicate contents
// keep the single best score, then everything sorts by score descending with
// memory ID as a deterministic tie-break.
func MergeAndRank(results []Result) []Result {
	byContent := make(map[string]Result, len(results))
	order := make([]string, 0, len(results))
	for _, r := range results {
		existing, ok := byContent[r.Content]
		if !ok {
			byContent[r.Content] = r
			order = append(order, r.Content)
			continue
		}
		if r.Score > existing.Score {
			byContent[r.Content] = r
		}
	}

	merged := make([]Result, 0, len(byContent))
	for _, content := range order {
		merged = append(merged, byContent[content])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].MemoryID < merged[j].MemoryID
	})
	return merged
}

// ShouldInject reports whether the best merged score clears the threshold.
func ShouldInject(results []Result, threshold float64) bool {
	if len(results) == 0 {
		return false
	}
	if threshold <= 0 {
		threshold = DefaultInjectionThreshold
	}
	best := results[0].Score
	for _, r := range results[1:] {
		if r.Score > best {
			best = r.Score
		}
	}
	return best >= threshold
}

// FormatForInjection renders ranked results as a numbered context block for
// a prompt, capped at five entries with a trailing overflow note.
func FormatForInjection(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	ranked := make([]Result, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	var b strings.Builder
	b.WriteString("Relevant memories:")
	shown := len(ranked)
	if shown > formattedMemoryCap {
		shown = formattedMemoryCap
	}
	for i := 0; i < shown; i++ {
		fmt.Fprintf(&b, "\n%d. %s", i+1, ranked[i].Content)
	}
	if len(ranked) > formattedMemoryCap {
		fmt.Fprintf(&b, "\n...and %d more", len(ranked)-formattedMemoryCap)
	}
	return b.String()
}

// filterForInjection keeps only results anchored to a strong primary signal.
// Primaries are high-similarity semantic hits, or failing that, keyword hits
// that matched enough of the extracted terms. The weaker strategies survive
// only when their concept is already covered by a primary.
func filterForInjection(results []Result, keywordTotal int, semanticPrimary bool) []Result {
	if len(results) == 0 {
		return nil
	}

	minKeywordMatches := 1
	if keywordTotal >= 3 {
		minKeywordMatches = 2
	}
	const semanticMinSimilarity = 0.45

	keywordQualifies := func(r Result) bool {
		total := r.KeywordTotal
		if total == 0 {
			total = keywordTotal
		}
		if total == 0 {
			return false
		}
		matched := len(r.MatchedKeywords)
		return matched >= minKeywordMatches && float64(matched)/float64(total) >= 0.5
	}

	primaries := make(map[int]struct{})
	semanticConcepts := make(map[string]struct{})
	effectiveSemanticPrimary := semanticPrimary
	for i, r := range results {
		if r.Strategy == StrategySemantic && r.Similarity >= semanticMinSimilarity {
			primaries[i] = struct{}{}
			semanticConcepts[r.ConceptID] = struct{}{}
		}
	}
	if len(primaries) == 0 || !semanticPrimary {
		effectiveSemanticPrimary = false
		primaries = make(map[int]struct{})
		for i, r := range results {
			switch r.Strategy {
			case StrategyKeyword:
				if keywordQualifies(r) {
					primaries[i] = struct{}{}
				}
			case StrategySemantic:
				if r.Similarity >= semanticMinSimilarity {
					primaries[i] = struct{}{}
				}
			}
		}
	}
	if len(primaries) == 0 {
		return nil
	}

	primaryConcepts := make(map[string]struct{})
	for i, r := range results {
		if _, ok := primaries[i]; ok && r.ConceptID != "" {
			primaryConcepts[r.ConceptID] = struct{}{}
		}
	}

	var filtered []Result
	for i, r := range results {
		if _, ok := primaries[i]; ok {
			filtered = append(filtered, r)
			continue
		}
		switch r.Strategy {
		case StrategyKeyword:
			if !keywordQualifies(r) {
				continue
			}
			if !effectiveSemanticPrimary {
				filtered = append(filtered, r)
			} else if _, ok := semanticConcepts[r.ConceptID]; ok {
				filtered = append(filtered, r)
			}
		case StrategyAssociative:
			if _, ok := primaryConcepts[r.SeedConceptID]; ok && r.SeedConceptID != "" {
				filtered = append(filtered, r)
			}
		case StrategyTemporal, StrategyStrength:
			if _, ok := primaryConcepts[r.ConceptID]; ok {
				filtered = append(filtered, r)
			}
		}
	}
	return filtered
}
