package recall

import (
	"strconv"
	"strings"
	"testing"
)

func TestMergeAndRank_DedupKeepsMaxScore(t *testing.T) {
	results := []Result{
		{MemoryID: "m1", Content: "same", Score: 0.1, Strategy: StrategyKeyword},
		{MemoryID: "m1", Content: "same", Score: 0.35, Strategy: StrategySemantic},
		{MemoryID: "m2", Content: "other", Score: 0.2, Strategy: StrategyKeyword},
	}
	merged := MergeAndRank(results)
	if len(merged) != 2 {
		t.Fatalf("expected 2 unique contents, got %d", len(merged))
	}
	if merged[0].Content != "same" || merged[0].Score != 0.35 {
		t.Fatalf("expected max-scored duplicate first, got %+v", merged[0])
	}
	if merged[0].Strategy != StrategySemantic {
		t.Fatalf("winning entry must keep its strategy, got %s", merged[0].Strategy)
	}
	if merged[1].Content != "other" {
		t.Fatalf("expected other second, got %+v", merged[1])
	}
}

func TestMergeAndRank_DeterministicTieBreak(t *testing.T) {
	results := []Result{
		{MemoryID: "m2", Content: "b", Score: 0.2},
		{MemoryID: "m1", Content: "a", Score: 0.2},
	}
	merged := MergeAndRank(results)
	if merged[0].MemoryID != "m1" {
		t.Fatalf("ties must break by memory id, got %s first", merged[0].MemoryID)
	}
}

func TestShouldInject(t *testing.T) {
	if ShouldInject(nil, 0.3) {
		t.Fatal("empty results must not inject")
	}
	low := []Result{{Content: "a", Score: 0.1}}
	if ShouldInject(low, 0.3) {
		t.Fatal("below-threshold results must not inject")
	}
	high := []Result{{Content: "a", Score: 0.1}, {Content: "b", Score: 0.31}}
	if !ShouldInject(high, 0.3) {
		t.Fatal("max score above threshold must inject")
	}
	if !ShouldInject(high, 0) {
		t.Fatal("zero threshold must use the default")
	}
}

func TestFormatForInjection_CapAndOverflow(t *testing.T) {
	var results []Result
	for i := 0; i < 7; i++ {
		results = append(results, Result{
			Content: "memory " + strconv.Itoa(i),
			Score:   float64(7-i) / 10,
		})
	}
	out := FormatForInjection(results)

	if !strings.HasPrefix(out, "Relevant memories:") {
		t.Fatalf("missing header: %q", out)
	}
	if !strings.Contains(out, "1. memory 0") || !strings.Contains(out, "5. memory 4") {
		t.Fatalf("numbered entries wrong: %q", out)
	}
	if strings.Contains(out, "memory 5") {
		t.Fatalf("entries beyond the cap must be elided: %q", out)
	}
	if !strings.Contains(out, "...and 2 more") {
		t.Fatalf("missing overflow note: %q", out)
	}

	if FormatForInjection(nil) != "" {
		t.Fatal("empty results must format to empty string")
	}
}

func TestFilterForInjection_KeywordPrimaryAnchorsWeakStrategies(t *testing.T) {
	results := []Result{
		{MemoryID: "m1", ConceptID: "c1", Content: "primary", Strategy: StrategyKeyword,
			MatchedKeywords: []string{"a", "b"}, KeywordTotal: 2, Score: 0.25},
		{MemoryID: "m2", ConceptID: "c1", Content: "anchored temporal", Strategy: StrategyTemporal, Score: 0.05},
		{MemoryID: "m3", ConceptID: "c9", Content: "stray temporal", Strategy: StrategyTemporal, Score: 0.05},
		{MemoryID: "m4", ConceptID: "c2", SeedConceptID: "c1", Content: "anchored associative",
			Strategy: StrategyAssociative, Score: 0.1},
		{MemoryID: "m5", ConceptID: "c3", SeedConceptID: "c9", Content: "stray associative",
			Strategy: StrategyAssociative, Score: 0.1},
	}
	filtered := filterForInjection(results, 2, false)

	kept := make(map[string]bool)
	for _, r := range filtered {
		kept[r.Content] = true
	}
	if !kept["primary"] || !kept["anchored temporal"] || !kept["anchored associative"] {
		t.Fatalf("anchored results missing: %v", kept)
	}
	if kept["stray temporal"] || kept["stray associative"] {
		t.Fatalf("unanchored results leaked: %v", kept)
	}
}

func TestFilterForInjection_SemanticPrimary(t *testing.T) {
	results := []Result{
		{MemoryID: "m1", ConceptID: "c1", Content: "strong semantic", Strategy: StrategySemantic,
			Similarity: 0.6, Score: 0.24},
		{MemoryID: "m2", ConceptID: "c1", Content: "same concept keyword", Strategy: StrategyKeyword,
			MatchedKeywords: []string{"a"}, KeywordTotal: 1, Score: 0.25},
		{MemoryID: "m3", ConceptID: "c2", Content: "other concept keyword", Strategy: StrategyKeyword,
			MatchedKeywords: []string{"a"}, KeywordTotal: 1, Score: 0.25},
	}
	filtered := filterForInjection(results, 1, true)

	kept := make(map[string]bool)
	for _, r := range filtered {
		kept[r.Content] = true
	}
	if !kept["strong semantic"] || !kept["same concept keyword"] {
		t.Fatalf("expected semantic primary and same-concept keyword, got %v", kept)
	}
	if kept["other concept keyword"] {
		t.Fatal("keyword hit outside semantic concepts must be filtered when semantic is primary")
	}
}

func TestFilterForInjection_WeakSemanticFallsBackToKeywords(t *testing.T) {
	results := []Result{
		{MemoryID: "m1", ConceptID: "c1", Content: "weak semantic", Strategy: StrategySemantic,
			Similarity: 0.35, Score: 0.14},
		{MemoryID: "m2", ConceptID: "c2", Content: "keyword hit", Strategy: StrategyKeyword,
			MatchedKeywords: []string{"a"}, KeywordTotal: 1, Score: 0.25},
	}
	filtered := filterForInjection(results, 1, true)

	if len(filtered) != 1 || filtered[0].Content != "keyword hit" {
		t.Fatalf("expected only the keyword hit, got %+v", filtered)
	}
}

func TestFilterForInjection_NoPrimaries(t *testing.T) {
	results := []Result{
		{MemoryID: "m1", ConceptID: "c1", Content: "temporal only", Strategy: StrategyTemporal, Score: 0.05},
	}
	if got := filterForInjection(results, 0, false); got != nil {
		t.Fatalf("no primary signal must filter everything, got %+v", got)
	}
}
