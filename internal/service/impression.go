package service

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mnemora/mnemora/internal/domain"
	"github.com/mnemora/mnemora/internal/graph"
)

// DefaultImpressionScore is the neutral sentiment assumed before any
// impression of a person exists.
const DefaultImpressionScore = 0.5

// ImpressionSummary is the latest view of one person within a group.
type ImpressionSummary struct {
	PersonName  string    `json:"person_name"`
	Score       float64   `json:"score"`
	Summary     string    `json:"summary"`
	MemoryCount int       `json:"memory_count"`
	LastUpdated time.Time `json:"last_updated"`
}

// EnsurePersonImpression returns the impression concept for a person in a
// group, creating it on first reference.
func (s *MemorySystem) EnsurePersonImpression(groupID, personName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensurePersonImpressionLocked(groupID, personName)
}

func (s *MemorySystem) ensurePersonImpressionLocked(groupID, personName string) string {
	if personName == "" {
		return ""
	}
	if existing, ok := s.graph.ImpressionConcept(groupID, personName); ok {
		return existing.ID
	}
	id := s.graph.AddConcept(domain.Concept{
		Name:       personName,
		Kind:       domain.ConceptPersonImpression,
		GroupID:    groupID,
		PersonName: personName,
	})
	s.logger.Debug("created impression concept",
		zap.String("person", personName),
		zap.String("group_id", groupID))
	return id
}

// RecordImpression stores a new impression of a person. The sentiment score
// is clamped to [0,1] and carried as the memory's strength; a nil score uses
// the neutral default. Returns the new memory's ID, or empty on failure.
func (s *MemorySystem) RecordImpression(groupID, personName, summary string, score *float64, details string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordImpressionLocked(groupID, personName, summary, score, details)
}

func (s *MemorySystem) recordImpressionLocked(groupID, personName, summary string, score *float64, details string) string {
	conceptID := s.ensurePersonImpressionLocked(groupID, personName)
	if conceptID == "" || summary == "" {
		return ""
	}

	value := DefaultImpressionScore
	if score != nil {
		value = clamp01(*score)
	}

	return s.graph.AddMemory(domain.Memory{
		ConceptID:    conceptID,
		Content:      summary,
		Details:      details,
		Participants: personName,
		Strength:     value,
		GroupID:      groupID,
	})
}

// ImpressionScore reports the person's current sentiment: the strength of
// the most recently accessed impression memory, or the neutral default when
// none exists.
func (s *MemorySystem) ImpressionScore(groupID, personName string) float64 {
	latest, ok := s.latestImpression(groupID, personName)
	if !ok {
		return DefaultImpressionScore
	}
	return latest.Strength
}

// AdjustImpressionScore shifts the person's sentiment by delta, clamped to
// [0,1]. The latest impression memory is updated in place; when the person
// has no impressions yet, a new one is recorded at the adjusted score.
func (s *MemorySystem) AdjustImpressionScore(groupID, personName string, delta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := DefaultImpressionScore
	latest, ok := s.latestImpression(groupID, personName)
	if ok {
		current = latest.Strength
	}
	newScore := clamp01(current + delta)

	if ok {
		now := time.Now()
		s.graph.UpdateMemory(latest.ID, graph.MemoryUpdate{
			Strength:     &newScore,
			LastAccessed: &now,
		})
	} else {
		summary := fmt.Sprintf("impression of %s updated, current score %.2f", personName, newScore)
		s.recordImpressionLocked(groupID, personName, summary, &newScore, "")
	}
	return newScore
}

// ImpressionSummaryFor renders the latest impression state for a person.
func (s *MemorySystem) ImpressionSummaryFor(groupID, personName string) ImpressionSummary {
	summary := ImpressionSummary{
		PersonName: personName,
		Score:      DefaultImpressionScore,
		Summary:    fmt.Sprintf("no impression of %s yet", personName),
	}

	concept, ok := s.graph.ImpressionConcept(groupID, personName)
	if !ok {
		return summary
	}
	memories := s.impressionMemories(concept.ID, groupID)
	if len(memories) == 0 {
		return summary
	}

	latest := memories[0]
	summary.Score = latest.Strength
	summary.Summary = latest.Content
	summary.MemoryCount = len(memories)
	summary.LastUpdated = latest.LastAccessed
	return summary
}

// ImpressionMemories returns up to limit impression memories for a person,
// most recently accessed first.
func (s *MemorySystem) ImpressionMemories(groupID, personName string, limit int) []domain.Memory {
	concept, ok := s.graph.ImpressionConcept(groupID, personName)
	if !ok {
		return nil
	}
	memories := s.impressionMemories(concept.ID, groupID)
	if limit > 0 && len(memories) > limit {
		memories = memories[:limit]
	}
	return memories
}

func (s *MemorySystem) latestImpression(groupID, personName string) (domain.Memory, bool) {
	concept, ok := s.graph.ImpressionConcept(groupID, personName)
	if !ok {
		return domain.Memory{}, false
	}
	memories := s.impressionMemories(concept.ID, groupID)
	if len(memories) == 0 {
		return domain.Memory{}, false
	}
	return memories[0], true
}

func (s *MemorySystem) impressionMemories(conceptID, groupID string) []domain.Memory {
	all := s.graph.MemoriesOfConcept(conceptID)
	filtered := all[:0]
	for _, m := range all {
		if m.InGroup(groupID) {
			filtered = append(filtered, m)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].LastAccessed.After(filtered[j].LastAccessed)
	})
	return filtered
}
