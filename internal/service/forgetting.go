package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/mnemora/mnemora/internal/graph"
)

const (
	connectionDecayRate    = 0.9
	connectionRemovalFloor = 0.1

	memoryDecayCap     = 0.6
	memoryDecayScale   = 0.4
	memoryRemovalFloor = 0.12
	forgetScoreCeiling = 0.9
)

type ForgettingResult struct {
	MemoriesDecayed    int `json:"memories_decayed"`
	MemoriesRemoved    int `json:"memories_removed"`
	ConnectionsDecayed int `json:"connections_decayed"`
	ConnectionsRemoved int `json:"connections_removed"`
}

// ForgettingEngine decays connection and memory strength as a function of
// staleness and access frequency, hard-deleting whatever falls under the
// removal thresholds. Removal happens after the full decay pass so iteration
// never observes a half-deleted graph.
type ForgettingEngine struct {
	graph     *graph.MemoryGraph
	threshold time.Duration
	logger    *zap.Logger
}

// NewForgettingEngine builds the engine. threshold is how long a memory or
// connection may go untouched before decay applies; zero or negative
// disables the memory pass entirely.
func NewForgettingEngine(g *graph.MemoryGraph, threshold time.Duration, logger *zap.Logger) *ForgettingEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForgettingEngine{graph: g, threshold: threshold, logger: logger}
}

func (e *ForgettingEngine) Run() ForgettingResult {
	var res ForgettingResult
	now := time.Now()

	// Stale connections lose a tenth of their strength per pass.
	var deadConnections []string
	for _, conn := range e.graph.Connections() {
		if e.threshold <= 0 || now.Sub(conn.LastStrengthened) <= e.threshold {
			continue
		}
		weakened := conn.Strength * connectionDecayRate
		e.graph.SetConnectionStrength(conn.ID, weakened)
		res.ConnectionsDecayed++
		if weakened < connectionRemovalFloor {
			deadConnections = append(deadConnections, conn.ID)
		}
	}
	for _, id := range deadConnections {
		if e.graph.RemoveConnection(id) {
			res.ConnectionsRemoved++
		}
	}

	if e.threshold <= 0 {
		return res
	}

	// Memory decay combines staleness with how rarely the memory is
	// recalled. Removal needs all three conditions at once so a single old
	// but frequently accessed memory survives indefinitely.
	var deadMemories []string
	for _, m := range e.graph.Memories() {
		if !m.AllowForget {
			continue
		}
		lastTouched := m.LastAccessed
		if lastTouched.IsZero() {
			lastTouched = m.CreatedAt
		}
		if lastTouched.IsZero() {
			lastTouched = now
		}
		elapsed := now.Sub(lastTouched)
		if elapsed < 0 {
			elapsed = 0
		}
		timeFactor := elapsed.Seconds() / e.threshold.Seconds()

		accessCount := m.AccessCount
		if accessCount < 0 {
			accessCount = 0
		}
		accessFactor := 1.0 / (1.0 + float64(accessCount))

		decay := timeFactor * accessFactor * memoryDecayScale
		if decay > memoryDecayCap {
			decay = memoryDecayCap
		}

		strength := m.Strength
		if decay > 0 {
			strength = m.Strength * (1.0 - decay)
			if strength < 0 {
				strength = 0
			}
			e.graph.UpdateMemory(m.ID, graph.MemoryUpdate{Strength: &strength})
			res.MemoriesDecayed++
		}

		if timeFactor >= 1.0 && strength < memoryRemovalFloor && timeFactor*accessFactor > forgetScoreCeiling {
			deadMemories = append(deadMemories, m.ID)
		}
	}
	for _, id := range deadMemories {
		if e.graph.RemoveMemory(id) {
			res.MemoriesRemoved++
		}
	}

	if res.MemoriesRemoved > 0 || res.ConnectionsRemoved > 0 {
		e.logger.Info("forgetting pass complete",
			zap.Int("memories_removed", res.MemoriesRemoved),
			zap.Int("connections_removed", res.ConnectionsRemoved))
	} else {
		e.logger.Debug("forgetting pass complete, nothing removed")
	}
	return res
}
