package graph

import (
	"sort"

	"github.com/mnemora/mnemora/internal/domain"
)

// Read-side accessors. Everything here returns copies so callers can score
// and rank without holding graph locks; the copies are a point-in-time view
// that may trail concurrent ingestion.

func (g *MemoryGraph) Concept(id string) (domain.Concept, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.concepts[id]
	if !ok {
		return domain.Concept{}, false
	}
	return *c, true
}

func (g *MemoryGraph) Memory(id string) (domain.Memory, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.memories[id]
	if !ok {
		return domain.Memory{}, false
	}
	return *m, true
}

func (g *MemoryGraph) Connection(id string) (domain.Connection, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		if c.ID == id {
			return *c, true
		}
	}
	return domain.Connection{}, false
}

// ConceptByName returns the first concept with the given name. Names are not
// unique; first match wins, which matches how the creator dedups by name
// within a single ingestion pass.
func (g *MemoryGraph) ConceptByName(name string) (domain.Concept, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.concepts {
		if c.Name == name {
			return *c, true
		}
	}
	return domain.Concept{}, false
}

// ImpressionConcept finds the person-impression concept for a group/person
// pair.
func (g *MemoryGraph) ImpressionConcept(groupID, personName string) (domain.Concept, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.concepts {
		if c.Kind == domain.ConceptPersonImpression && c.GroupID == groupID && c.PersonName == personName {
			return *c, true
		}
	}
	return domain.Concept{}, false
}

func (g *MemoryGraph) Concepts() []domain.Concept {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Concept, 0, len(g.concepts))
	for _, c := range g.concepts {
		out = append(out, *c)
	}
	return out
}

func (g *MemoryGraph) Memories() []domain.Memory {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Memory, 0, len(g.memories))
	for _, m := range g.memories {
		out = append(out, *m)
	}
	return out
}

func (g *MemoryGraph) Connections() []domain.Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Connection, 0, len(g.connections))
	for _, c := range g.connections {
		out = append(out, *c)
	}
	return out
}

// MemoriesOfConcept returns the memories attached to a concept, strongest
// first (ties broken by recency), the order every recall path wants them in.
func (g *MemoryGraph) MemoriesOfConcept(conceptID string) []domain.Memory {
	g.mu.RLock()
	var out []domain.Memory
	for _, m := range g.memories {
		if m.ConceptID == conceptID {
			out = append(out, *m)
		}
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].LastAccessed.After(out[j].LastAccessed)
	})
	return out
}

func (g *MemoryGraph) ConceptCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.concepts)
}

func (g *MemoryGraph) MemoryCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.memories)
}

func (g *MemoryGraph) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}

// Snapshot copies the full graph state for persistence.
func (g *MemoryGraph) Snapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Concepts:    g.Concepts(),
		Memories:    g.Memories(),
		Connections: g.Connections(),
	}
}

// Restore replays a snapshot into the graph through the normal mutators, so
// the adjacency index is rebuilt consistently. Intended for load-on-start
// into an empty graph.
func (g *MemoryGraph) Restore(snap *domain.Snapshot) {
	if snap == nil {
		return
	}
	for _, c := range snap.Concepts {
		g.AddConcept(c)
	}
	for _, m := range snap.Memories {
		g.AddMemory(m)
	}
	for _, conn := range snap.Connections {
		g.AddConnection(conn)
	}
}
