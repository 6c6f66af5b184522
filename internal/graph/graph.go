// Package graph holds the in-memory memory graph: concept nodes, memory
// records and undirected weighted connections, plus the adjacency index the
// recall strategies traverse.
package graph

import (
	"fmt"
	"sync"
	"time"

	"github.com/mnemora/mnemora/internal/domain"
)

// connectionStrengthenIncrement is added to an existing edge when the same
// concept pair is connected again, in either direction.
const connectionStrengthenIncrement = 0.1

// Neighbor is one adjacency entry: the concept on the other end of a
// connection and the connection's current strength.
type Neighbor struct {
	ConceptID string
	Strength  float64
}

// MemoryGraph owns all concept/memory/connection state. Mutators run to
// completion under the write lock and keep the adjacency index symmetric with
// the connection list in the same critical section; readers take the read
// lock and receive copies, so recall can run concurrently with ingestion and
// observe an eventually-consistent snapshot. Unknown ids make mutators return
// false rather than panic or error.
type MemoryGraph struct {
	mu          sync.RWMutex
	concepts    map[string]*domain.Concept
	memories    map[string]*domain.Memory
	connections []*domain.Connection
	adjacency   map[string][]Neighbor

	conceptCounter int
	memoryCounter  int
}

func New() *MemoryGraph {
	return &MemoryGraph{
		concepts:  make(map[string]*domain.Concept),
		memories:  make(map[string]*domain.Memory),
		adjacency: make(map[string][]Neighbor),
	}
}

// AddConcept inserts a concept node. A zero ID gets a generated time-based
// id; zero timestamps default to now; an empty Kind defaults to topic.
// Idempotent by id: re-adding an existing id returns it without modification.
// Names are intentionally not deduplicated here.
func (g *MemoryGraph) AddConcept(c domain.Concept) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c.ID == "" {
		g.conceptCounter++
		c.ID = fmt.Sprintf("concept_%d_%d", time.Now().UnixMilli(), g.conceptCounter)
	}
	if _, ok := g.concepts[c.ID]; ok {
		return c.ID
	}

	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.LastAccessed.IsZero() {
		c.LastAccessed = now
	}
	if c.Kind == "" {
		c.Kind = domain.ConceptTopic
	}

	g.concepts[c.ID] = &c
	if _, ok := g.adjacency[c.ID]; !ok {
		g.adjacency[c.ID] = nil
	}
	return c.ID
}

// AddMemory inserts a memory record. Always inserts: there is no
// content-based dedup, that is consolidation's job. Strength is stored
// exactly as given, zero included: impression scores and restored snapshots
// carry legitimate 0.0 strengths, so defaulting is the caller's concern.
func (g *MemoryGraph) AddMemory(m domain.Memory) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if m.ID == "" {
		g.memoryCounter++
		m.ID = fmt.Sprintf("memory_%d_%d", time.Now().UnixMilli(), g.memoryCounter)
	}

	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.LastAccessed.IsZero() {
		m.LastAccessed = now
	}

	g.memories[m.ID] = &m
	return m.ID
}

// AddConnection links two concepts. If an edge between the pair already
// exists in either direction, its strength is bumped by the strengthen
// increment and its timestamp refreshed, and the existing id is returned.
// Otherwise a new edge is created and mirrored into both adjacency
// directions. A zero Strength defaults to 1.0.
func (g *MemoryGraph) AddConnection(conn domain.Connection) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, existing := range g.connections {
		if (existing.FromConcept == conn.FromConcept && existing.ToConcept == conn.ToConcept) ||
			(existing.FromConcept == conn.ToConcept && existing.ToConcept == conn.FromConcept) {
			existing.Strength += connectionStrengthenIncrement
			existing.LastStrengthened = time.Now()
			g.setAdjacencyStrength(existing.FromConcept, existing.ToConcept, existing.Strength)
			g.setAdjacencyStrength(existing.ToConcept, existing.FromConcept, existing.Strength)
			return existing.ID
		}
	}

	if conn.ID == "" {
		conn.ID = fmt.Sprintf("conn_%s_%s", conn.FromConcept, conn.ToConcept)
	}
	if conn.Strength == 0 {
		conn.Strength = 1.0
	}
	if conn.LastStrengthened.IsZero() {
		conn.LastStrengthened = time.Now()
	}

	g.connections = append(g.connections, &conn)
	g.adjacency[conn.FromConcept] = append(g.adjacency[conn.FromConcept], Neighbor{ConceptID: conn.ToConcept, Strength: conn.Strength})
	g.adjacency[conn.ToConcept] = append(g.adjacency[conn.ToConcept], Neighbor{ConceptID: conn.FromConcept, Strength: conn.Strength})
	return conn.ID
}

// RemoveConnection deletes an edge and strips both adjacency directions.
func (g *MemoryGraph) RemoveConnection(connectionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeConnectionLocked(connectionID)
}

func (g *MemoryGraph) removeConnectionLocked(connectionID string) bool {
	idx := -1
	for i, c := range g.connections {
		if c.ID == connectionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	conn := g.connections[idx]
	g.connections = append(g.connections[:idx], g.connections[idx+1:]...)
	g.dropAdjacencyEntry(conn.FromConcept, conn.ToConcept)
	g.dropAdjacencyEntry(conn.ToConcept, conn.FromConcept)
	return true
}

// RemoveMemory deletes a memory record. Memories do not own connections, so
// nothing cascades.
func (g *MemoryGraph) RemoveMemory(memoryID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.memories[memoryID]; !ok {
		return false
	}
	delete(g.memories, memoryID)
	return true
}

// MemoryUpdate carries the mutable fields of a memory; nil fields are left
// untouched.
type MemoryUpdate struct {
	Content      *string
	Details      *string
	Participants *string
	Location     *string
	Emotion      *string
	Tags         *string
	Strength     *float64
	ConceptID    *string
	LastAccessed *time.Time
	CreatedAt    *time.Time
}

// UpdateMemory applies the non-nil fields of upd to the memory. Returns
// false when the id is unknown.
func (g *MemoryGraph) UpdateMemory(memoryID string, upd MemoryUpdate) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.memories[memoryID]
	if !ok {
		return false
	}
	if upd.Content != nil {
		m.Content = *upd.Content
	}
	if upd.Details != nil {
		m.Details = *upd.Details
	}
	if upd.Participants != nil {
		m.Participants = *upd.Participants
	}
	if upd.Location != nil {
		m.Location = *upd.Location
	}
	if upd.Emotion != nil {
		m.Emotion = *upd.Emotion
	}
	if upd.Tags != nil {
		m.Tags = *upd.Tags
	}
	if upd.Strength != nil {
		m.Strength = *upd.Strength
	}
	if upd.ConceptID != nil {
		m.ConceptID = *upd.ConceptID
	}
	if upd.LastAccessed != nil {
		m.LastAccessed = *upd.LastAccessed
	}
	if upd.CreatedAt != nil {
		m.CreatedAt = *upd.CreatedAt
	}
	return true
}

// SetConnectionStrength sets an edge's strength and mirrors it into both
// adjacency directions in the same operation.
func (g *MemoryGraph) SetConnectionStrength(connectionID string, strength float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	var target *domain.Connection
	for _, c := range g.connections {
		if c.ID == connectionID {
			target = c
			break
		}
	}
	if target == nil {
		return false
	}
	target.Strength = strength
	g.setAdjacencyStrength(target.FromConcept, target.ToConcept, strength)
	g.setAdjacencyStrength(target.ToConcept, target.FromConcept, strength)
	return true
}

// RemoveConcept cascades: every connection touching the concept, every
// memory attached to it, its adjacency entry and the concept itself are all
// removed. Neighboring concepts survive.
func (g *MemoryGraph) RemoveConcept(conceptID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.concepts[conceptID]; !ok {
		return false
	}

	var connIDs []string
	for _, c := range g.connections {
		if c.Touches(conceptID) {
			connIDs = append(connIDs, c.ID)
		}
	}
	for _, id := range connIDs {
		g.removeConnectionLocked(id)
	}

	for id, m := range g.memories {
		if m.ConceptID == conceptID {
			delete(g.memories, id)
		}
	}

	delete(g.adjacency, conceptID)
	delete(g.concepts, conceptID)
	return true
}

// Neighbors returns the adjacency entries for a concept; empty for unknown
// or isolated concepts.
func (g *MemoryGraph) Neighbors(conceptID string) []Neighbor {
	g.mu.RLock()
	defer g.mu.RUnlock()
	entries := g.adjacency[conceptID]
	out := make([]Neighbor, len(entries))
	copy(out, entries)
	return out
}

// RecordAccess bumps access counts and refreshes last-accessed for the given
// memory ids, skipping unknown ids. Returns how many were touched. This is
// the only mutation recall causes, and the caller invokes it after merging.
func (g *MemoryGraph) RecordAccess(memoryIDs []string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	touched := 0
	for _, id := range memoryIDs {
		if m, ok := g.memories[id]; ok {
			m.AccessCount++
			m.LastAccessed = now
			touched++
		}
	}
	return touched
}

func (g *MemoryGraph) setAdjacencyStrength(from, to string, strength float64) {
	entries := g.adjacency[from]
	for i := range entries {
		if entries[i].ConceptID == to {
			entries[i].Strength = strength
		}
	}
}

func (g *MemoryGraph) dropAdjacencyEntry(from, to string) {
	entries := g.adjacency[from]
	kept := entries[:0]
	for _, e := range entries {
		if e.ConceptID != to {
			kept = append(kept, e)
		}
	}
	g.adjacency[from] = kept
}
