package domain

import "time"

type ConceptKind string

const (
	ConceptTopic            ConceptKind = "topic"
	ConceptPersonImpression ConceptKind = "person_impression"
)

func ValidConceptKind(k string) bool {
	switch ConceptKind(k) {
	case ConceptTopic, ConceptPersonImpression:
		return true
	}
	return false
}

// Concept is a named theme node in the memory graph. Names are not unique;
// callers that want one concept per theme dedup by name before inserting.
type Concept struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Kind         ConceptKind `json:"kind"`
	GroupID      string      `json:"group_id,omitempty"`
	PersonName   string      `json:"person_name,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	LastAccessed time.Time   `json:"last_accessed"`
	AccessCount  int         `json:"access_count"`
}

// Memory is a content record attached to exactly one concept. Strength is a
// decaying importance proxy, nominally in [0,1]; construction does not clamp,
// callers that need the bound (impressions) clamp themselves. For impression
// memories Strength doubles as the affinity score for the person.
type Memory struct {
	ID           string    `json:"id"`
	ConceptID    string    `json:"concept_id"`
	Content      string    `json:"content"`
	Details      string    `json:"details,omitempty"`
	Participants string    `json:"participants,omitempty"`
	Location     string    `json:"location,omitempty"`
	Emotion      string    `json:"emotion,omitempty"`
	Tags         string    `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int       `json:"access_count"`
	Strength     float64   `json:"strength"`
	GroupID      string    `json:"group_id,omitempty"`
	AllowForget  bool      `json:"allow_forget"`
}

// InGroup reports whether the memory belongs to the given group scope.
// An empty group id selects only private (ungrouped) memories.
func (m *Memory) InGroup(groupID string) bool {
	return m.GroupID == groupID
}

// Connection is an undirected strength-weighted edge between two concepts.
// The from/to order carries no meaning; the graph treats both directions as
// the same edge.
type Connection struct {
	ID               string    `json:"id"`
	FromConcept      string    `json:"from_concept"`
	ToConcept        string    `json:"to_concept"`
	Strength         float64   `json:"strength"`
	LastStrengthened time.Time `json:"last_strengthened"`
}

// Touches reports whether the connection has the concept as either endpoint.
func (c *Connection) Touches(conceptID string) bool {
	return c.FromConcept == conceptID || c.ToConcept == conceptID
}

// Other returns the opposite endpoint, or "" if conceptID is not an endpoint.
func (c *Connection) Other(conceptID string) string {
	switch conceptID {
	case c.FromConcept:
		return c.ToConcept
	case c.ToConcept:
		return c.FromConcept
	}
	return ""
}

// Snapshot is the persistence unit exchanged with a GraphStore: the full
// graph state at a checkpoint.
type Snapshot struct {
	Concepts    []Concept    `json:"concepts"`
	Memories    []Memory     `json:"memories"`
	Connections []Connection `json:"connections"`
}
