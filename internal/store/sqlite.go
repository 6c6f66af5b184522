package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mnemora/mnemora/internal/domain"
)

// SQLiteStore persists whole graph snapshots. Group isolation lives in the
// group_id columns rather than separate database files, so one store serves
// every group.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at path and initializes
// the schema.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("graph store opened", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS concepts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT 'topic',
			group_id TEXT NOT NULL DEFAULT '',
			person_name TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL DEFAULT 0,
			last_accessed INTEGER NOT NULL DEFAULT 0,
			access_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_concepts_name ON concepts(name)`,
		`CREATE INDEX IF NOT EXISTS idx_concepts_group ON concepts(group_id)`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			concept_id TEXT NOT NULL,
			content TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			participants TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			emotion TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL DEFAULT 0,
			last_accessed INTEGER NOT NULL DEFAULT 0,
			access_count INTEGER NOT NULL DEFAULT 0,
			strength REAL NOT NULL DEFAULT 1.0,
			group_id TEXT NOT NULL DEFAULT '',
			allow_forget INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_concept ON memories(concept_id)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_group ON memories(group_id)`,
		`CREATE TABLE IF NOT EXISTS connections (
			id TEXT PRIMARY KEY,
			from_concept TEXT NOT NULL,
			to_concept TEXT NOT NULL,
			strength REAL NOT NULL DEFAULT 1.0,
			last_strengthened INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the full snapshot. An empty database yields an empty snapshot,
// not an error.
func (s *SQLiteStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, group_id, person_name, created_at, last_accessed, access_count FROM concepts`)
	if err != nil {
		return nil, fmt.Errorf("load concepts: %w", err)
	}
	for rows.Next() {
		var c domain.Concept
		var createdAt, lastAccessed int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.GroupID, &c.PersonName,
			&createdAt, &lastAccessed, &c.AccessCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		c.CreatedAt = fromMillis(createdAt)
		c.LastAccessed = fromMillis(lastAccessed)
		snap.Concepts = append(snap.Concepts, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, concept_id, content, details, participants, location, emotion, tags,
			created_at, last_accessed, access_count, strength, group_id, allow_forget FROM memories`)
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}
	for rows.Next() {
		var m domain.Memory
		var createdAt, lastAccessed int64
		var allowForget int
		if err := rows.Scan(&m.ID, &m.ConceptID, &m.Content, &m.Details, &m.Participants,
			&m.Location, &m.Emotion, &m.Tags, &createdAt, &lastAccessed,
			&m.AccessCount, &m.Strength, &m.GroupID, &allowForget); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.CreatedAt = fromMillis(createdAt)
		m.LastAccessed = fromMillis(lastAccessed)
		m.AllowForget = allowForget != 0
		snap.Memories = append(snap.Memories, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, from_concept, to_concept, strength, last_strengthened FROM connections`)
	if err != nil {
		return nil, fmt.Errorf("load connections: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.Connection
		var lastStrengthened int64
		if err := rows.Scan(&c.ID, &c.FromConcept, &c.ToConcept, &c.Strength, &lastStrengthened); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		c.LastStrengthened = fromMillis(lastStrengthened)
		snap.Connections = append(snap.Connections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("snapshot loaded",
		zap.Int("concepts", len(snap.Concepts)),
		zap.Int("memories", len(snap.Memories)),
		zap.Int("connections", len(snap.Connections)))
	return snap, nil
}

// Save replaces the persisted state with the snapshot in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"concepts", "memories", "connections"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, c := range snap.Concepts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO concepts (id, name, kind, group_id, person_name, created_at, last_accessed, access_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, string(c.Kind), c.GroupID, c.PersonName,
			toMillis(c.CreatedAt), toMillis(c.LastAccessed), c.AccessCount); err != nil {
			return fmt.Errorf("insert concept %s: %w", c.ID, err)
		}
	}
	for _, m := range snap.Memories {
		allowForget := 0
		if m.AllowForget {
			allowForget = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memories (id, concept_id, content, details, participants, location, emotion, tags,
				created_at, last_accessed, access_count, strength, group_id, allow_forget)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.ConceptID, m.Content, m.Details, m.Participants, m.Location, m.Emotion, m.Tags,
			toMillis(m.CreatedAt), toMillis(m.LastAccessed), m.AccessCount, m.Strength,
			m.GroupID, allowForget); err != nil {
			return fmt.Errorf("insert memory %s: %w", m.ID, err)
		}
	}
	for _, c := range snap.Connections {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO connections (id, from_concept, to_concept, strength, last_strengthened)
			 VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.FromConcept, c.ToConcept, c.Strength, toMillis(c.LastStrengthened)); err != nil {
			return fmt.Errorf("insert connection %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
