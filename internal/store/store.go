// Package store persists AI-generated project ideas in a local SQLite file.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"threatscout/internal/models"
)

// ErrNotFound is returned when an idea ID does not exist.
var ErrNotFound = errors.New("idea not found")

const schema = `
CREATE TABLE IF NOT EXISTS ideas (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL,
	inspiration_link TEXT,
	requirements    TEXT NOT NULL,
	functionalities TEXT NOT NULL,
	created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	implemented     BOOLEAN DEFAULT 0,
	implemented_at  TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_implemented ON ideas(implemented);
CREATE INDEX IF NOT EXISTS idx_created_at ON ideas(created_at DESC);
`

// Store wraps the ideas database. Safe for concurrent use; SQLite serializes
// writes behind the WAL.
type Store struct {
	db *sqlx.DB
}

// Open opens (and if needed creates) the ideas database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %v", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %v", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// ideaRow is the flat table shape; list fields are JSON-encoded text.
type ideaRow struct {
	ID              int64          `db:"id"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	InspirationLink sql.NullString `db:"inspiration_link"`
	Requirements    string         `db:"requirements"`
	Functionalities string         `db:"functionalities"`
	CreatedAt       time.Time      `db:"created_at"`
	Implemented     bool           `db:"implemented"`
	ImplementedAt   sql.NullTime   `db:"implemented_at"`
}

func (r ideaRow) toIdea() models.Idea {
	idea := models.Idea{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		InspirationLink: r.InspirationLink.String,
		CreatedAt:       r.CreatedAt,
		Implemented:     r.Implemented,
	}
	if r.ImplementedAt.Valid {
		idea.ImplementedAt = r.ImplementedAt.Time
	}
	// Rows written by us always hold valid JSON; a decode failure just
	// leaves the list empty.
	_ = json.Unmarshal([]byte(r.Requirements), &idea.Requirements)
	_ = json.Unmarshal([]byte(r.Functionalities), &idea.Functionalities)
	return idea
}

// SaveIdeas inserts a batch of ideas and returns their assigned IDs.
func (s *Store) SaveIdeas(ideas []models.Idea) ([]int64, error) {
	if len(ideas) == 0 {
		return nil, nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(ideas))
	for _, idea := range ideas {
		title := idea.Title
		if title == "" {
			title = "Untitled"
		}
		description := idea.Description
		if description == "" {
			description = "No description"
		}
		reqs, _ := json.Marshal(orEmpty(idea.Requirements))
		funcs, _ := json.Marshal(orEmpty(idea.Functionalities))

		res, err := tx.Exec(
			`INSERT INTO ideas (title, description, inspiration_link, requirements, functionalities)
			 VALUES (?, ?, ?, ?, ?)`,
			title, description, idea.InspirationLink, string(reqs), string(funcs),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert idea: %v", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read insert id: %v", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %v", err)
	}
	return ids, nil
}

// ListIdeas returns ideas newest first. limit <= 0 means no limit;
// implementedOnly restricts to implemented ideas.
func (s *Store) ListIdeas(limit int, implementedOnly bool) ([]models.Idea, error) {
	query := "SELECT * FROM ideas"
	if implementedOnly {
		query += " WHERE implemented = 1"
	}
	query += " ORDER BY created_at DESC, id DESC"

	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []ideaRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list ideas: %v", err)
	}

	ideas := make([]models.Idea, 0, len(rows))
	for _, r := range rows {
		ideas = append(ideas, r.toIdea())
	}
	return ideas, nil
}

// IdeaByID fetches one idea.
func (s *Store) IdeaByID(id int64) (models.Idea, error) {
	var row ideaRow
	err := s.db.Get(&row, "SELECT * FROM ideas WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Idea{}, ErrNotFound
	}
	if err != nil {
		return models.Idea{}, fmt.Errorf("failed to fetch idea: %v", err)
	}
	return row.toIdea(), nil
}

// MarkImplemented flags an idea as implemented. ErrNotFound covers both a
// missing ID and an already-implemented idea.
func (s *Store) MarkImplemented(id int64) error {
	res, err := s.db.Exec(
		"UPDATE ideas SET implemented = 1, implemented_at = CURRENT_TIMESTAMP WHERE id = ? AND implemented = 0", id)
	if err != nil {
		return fmt.Errorf("failed to mark implemented: %v", err)
	}
	return affectedOrNotFound(res)
}

// MarkUnimplemented clears the implemented flag.
func (s *Store) MarkUnimplemented(id int64) error {
	res, err := s.db.Exec(
		"UPDATE ideas SET implemented = 0, implemented_at = NULL WHERE id = ? AND implemented = 1", id)
	if err != nil {
		return fmt.Errorf("failed to mark unimplemented: %v", err)
	}
	return affectedOrNotFound(res)
}

// DeleteIdea removes an idea.
func (s *Store) DeleteIdea(id int64) error {
	res, err := s.db.Exec("DELETE FROM ideas WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete idea: %v", err)
	}
	return affectedOrNotFound(res)
}

// Counts returns totals for the status line above the saved-ideas paginator.
func (s *Store) Counts() (models.IdeaCounts, error) {
	var row struct {
		Total       int           `db:"total"`
		Implemented sql.NullInt64 `db:"implemented"`
	}
	err := s.db.Get(&row,
		"SELECT COUNT(*) AS total, SUM(CASE WHEN implemented = 1 THEN 1 ELSE 0 END) AS implemented FROM ideas")
	if err != nil {
		return models.IdeaCounts{}, fmt.Errorf("failed to count ideas: %v", err)
	}

	counts := models.IdeaCounts{Total: row.Total, Implemented: int(row.Implemented.Int64)}
	counts.Unimplemented = counts.Total - counts.Implemented
	return counts, nil
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %v", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
