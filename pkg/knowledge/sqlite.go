package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const knowledgeSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);
`

// SQLiteIndex is a keyword-scored document index backed by SQLite.
type SQLiteIndex struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a knowledge index at the given path.
func OpenSQLite(path string) (*SQLiteIndex, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge database: %w", err)
	}
	if _, err := db.Exec(knowledgeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize knowledge schema: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

// Close releases the underlying database.
func (i *SQLiteIndex) Close() error {
	return i.db.Close()
}

// Ingest stores a document in the index.
func (i *SQLiteIndex) Ingest(ctx context.Context, title, category, content string) (int64, error) {
	res, err := i.db.ExecContext(ctx,
		"INSERT INTO documents (title, category, content) VALUES (?, ?, ?)",
		title, category, content)
	if err != nil {
		return 0, fmt.Errorf("failed to ingest document: %w", err)
	}
	return res.LastInsertId()
}

// Search returns the topK documents ranked by query term matches, restricted
// to the given categories when any are provided.
func (i *SQLiteIndex) Search(ctx context.Context, query string, categories []string, topK int) ([]Document, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = 3
	}

	sqlQuery := "SELECT id, title, category, content FROM documents"
	var args []any
	if len(categories) > 0 {
		placeholders := make([]string, len(categories))
		for n, cat := range categories {
			placeholders[n] = "?"
			args = append(args, cat)
		}
		sqlQuery += " WHERE category IN (" + strings.Join(placeholders, ", ") + ")"
	}

	rows, err := i.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var scored []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Category, &d.Content); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Score = scoreDocument(d, terms)
		if d.Score > 0 {
			scored = append(scored, d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// scoreDocument counts distinct query terms present, weighting title hits
// double.
func scoreDocument(d Document, terms []string) float64 {
	title := strings.ToLower(d.Title)
	content := strings.ToLower(d.Content)

	var score float64
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += 2
		} else if strings.Contains(content, term) {
			score++
		}
	}
	return score
}

func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	seen := make(map[string]bool)
	var terms []string
	for _, f := range fields {
		if len(f) < 3 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}
