//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"
)

// snippetRadius is the number of bytes kept on each side of a LIKE match.
const snippetRadius = 60

// Without FTS5 the scene bodies in the scenes table are searched directly.
func initFTS(_ *sql.DB) error { return nil }

func ftsInsert(_ *sql.Tx, _ SceneRow) error { return nil }

func ftsDeleteProject(_ *sql.Tx, _ string) error { return nil }

// Search matches query as a substring of scene titles, bodies and tags.
// Snippets are cut around the first body match.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT project, scene_id, chapter, title, status, body
		FROM scenes
		WHERE title LIKE ? OR body LIKE ? OR tags LIKE ?
		ORDER BY project, position
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	out, err := scanSearch(rows)
	for i := range out {
		out[i].Snippet = likeSnippet(out[i].Snippet, query)
	}
	return out, err
}

// likeSnippet cuts body around the first case-insensitive occurrence of
// query, or returns its opening when the match was in the title or tags.
func likeSnippet(body, query string) string {
	at := strings.Index(strings.ToLower(body), strings.ToLower(query))
	if at < 0 {
		at = 0
	}
	start, end := at-snippetRadius, at+len(query)+snippetRadius
	prefix, suffix := "...", "..."
	if start <= 0 {
		start, prefix = 0, ""
	}
	if end >= len(body) {
		end, suffix = len(body), ""
	}
	for start > 0 && !utf8.RuneStart(body[start]) {
		start--
	}
	for end < len(body) && !utf8.RuneStart(body[end]) {
		end++
	}
	return prefix + strings.TrimSpace(body[start:end]) + suffix
}
