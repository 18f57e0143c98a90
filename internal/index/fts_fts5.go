//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS scenes_fts USING fts5(
			project UNINDEXED,
			scene_id UNINDEXED,
			title,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, s SceneRow) error {
	_, err := tx.Exec(`INSERT INTO scenes_fts (project, scene_id, title, body, tags) VALUES (?, ?, ?, ?, ?)`,
		s.Project, s.SceneID, s.Title, s.Body, strings.Join(s.Tags, " "))
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsDeleteProject(tx *sql.Tx, project string) error {
	_, err := tx.Exec(`DELETE FROM scenes_fts WHERE project = ?`, project)
	return err
}

// Search runs an FTS5 query over scene titles, bodies and tags, best
// matches first. Snippets mark hits with <b>.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT scenes_fts.project,
		       scenes_fts.scene_id,
		       scenes.chapter,
		       scenes_fts.title,
		       scenes.status,
		       snippet(scenes_fts, 3, '<b>', '</b>', '...', 32)
		FROM scenes_fts
		JOIN scenes ON scenes.project = scenes_fts.project AND scenes.scene_id = scenes_fts.scene_id
		WHERE scenes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()
	return scanSearch(rows)
}
