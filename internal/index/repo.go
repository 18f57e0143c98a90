package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ywmark/internal/apperr"
	"github.com/starford/ywmark/internal/models"
)

// ProjectRow represents a row in the projects table.
type ProjectRow struct {
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Checksum  string    `json:"checksum"`
	Chapters  int       `json:"chapters"`
	Scenes    int       `json:"scenes"`
	Words     int       `json:"words"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SceneRow represents a row in the scenes table.
type SceneRow struct {
	Project  string   `json:"project"`
	SceneID  string   `json:"scene_id"`
	Position int      `json:"position"`
	Chapter  string   `json:"chapter"`
	Title    string   `json:"title"`
	Status   string   `json:"status"`
	Words    int      `json:"words"`
	Tags     []string `json:"tags"`
	Body     string   `json:"-"`
}

// SearchResult represents one scene search hit.
type SearchResult struct {
	Project string `json:"project"`
	SceneID string `json:"scene_id"`
	Chapter string `json:"chapter"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Snippet string `json:"snippet"`
}

// scanSearch reads rows of (project, scene_id, chapter, title, status,
// snippet).
func scanSearch(rows *sql.Rows) ([]SearchResult, error) {
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Project, &r.SceneID, &r.Chapter, &r.Title, &r.Status, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ConversionRow is one recorded conversion run.
type ConversionRow struct {
	ID        string        `json:"id"`
	Source    string        `json:"source"`
	Target    string        `json:"target"`
	Direction string        `json:"direction"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Created   bool          `json:"created"`
	Scenes    int           `json:"scenes"`
	Words     int           `json:"words"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}

// Conversion statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// sceneRows flattens p into scene rows in reading order. A scene listed by
// more than one chapter is indexed under the first.
func sceneRows(path string, p *models.Project) []SceneRow {
	var out []SceneRow
	seen := make(map[string]bool)
	for _, ch := range p.Chapters.All() {
		for _, scID := range ch.SceneIDs {
			sc, ok := p.Scenes.Get(scID)
			if !ok || seen[scID] {
				continue
			}
			seen[scID] = true
			body, _ := sc.Content()
			tags := sc.Tags
			if tags == nil {
				tags = []string{}
			}
			out = append(out, SceneRow{
				Project:  path,
				SceneID:  scID,
				Position: len(out),
				Chapter:  ch.Title,
				Title:    sc.Title,
				Status:   sc.CurrentStatus().String(),
				Words:    sc.WordCount(),
				Tags:     tags,
				Body:     body,
			})
		}
	}
	return out
}

// IndexProject replaces the project row and all scene rows for path within
// a transaction.
func (db *DB) IndexProject(path, format, checksum string, p *models.Project) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stats := p.Stats()
	_, err = tx.Exec(`
		INSERT INTO projects (path, format, title, author, checksum, chapters, scenes, words, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			format     = excluded.format,
			title      = excluded.title,
			author     = excluded.author,
			checksum   = excluded.checksum,
			chapters   = excluded.chapters,
			scenes     = excluded.scenes,
			words      = excluded.words,
			updated_at = excluded.updated_at
	`, path, format, p.Title, models.Deref(p.Author), checksum,
		stats.Chapters, stats.Scenes, stats.Words, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert project: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM scenes WHERE project = ?`, path); err != nil {
		return fmt.Errorf("index: clear scenes: %w", err)
	}
	if err := ftsDeleteProject(tx, path); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}

	rows := sceneRows(path, p)
	if len(rows) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO scenes (project, scene_id, position, chapter, title, status, words, tags, body)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare scene insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range rows {
			tagsJSON, _ := json.Marshal(r.Tags)
			if _, err := stmt.Exec(r.Project, r.SceneID, r.Position, r.Chapter, r.Title, r.Status, r.Words, string(tagsJSON), r.Body); err != nil {
				return fmt.Errorf("index: insert scene: %w", err)
			}
			if err := ftsInsert(tx, r); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteProject removes a project and its scenes.
func (db *DB) DeleteProject(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_ = ftsDeleteProject(tx, path)
	_, _ = tx.Exec(`DELETE FROM scenes WHERE project = ?`, path)
	_, _ = tx.Exec(`DELETE FROM projects WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM projects WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the checksum of every indexed file keyed by path.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

const projectColumns = `path, format, title, author, checksum, chapters, scenes, words, updated_at`

func scanProject(s interface{ Scan(...any) error }) (ProjectRow, error) {
	var r ProjectRow
	err := s.Scan(&r.Path, &r.Format, &r.Title, &r.Author, &r.Checksum, &r.Chapters, &r.Scenes, &r.Words, &r.UpdatedAt)
	return r, err
}

// ListProjects returns every indexed file ordered by path.
func (db *DB) ListProjects() ([]ProjectRow, error) {
	rows, err := db.conn.Query(`SELECT ` + projectColumns + ` FROM projects ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: list projects: %w", err)
	}
	defer rows.Close()

	out := []ProjectRow{}
	for rows.Next() {
		r, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetProject returns the row for path.
func (db *DB) GetProject(path string) (*ProjectRow, error) {
	r, err := scanProject(db.conn.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get project: %w", err)
	}
	return &r, nil
}

// Scenes returns the scenes of project in reading order.
func (db *DB) Scenes(project string) ([]SceneRow, error) {
	rows, err := db.conn.Query(`
		SELECT project, scene_id, position, chapter, title, status, words, tags, body
		FROM scenes WHERE project = ? ORDER BY position`, project)
	if err != nil {
		return nil, fmt.Errorf("index: scenes: %w", err)
	}
	defer rows.Close()

	out := []SceneRow{}
	for rows.Next() {
		var r SceneRow
		var tags string
		if err := rows.Scan(&r.Project, &r.SceneID, &r.Position, &r.Chapter, &r.Title, &r.Status, &r.Words, &tags, &r.Body); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tags), &r.Tags)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordConversion stores a conversion run and returns it with its id set.
func (db *DB) RecordConversion(c ConversionRow) (ConversionRow, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO conversions (id, source, target, direction, status, error, created, scenes, words, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Source, c.Target, c.Direction, c.Status, c.Error, c.Created, c.Scenes, c.Words,
		c.Duration.Milliseconds(), c.StartedAt)
	if err != nil {
		return c, fmt.Errorf("index: record conversion: %w", err)
	}
	return c, nil
}

// Conversions returns the most recent runs, newest first.
func (db *DB) Conversions(limit int) ([]ConversionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, source, target, direction, status, error, created, scenes, words, duration_ms, started_at
		FROM conversions ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("index: conversions: %w", err)
	}
	defer rows.Close()

	out := []ConversionRow{}
	for rows.Next() {
		var c ConversionRow
		var ms int64
		if err := rows.Scan(&c.ID, &c.Source, &c.Target, &c.Direction, &c.Status, &c.Error,
			&c.Created, &c.Scenes, &c.Words, &ms, &c.StartedAt); err != nil {
			return nil, err
		}
		c.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, c)
	}
	return out, rows.Err()
}
