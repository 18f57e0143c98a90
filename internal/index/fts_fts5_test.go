//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM scenes_fts`).Scan(&count); err != nil {
		t.Fatalf("scenes_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	p := testProject("FTS", "The index provides powerful full-text search capabilities.")
	if err := db.IndexProject("fts.yw7", "yw", "f1", p); err != nil {
		t.Fatalf("IndexProject: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Project != "fts.yw7" || results[0].SceneID != "1" {
		t.Errorf("hit = %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.IndexProject("gone.yw7", "yw", "g", testProject("Gone", "vanishing content"))
	_ = db.DeleteProject("gone.yw7")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.Project == "gone.yw7" {
			t.Error("deleted project still in FTS index")
		}
	}
}

func TestFTS5_ReindexReplacesContent(t *testing.T) {
	db := testDB(t)
	_ = db.IndexProject("evo.md", "markdown", "1", testProject("Old", "original text"))
	_ = db.IndexProject("evo.md", "markdown", "2", testProject("New", "replacement text"))

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Project != "evo.md" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
