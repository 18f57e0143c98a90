// Package testutil provides shared test helpers for setting up libraries,
// databases and sample projects.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ywmark/internal/convert"
	"github.com/starford/ywmark/internal/index"
	"github.com/starford/ywmark/internal/library"
	"github.com/starford/ywmark/internal/markdown"
	"github.com/starford/ywmark/internal/storage"
)

// SampleProject is a small yWriter 7 project: one part, one chapter with
// two scenes, one character and one location.
const SampleProject = `<?xml version="1.0" encoding="utf-8"?>
<YWRITER7>
	<PROJECT>
		<Ver>7</Ver>
		<Title><![CDATA[Novel]]></Title>
		<AuthorName><![CDATA[Ann]]></AuthorName>
	</PROJECT>
	<LOCATIONS>
		<LOCATION>
			<ID>1</ID>
			<Title><![CDATA[Harbor]]></Title>
		</LOCATION>
	</LOCATIONS>
	<ITEMS></ITEMS>
	<CHARACTERS>
		<CHARACTER>
			<ID>1</ID>
			<Title><![CDATA[Mara]]></Title>
			<Major>-1</Major>
		</CHARACTER>
	</CHARACTERS>
	<SCENES>
		<SCENE>
			<ID>1</ID>
			<Title><![CDATA[Intro]]></Title>
			<SceneContent><![CDATA[The lighthouse keeper woke before dawn and climbed the stairs.]]></SceneContent>
			<Status>2</Status>
			<Notes><![CDATA[Keep the tone quiet.]]></Notes>
			<Characters>
				<CharID>1</CharID>
			</Characters>
			<Locations>
				<LocID>1</LocID>
			</Locations>
		</SCENE>
		<SCENE>
			<ID>2</ID>
			<Title><![CDATA[Storm]]></Title>
			<SceneContent><![CDATA[Rain came from the [i]west[/i].]]></SceneContent>
			<Status>2</Status>
		</SCENE>
	</SCENES>
	<CHAPTERS>
		<CHAPTER>
			<ID>1</ID>
			<Title><![CDATA[Part One]]></Title>
			<SectionStart>-1</SectionStart>
			<Type>0</Type>
		</CHAPTER>
		<CHAPTER>
			<ID>2</ID>
			<Title><![CDATA[Arrival]]></Title>
			<Type>0</Type>
			<Scenes>
				<ScID>1</ScID>
				<ScID>2</ScID>
			</Scenes>
		</CHAPTER>
	</CHAPTERS>
</YWRITER7>
`

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "ywmark-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary library directory with a storage provider.
func TestLibrary(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Options are the conversion options used across tests: scene titles on,
// yWriter markup.
func Options() convert.Options {
	return convert.Options{Markdown: markdown.Options{SceneTitles: true}}
}

// TestConverter creates a conversion service over a temporary library with
// its own lock file.
func TestConverter(t *testing.T, opts ...convert.ServiceOption) (string, *convert.Service) {
	t.Helper()
	dir, store := TestLibrary(t)
	opts = append([]convert.ServiceOption{convert.WithLockFile(filepath.Join(t.TempDir(), "ywmark.lock"))}, opts...)
	return dir, convert.NewService(store, opts...)
}

// TestLibraryService wires a library service over a temporary library and
// database. Conversion runs are recorded in the database.
func TestLibraryService(t *testing.T) (string, *library.Service, *index.DB) {
	t.Helper()
	db := TestDB(t)
	dir, conv := TestConverter(t, convert.WithObserver(func(_ context.Context, source string, res *convert.Result, err error) {
		_, _ = db.RecordConversion(library.ConversionRow(source, res, err))
	}))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return dir, library.NewService(conv, db, Options(), logger), db
}

// WriteFile writes content to dir/name, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile returns the contents of dir/name.
func ReadFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
