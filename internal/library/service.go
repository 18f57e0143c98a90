// Package library coordinates storage, the manuscript index and the
// conversion service for the HTTP API and the MCP server.
package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/ywmark/internal/apperr"
	"github.com/starford/ywmark/internal/checksum"
	"github.com/starford/ywmark/internal/convert"
	"github.com/starford/ywmark/internal/index"
	"github.com/starford/ywmark/internal/storage"
)

// Service is the library facade shared by the API and MCP layers.
type Service struct {
	store  storage.Provider
	db     *index.DB
	conv   *convert.Service
	opts   convert.Options
	logger *slog.Logger
	md     goldmark.Markdown
}

// NewService creates a library service. opts apply to every conversion and
// decode the service performs.
func NewService(conv *convert.Service, db *index.DB, opts convert.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  conv.Store(),
		db:     db,
		conv:   conv,
		opts:   opts,
		logger: logger,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
		),
	}
}

// Options returns the conversion options the service applies.
func (s *Service) Options() convert.Options {
	return s.opts
}

// ListProjects returns every indexed library file.
func (s *Service) ListProjects(_ context.Context) ([]index.ProjectRow, error) {
	return s.db.ListProjects()
}

// GetProject decodes path from disk and returns its live structure.
func (s *Service) GetProject(ctx context.Context, path string) (*ProjectDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	p, format, err := convert.Decode(path, data, s.opts)
	if err != nil {
		return nil, err
	}
	return Describe(path, format.String(), checksum.Sum(data), p), nil
}

// Convert runs the conversion pipeline for path and re-indexes both files.
// When overwrite is false an export onto an existing Markdown file is
// refused with apperr.ErrCancelled.
func (s *Service) Convert(ctx context.Context, path string, overwrite bool) (*convert.Result, error) {
	session := s.conv.NewSession(s.opts, func(string) bool { return overwrite }).WithLogger(s.logger)
	res, err := session.Convert(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, p := range []string{res.Source, res.Target} {
		if idxErr := index.IndexPath(s.db, s.store, p, s.opts); idxErr != nil {
			s.logger.Warn("index after conversion failed",
				slog.String("path", p),
				slog.String("error", idxErr.Error()))
		}
	}
	return res, nil
}

// Search delegates full-text scene search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	results, err := s.db.Search(query, limit)
	return nonNilSlice(results), err
}

// Conversions returns the most recent conversion runs.
func (s *Service) Conversions(_ context.Context, limit int) ([]index.ConversionRow, error) {
	return s.db.Conversions(limit)
}

// Markdown returns the Markdown manuscript of path. Markdown files are
// returned as stored; projects are rendered without touching disk.
func (s *Service) Markdown(ctx context.Context, path string) (string, error) {
	return s.markdown(ctx, path, s.opts)
}

func (s *Service) markdown(ctx context.Context, path string, opts convert.Options) (string, error) {
	format, err := convert.FormatOf(path)
	if err != nil {
		return "", err
	}
	if format == convert.FormatMarkdown {
		data, err := s.store.Read(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	session := s.conv.NewSession(opts, nil).WithLogger(s.logger)
	p, _, err := session.LoadSource(ctx, path)
	if err != nil {
		return "", err
	}
	return session.Render(ctx, p, path, convert.FormatMarkdown)
}

// Preview renders the Markdown manuscript of path as HTML. Projects are
// rendered without title comments, which would otherwise turn a scene's
// first paragraph into a raw HTML block.
func (s *Service) Preview(ctx context.Context, path string) ([]byte, error) {
	opts := s.opts
	opts.Markdown.SceneTitles = false
	text, err := s.markdown(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(text), &buf); err != nil {
		return nil, fmt.Errorf("library: preview %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// ConversionRow builds the index row describing a conversion outcome.
func ConversionRow(source string, res *convert.Result, convErr error) index.ConversionRow {
	row := index.ConversionRow{Source: source, Status: index.StatusSucceeded}
	if res != nil {
		row.Target = res.Target
		row.Direction = string(res.Direction)
		row.Created = res.Created
		row.Scenes = res.Stats.Scenes
		row.Words = res.Stats.Words
		row.Duration = res.Duration
	}
	if convErr != nil {
		row.Status = index.StatusFailed
		row.Error = convErr.Error()
		if errors.Is(convErr, apperr.ErrCancelled) {
			row.Error = "cancelled"
		}
	}
	return row
}
