package convert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/ywmark/internal/apperr"
	"github.com/starford/ywmark/internal/merge"
	"github.com/starford/ywmark/internal/models"
	"github.com/starford/ywmark/internal/yw"
)

// Session carries the configuration of one invocation. The codecs are built
// once per session and never change afterwards.
type Session struct {
	svc     *Service
	opts    Options
	confirm ConfirmFunc
	codecs  map[Format]Codec
	logger  *slog.Logger
}

// WithLogger returns a copy of the session logging to l.
func (s *Session) WithLogger(l *slog.Logger) *Session {
	cp := *s
	cp.logger = l
	return &cp
}

// codec returns the codec for format. XML paths select their own dialect.
func (s *Session) codec(format Format, path string) Codec {
	if format == FormatXML {
		if d, ok := yw.DialectFor(path); ok {
			return yw.NewCodec(d)
		}
	}
	return s.codecs[format]
}

// LoadSource reads and decodes the file at path.
func (s *Session) LoadSource(ctx context.Context, path string) (*models.Project, Format, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	data, err := s.svc.store.Read(path)
	if err != nil {
		return nil, 0, err
	}
	p, err := s.codec(format, path).Decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("convert: load %s: %w", path, err)
	}
	return p, format, nil
}

// LoadTargetIfExists reads the project at path. ok is false when there is
// no such file.
func (s *Session) LoadTargetIfExists(ctx context.Context, path string) (*models.Project, bool, error) {
	exists, err := s.svc.store.Exists(path)
	if err != nil || !exists {
		return nil, false, err
	}
	p, _, err := s.LoadSource(ctx, path)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Merge reconciles source into target and returns the updated target.
func (s *Session) Merge(target, source *models.Project) (*models.Project, error) {
	res, err := s.merge(target, source)
	if err != nil {
		return nil, err
	}
	return res.Project, nil
}

func (s *Session) merge(target, source *models.Project) (*merge.Result, error) {
	res, err := merge.Merge(target, source)
	if err != nil {
		return nil, err
	}
	for _, d := range res.DroppedRefs {
		s.logger.Warn("dropped dangling reference",
			slog.String("scene", d.SceneID),
			slog.String("kind", string(d.Kind)),
			slog.String("id", d.ID))
	}
	return res, nil
}

// Render encodes project for path. For project files the current contents
// are updated in place when the file exists.
func (s *Session) Render(ctx context.Context, project *models.Project, path string, format Format) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var existing []byte
	if format == FormatXML {
		ok, err := s.svc.store.Exists(path)
		if err != nil {
			return "", err
		}
		if ok {
			if existing, err = s.svc.store.Read(path); err != nil {
				return "", err
			}
		}
	}
	out, err := s.codec(format, path).Encode(project, existing)
	if err != nil {
		return "", fmt.Errorf("convert: render %s: %w", path, err)
	}
	return string(out), nil
}

// Convert runs the whole pipeline for sourcePath: a project is exported to
// Markdown next to it, a Markdown file is merged into (or creates) the
// project next to it.
func (s *Session) Convert(ctx context.Context, sourcePath string) (res *Result, err error) {
	defer func() { s.svc.notify(ctx, sourcePath, res, err) }()

	format, err := FormatOf(sourcePath)
	if err != nil {
		return nil, err
	}
	release, err := s.svc.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	switch format {
	case FormatXML:
		res, err = s.export(ctx, sourcePath)
	default:
		res, err = s.importMarkdown(ctx, sourcePath)
	}
	if err != nil {
		s.logger.Error("conversion failed",
			slog.String("source", sourcePath),
			slog.String("error", err.Error()))
		return nil, err
	}
	res.Duration = time.Since(start)
	s.logger.Info("conversion finished",
		slog.String("source", res.Source),
		slog.String("target", res.Target),
		slog.String("direction", string(res.Direction)),
		slog.Bool("created", res.Created),
		slog.Int("scenes", res.Stats.Scenes),
		slog.Int("words", res.Stats.Words))
	return res, nil
}

func (s *Session) export(ctx context.Context, sourcePath string) (*Result, error) {
	project, _, err := s.LoadSource(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	target := targetPath(sourcePath, FormatXML)

	exists, err := s.svc.store.Exists(target)
	if err != nil {
		return nil, err
	}
	if exists && s.confirm != nil && !s.confirm(fmt.Sprintf("Overwrite existing file %q?", target)) {
		return nil, fmt.Errorf("convert: %s: %w", target, apperr.ErrCancelled)
	}

	text, err := s.Render(ctx, project, target, FormatMarkdown)
	if err != nil {
		return nil, err
	}
	if err := s.svc.store.Write(target, []byte(text)); err != nil {
		return nil, err
	}
	return &Result{
		Source:    sourcePath,
		Target:    target,
		Direction: DirectionExport,
		Created:   !exists,
		Stats:     project.Stats(),
	}, nil
}

func (s *Session) importMarkdown(ctx context.Context, sourcePath string) (*Result, error) {
	source, _, err := s.LoadSource(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	target := targetPath(sourcePath, FormatMarkdown)

	project, exists, err := s.LoadTargetIfExists(ctx, target)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Source:    sourcePath,
		Target:    target,
		Direction: DirectionImport,
		Created:   !exists,
	}
	if exists {
		merged, err := s.merge(project, source)
		if err != nil {
			return nil, err
		}
		project = merged.Project
		res.DroppedRefs = merged.DroppedRefs
	} else {
		project = source
	}

	text, err := s.Render(ctx, project, target, FormatXML)
	if err != nil {
		return nil, err
	}
	if err := s.svc.store.Write(target, []byte(text)); err != nil {
		return nil, err
	}
	res.Stats = project.Stats()
	return res, nil
}
