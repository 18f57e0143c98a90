// Package convert runs conversions between yWriter projects and Markdown
// manuscripts: load the source, reconcile it with an existing target and
// write the result.
package convert

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/ywmark/internal/apperr"
	"github.com/starford/ywmark/internal/markdown"
	"github.com/starford/ywmark/internal/models"
	"github.com/starford/ywmark/internal/yw"
)

// Format is the encoding of a file taking part in a conversion.
type Format int

const (
	FormatXML Format = iota + 1
	FormatMarkdown
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "yw"
	case FormatMarkdown:
		return "markdown"
	}
	return "unknown"
}

// FormatOf selects the format for path from its extension.
func FormatOf(path string) (Format, error) {
	if yw.IsProjectFile(path) {
		return FormatXML, nil
	}
	if strings.EqualFold(filepath.Ext(path), markdown.Extension) {
		return FormatMarkdown, nil
	}
	return 0, fmt.Errorf("convert: %s: %w", path, apperr.ErrUnsupportedType)
}

// Codec encodes and decodes one format. Encode receives the current file
// contents, or nil when the file does not exist yet.
type Codec interface {
	Decode(data []byte) (*models.Project, error)
	Encode(p *models.Project, existing []byte) ([]byte, error)
}

// Options configures one conversion run.
type Options struct {
	Markdown markdown.Options
}

func newCodecs(opts Options) map[Format]Codec {
	return map[Format]Codec{
		FormatXML:      yw.NewCodec(yw.YW7),
		FormatMarkdown: markdown.NewCodec(opts.Markdown),
	}
}

// targetPath swaps the extension of source for the opposite format.
func targetPath(source string, f Format) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	if f == FormatXML {
		return base + markdown.Extension
	}
	return base + yw.YW7.Extension
}

// Decode decodes data read from path with the codec its extension selects.
func Decode(path string, data []byte, opts Options) (*models.Project, Format, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, 0, err
	}
	codec := newCodecs(opts)[format]
	if d, ok := yw.DialectFor(path); ok {
		codec = yw.NewCodec(d)
	}
	p, err := codec.Decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("convert: decode %s: %w", path, err)
	}
	return p, format, nil
}
