// Package markdown reads and writes the flat Markdown manuscript: chapters
// as headings, scenes separated by "* * *", scene titles carried in leading
// comments.
package markdown

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/starford/ywmark/internal/apperr"
	"github.com/starford/ywmark/internal/models"
)

// Extension is the file extension handled by this codec.
const Extension = ".md"

// LowWordCount separates outlines from drafts when scenes are parsed.
const LowWordCount = 10

// Options configures one conversion run.
type Options struct {
	// MarkdownMode means scene text in the project already uses Markdown
	// emphasis and paragraph breaks, so no markup conversion is applied.
	MarkdownMode bool
	// SceneTitles associates a comment at the start of a scene with its title.
	SceneTitles bool
}

// Codec converts between a Project and Markdown text.
type Codec struct {
	opts   Options
	markup markup
}

// NewCodec builds a codec for opts.
func NewCodec(opts Options) *Codec {
	return &Codec{
		opts:   opts,
		markup: newMarkup(opts.MarkdownMode),
	}
}

// Options returns the options the codec was built with.
func (c *Codec) Options() Options {
	return c.opts
}

// Decode parses UTF-8 Markdown bytes.
func (c *Codec) Decode(data []byte) (*models.Project, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("markdown: %w: input is not valid UTF-8", apperr.ErrParse)
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return c.Parse(string(data)), nil
}

// Encode renders p. Markdown documents are always written from scratch, so
// existing is ignored.
func (c *Codec) Encode(p *models.Project, _ []byte) ([]byte, error) {
	return []byte(c.Render(p)), nil
}
