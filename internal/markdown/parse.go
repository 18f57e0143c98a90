package markdown

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/ywmark/internal/models"
)

type parseState int

const (
	stateNoChapter parseState = iota
	stateChapter
	stateScene
)

// parser holds the state of one left-to-right pass over the lines.
type parser struct {
	codec   *Codec
	project *models.Project

	state   parseState
	chapter *models.Chapter
	scene   *models.Scene
	lines   []string

	chCount int
	scCount int

	headerLines int
}

// Parse reads a Markdown manuscript into a project holding chapters and
// scenes only. Ids are minted sequentially from "1"; the parser has no
// access to any earlier id space. Any line that is not a heading or a
// divider is text, so Parse never fails.
func (c *Codec) Parse(text string) *models.Project {
	return c.parseLines(strings.Split(c.markup.fromMarkdown(text), "\n"))
}

// parseLines runs the state machine over lines that already went through
// the inverse markup conversion.
func (c *Codec) parseLines(lines []string) *models.Project {
	p := &parser{codec: c, project: models.NewProject()}
	for _, line := range lines {
		p.feed(line)
	}
	p.flushScene()
	return p.project
}

func (p *parser) feed(line string) {
	switch {
	case strings.HasPrefix(line, "#"):
		p.flushScene()
		p.openChapter(line)

	case strings.TrimSpace(line) == Divider:
		p.flushScene()

	case p.state == stateScene:
		p.lines = append(p.lines, line)

	case p.state == stateChapter && line != "":
		p.openScene(line)

	case p.state == stateNoChapter && line != "":
		p.readHeader(line)
	}
}

func (p *parser) openChapter(line string) {
	p.chCount++
	level := models.LevelChapter
	if strings.HasPrefix(line, "# ") {
		level = models.LevelPart
	}

	title := strings.TrimLeft(line, "#")
	if _, after, ok := strings.Cut(line, "# "); ok {
		title = after
	}

	p.chapter = &models.Chapter{
		Title:    p.codec.markup.title(strings.TrimSpace(title)),
		Level:    models.Ptr(level),
		OldType:  models.Ptr("0"),
		SceneIDs: []string{},
	}
	p.project.Chapters.Set(strconv.Itoa(p.chCount), p.chapter)
	p.state = stateChapter
}

func (p *parser) openScene(line string) {
	p.scCount++
	id := strconv.Itoa(p.scCount)
	p.scene = &models.Scene{Title: fmt.Sprintf("Scene %d", p.scCount)}
	p.project.Scenes.Set(id, p.scene)
	p.chapter.SceneIDs = append(p.chapter.SceneIDs, id)

	p.lines = []string{line}
	if p.codec.opts.SceneTitles {
		if title, rest, ok := p.splitTitleComment(line); ok {
			p.scene.Title = p.codec.markup.title(title)
			p.lines = []string{rest}
		}
	}
	p.state = stateScene
}

// splitTitleComment splits "<open>title<close>rest". ok is false when the
// line does not start with a complete comment.
func (p *parser) splitTitleComment(line string) (title, rest string, ok bool) {
	start, end := p.codec.markup.commentTokens()
	if !strings.HasPrefix(line, start) {
		return "", "", false
	}
	return strings.Cut(strings.TrimPrefix(line, start), end)
}

func (p *parser) flushScene() {
	if p.state != stateScene {
		return
	}
	lines := p.lines
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	p.scene.SetContent(strings.Join(lines, "\n"))

	status := models.StatusDraft
	if p.scene.WordCount() < LowWordCount {
		status = models.StatusOutline
	}
	p.scene.Status = models.Ptr(status)

	p.scene = nil
	p.lines = nil
	p.state = stateChapter
}

// readHeader recovers the project title and author from the header block
// written by Render: a bold title line followed by an italic author line.
func (p *parser) readHeader(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	switch p.headerLines {
	case 0:
		if title, ok := unwrapAny(line, [][2]string{{"[b]", "[/b]"}, {"**", "**"}}); ok {
			p.project.Title = p.codec.markup.title(title)
		}
	case 1:
		if author, ok := unwrapAny(line, [][2]string{{"[i]", "[/i]"}, {"*", "*"}}); ok {
			p.project.Author = models.Ptr(p.codec.markup.title(author))
		}
	}
	p.headerLines++
}

func unwrapAny(line string, pairs [][2]string) (string, bool) {
	for _, pair := range pairs {
		start, end := pair[0], pair[1]
		if len(line) > len(start)+len(end) && strings.HasPrefix(line, start) && strings.HasSuffix(line, end) {
			return line[len(start) : len(line)-len(end)], true
		}
	}
	return "", false
}
