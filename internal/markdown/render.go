package markdown

import (
	"strings"

	"github.com/starford/ywmark/internal/models"
)

const (
	partHeading    = "\n# "
	chapterHeading = "\n## "
	sceneDivider   = "\n\n" + Divider + "\n\n"
)

// Render writes the project as a Markdown manuscript. Chapters and scenes
// that are unused, trashed, notes or to-do are not exported.
func (c *Codec) Render(p *models.Project) string {
	var b strings.Builder

	b.WriteString("**" + p.Title + "**  \n  \n")
	if author := models.Deref(p.Author); author != "" {
		b.WriteString("*" + author + "*  \n  \n")
	}

	for _, ch := range p.Chapters.All() {
		if !ch.InManuscript() {
			continue
		}

		title := ch.Title
		if ch.TitleSuppressed() {
			title = ""
		}
		if ch.IsPart() {
			b.WriteString(partHeading + title + "\n\n")
		} else {
			b.WriteString(chapterHeading + title + "\n\n")
		}

		first := true
		for _, scID := range ch.SceneIDs {
			sc, ok := p.Scenes.Get(scID)
			if !ok || !exportScene(sc) {
				continue
			}
			c.renderScene(&b, sc, first)
			first = false
		}
	}

	return b.String()
}

func (c *Codec) renderScene(b *strings.Builder, sc *models.Scene, first bool) {
	appended := sc.AppendsToPrev() && !first
	if !first && !appended {
		b.WriteString(sceneDivider)
	}
	if c.opts.SceneTitles && !appended {
		b.WriteString("<!---" + sc.Title + "--->")
	}
	text, _ := sc.Content()
	b.WriteString(c.markup.toMarkdown(text))
	b.WriteString("\n\n")
}

func exportScene(sc *models.Scene) bool {
	return !sc.IsUnused() && !sc.IsExcluded() && sc.ContentKind() == models.KindNormal
}
