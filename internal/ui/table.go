package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/starford/ywmark/internal/checksum"
	"github.com/starford/ywmark/internal/library"
)

// ProjectTable renders the chapter and scene structure of d. Part headings
// get their own row; scenes are listed under their chapter.
func ProjectTable(d *library.ProjectDetail) string {
	tw := table.NewWriter()
	style := table.StyleRounded
	style.Format.Footer = text.FormatDefault
	tw.SetStyle(style)
	tw.AppendHeader(table.Row{"Chapter", "Scene", "Title", "Status", "Words", "Tags"})

	for _, ch := range d.Chapters {
		title := ch.Title
		if ch.Part {
			title = strings.ToUpper(title)
		}
		if ch.Kind != "normal" || ch.Unused {
			title += Hint(" (" + chapterNote(ch) + ")")
		}
		if len(ch.Scenes) == 0 {
			tw.AppendRow(table.Row{ch.ID, "", title, "", "", ""})
			continue
		}
		for i, sc := range ch.Scenes {
			chapterCell, sceneTitle := "", sc.Title
			if i == 0 {
				chapterCell = ch.ID
				sceneTitle = title + " / " + sc.Title
			}
			tw.AppendRow(table.Row{
				chapterCell,
				sc.ID,
				sceneTitle,
				sc.Status,
				humanize.Comma(int64(sc.Words)),
				strings.Join(sc.Tags, ", "),
			})
		}
	}

	tw.AppendFooter(table.Row{
		"", "", fmt.Sprintf("%d chapters, %d scenes", d.Stats.Chapters, d.Stats.Scenes), "",
		humanize.Comma(int64(d.Stats.Words)), "",
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}

func chapterNote(ch library.ChapterDetail) string {
	if ch.Unused {
		return "unused"
	}
	return ch.Kind
}

// ProjectSummary is the header printed above ProjectTable.
func ProjectSummary(d *library.ProjectDetail) string {
	var b strings.Builder
	b.WriteString(Bold.Render(d.Title))
	if d.Author != "" {
		b.WriteString(" by " + d.Author)
	}
	b.WriteString("\n")
	b.WriteString(Hint(fmt.Sprintf("%s · %s · %s words · %s letters",
		d.Path, checksum.Short(d.Checksum),
		humanize.Comma(int64(d.Stats.Words)), humanize.Comma(int64(d.Stats.Letters)))))
	b.WriteString("\n")
	for _, w := range []struct {
		label string
		names []string
	}{
		{"Characters", d.Characters},
		{"Locations", d.Locations},
		{"Items", d.Items},
	} {
		if len(w.names) > 0 {
			b.WriteString(fmt.Sprintf("%s: %s\n", w.label, strings.Join(w.names, ", ")))
		}
	}
	return b.String()
}
