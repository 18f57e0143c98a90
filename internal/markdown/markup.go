package markdown

import (
	"regexp"
	"strings"
)

// Divider is the line separating two scenes.
const Divider = "* * *"

// dividerPlaceholder stands in for dividers while emphasis is converted, so
// the asterisks of "* * *" are never taken for emphasis markers.
const dividerPlaceholder = "\uE000\uE001\uE000"

var (
	// Highlighting, alignment, strikethrough and underline markers have no
	// Markdown counterpart and are dropped.
	unsupportedTagRe = regexp.MustCompile(`\[/*[h|c|r|s|u]\d*\]`)

	boldRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe = regexp.MustCompile(`\*([^ ].+?[^ ])\*`)
)

type replacement struct {
	from, to string
}

// markup converts scene text between project markup ([i], [b], /* */) and
// Markdown. It is built once per codec and never modified.
type markup struct {
	markdownMode bool
	toMD         []replacement
	fromMD       []replacement
}

func newMarkup(markdownMode bool) markup {
	toMD := []replacement{
		{"[i] ", " [i]"},
		{"[b] ", " [b]"},
		{"[s] ", " [s]"},
		{"[i]", "*"},
		{"[/i]", "*"},
		{"[b]", "**"},
		{"[/b]", "**"},
		{"/*", "<!---"},
		{"*/", "--->"},
		{"  ", " "},
	}
	if !markdownMode {
		toMD = append([]replacement{{"\n", "\n\n"}}, toMD...)
	}
	return markup{
		markdownMode: markdownMode,
		toMD:         toMD,
		fromMD: []replacement{
			{"\n\n", "\n"},
			{"<!---", "/*"},
			{"--->", "*/"},
		},
	}
}

// toMarkdown converts project markup to Markdown.
func (m markup) toMarkdown(text string) string {
	for _, r := range m.toMD {
		text = strings.ReplaceAll(text, r.from, r.to)
	}
	return unsupportedTagRe.ReplaceAllString(text, "")
}

// fromMarkdown converts Markdown back to project markup. Text that is
// already marked up passes through unchanged.
func (m markup) fromMarkdown(text string) string {
	if m.markdownMode {
		return text
	}
	text = strings.ReplaceAll(text, Divider, dividerPlaceholder)
	text = boldRe.ReplaceAllString(text, "[b]${1}[/b]")
	text = italicRe.ReplaceAllString(text, "[i]${1}[/i]")
	text = strings.ReplaceAll(text, dividerPlaceholder, Divider)
	for _, r := range m.fromMD {
		text = strings.ReplaceAll(text, r.from, r.to)
	}
	return text
}

// titleMarkers restores the Markdown emphasis of a single-line title.
var titleMarkers = strings.NewReplacer("[i]", "*", "[/i]", "*", "[b]", "**", "[/b]", "**")

// title undoes fromMarkdown on a heading, header or title comment, whose
// text is stored verbatim rather than as project markup.
func (m markup) title(s string) string {
	if m.markdownMode {
		return s
	}
	return titleMarkers.Replace(s)
}

// commentTokens returns the delimiters of a scene title comment as they
// appear after fromMarkdown.
func (m markup) commentTokens() (start, end string) {
	if m.markdownMode {
		return "<!---", "--->"
	}
	return "/*", "*/"
}
