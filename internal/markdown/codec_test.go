package markdown

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/ywmark/internal/apperr"
	"github.com/starford/ywmark/internal/models"
)

func sampleProject() *models.Project {
	p := models.NewProject()
	p.Title = "Novel"
	p.Author = models.Ptr("Ann")

	intro := &models.Scene{Title: "Intro"}
	intro.SetContent("It was [i]dark[/i].\nThe end came.")
	storm := &models.Scene{Title: "Storm"}
	storm.SetContent("Rain fell on the roof of the old house for days and days.")
	p.Scenes.Set("1", intro)
	p.Scenes.Set("2", storm)

	p.Chapters.Set("1", &models.Chapter{Title: "Part One", Level: models.Ptr(models.LevelPart)})
	p.Chapters.Set("2", &models.Chapter{Title: "Arrival", SceneIDs: []string{"1", "2"}})
	return p
}

func sceneContent(t *testing.T, p *models.Project, id string) string {
	t.Helper()
	sc, ok := p.Scenes.Get(id)
	if !ok {
		t.Fatalf("scene %s missing", id)
	}
	text, _ := sc.Content()
	return text
}

func TestParse_CommentTitleExtraction(t *testing.T) {
	c := NewCodec(Options{SceneTitles: true})
	p := c.parseLines([]string{"## Chapter", "/*Intro*/The story begins."})

	sc, ok := p.Scenes.Get("1")
	if !ok {
		t.Fatal("scene 1 missing")
	}
	if sc.Title != "Intro" {
		t.Errorf("title = %q, want Intro", sc.Title)
	}
	if text, _ := sc.Content(); text != "The story begins." {
		t.Errorf("content = %q", text)
	}
}

func TestParse_CommentTitleFromMarkdownComment(t *testing.T) {
	c := NewCodec(Options{SceneTitles: true})
	p := c.Parse("## Chapter\n\n<!---Intro--->The story begins.\n")
	sc, _ := p.Scenes.Get("1")
	if sc.Title != "Intro" {
		t.Errorf("title = %q, want Intro", sc.Title)
	}
}

func TestParse_UnterminatedCommentIsBody(t *testing.T) {
	c := NewCodec(Options{SceneTitles: true})
	p := c.parseLines([]string{"## Chapter", "/*Intro without end"})
	sc, _ := p.Scenes.Get("1")
	if sc.Title != "Scene 1" {
		t.Errorf("title = %q, want placeholder", sc.Title)
	}
	if text, _ := sc.Content(); text != "/*Intro without end" {
		t.Errorf("content = %q", text)
	}
}

func TestParse_SceneTitlesDisabled(t *testing.T) {
	c := NewCodec(Options{SceneTitles: false})
	p := c.parseLines([]string{"## Chapter", "/*Intro*/Text", "* * *", "More"})
	sc, _ := p.Scenes.Get("1")
	if sc.Title != "Scene 1" {
		t.Errorf("title = %q", sc.Title)
	}
	if text, _ := sc.Content(); text != "/*Intro*/Text" {
		t.Errorf("content = %q", text)
	}
	sc2, _ := p.Scenes.Get("2")
	if sc2.Title != "Scene 2" {
		t.Errorf("second title = %q", sc2.Title)
	}
}

func TestParse_LowWordCountStatus(t *testing.T) {
	c := NewCodec(Options{})
	p := c.parseLines([]string{
		"## Chapter",
		"one two three four five six seven eight nine",
		"* * *",
		"one two three four five six seven eight nine ten",
	})
	short, _ := p.Scenes.Get("1")
	long, _ := p.Scenes.Get("2")
	if short.CurrentStatus() != models.StatusOutline {
		t.Errorf("9 words: status = %v, want Outline", short.CurrentStatus())
	}
	if long.CurrentStatus() != models.StatusDraft {
		t.Errorf("10 words: status = %v, want Draft", long.CurrentStatus())
	}
}

func TestParse_HeadingLevels(t *testing.T) {
	c := NewCodec(Options{})
	p := c.parseLines([]string{"# Part", "## Chapter", "#Bare"})

	want := []struct {
		title string
		level models.Level
	}{
		{"Part", models.LevelPart},
		{"Chapter", models.LevelChapter},
		{"Bare", models.LevelChapter},
	}
	ids := p.Chapters.IDs()
	if len(ids) != len(want) {
		t.Fatalf("chapters = %v", ids)
	}
	for i, w := range want {
		ch, _ := p.Chapters.Get(ids[i])
		if ch.Title != w.title || models.Deref(ch.Level) != w.level {
			t.Errorf("chapter %d = %q/%v, want %q/%v", i, ch.Title, models.Deref(ch.Level), w.title, w.level)
		}
		if models.Deref(ch.OldType) != "0" {
			t.Errorf("chapter %d old type = %q", i, models.Deref(ch.OldType))
		}
	}
}

func TestParse_TextBeforeFirstChapterIgnored(t *testing.T) {
	c := NewCodec(Options{})
	p := c.parseLines([]string{"stray text", "more", "", "## Chapter", "Body"})
	if p.Scenes.Len() != 1 {
		t.Fatalf("scenes = %d, want 1", p.Scenes.Len())
	}
	if got := sceneContent(t, p, "1"); got != "Body" {
		t.Errorf("content = %q", got)
	}
}

func TestParse_SequentialIDs(t *testing.T) {
	c := NewCodec(Options{})
	p := c.parseLines([]string{"## A", "x", "* * *", "y", "## B", "z"})
	if got := strings.Join(p.Chapters.IDs(), ","); got != "1,2" {
		t.Errorf("chapter ids = %s", got)
	}
	if got := strings.Join(p.Scenes.IDs(), ","); got != "1,2,3" {
		t.Errorf("scene ids = %s", got)
	}
	b, _ := p.Chapters.Get("2")
	if strings.Join(b.SceneIDs, ",") != "3" {
		t.Errorf("chapter B scenes = %v", b.SceneIDs)
	}
}

func TestRender_Layout(t *testing.T) {
	c := NewCodec(Options{SceneTitles: true})
	got := c.Render(sampleProject())
	want := "**Novel**  \n  \n*Ann*  \n  \n" +
		"\n# Part One\n\n" +
		"\n## Arrival\n\n" +
		"<!---Intro--->It was *dark*.\n\nThe end came.\n\n" +
		"\n\n* * *\n\n" +
		"<!---Storm--->Rain fell on the roof of the old house for days and days.\n\n"
	if got != want {
		t.Errorf("render mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRender_SceneTitlesDisabledOmitsComment(t *testing.T) {
	c := NewCodec(Options{SceneTitles: false})
	got := c.Render(sampleProject())
	if strings.Contains(got, "<!---") {
		t.Errorf("unexpected title comment in %q", got)
	}
}

func TestRender_SuppressedTitleAndSkippedEntities(t *testing.T) {
	p := sampleProject()
	ch, _ := p.Chapters.Get("2")
	ch.SuppressTitle = models.Ptr(true)

	unused := &models.Scene{Title: "Cut", Unused: models.Ptr(true)}
	unused.SetContent("cut text")
	notes := &models.Scene{Title: "Notes", Kind: models.Ptr(models.KindNotes)}
	notes.SetContent("note text")
	p.Scenes.Set("3", unused)
	p.Scenes.Set("4", notes)
	ch.SceneIDs = []string{"3", "1", "4", "2"}

	p.Chapters.Set("3", &models.Chapter{Title: "Trash", IsTrash: models.Ptr(true)})

	got := NewCodec(Options{SceneTitles: true}).Render(p)
	if !strings.Contains(got, "\n## \n\n<!---Intro--->") {
		t.Errorf("suppressed title not rendered as empty heading: %q", got)
	}
	for _, s := range []string{"cut text", "note text", "Trash"} {
		if strings.Contains(got, s) {
			t.Errorf("%q should not be exported", s)
		}
	}
	if strings.Count(got, Divider) != 1 {
		t.Errorf("dividers = %d, want 1", strings.Count(got, Divider))
	}
}

func TestRender_AppendToPrevious(t *testing.T) {
	p := sampleProject()
	storm, _ := p.Scenes.Get("2")
	storm.AppendToPrev = models.Ptr(true)

	got := NewCodec(Options{SceneTitles: true}).Render(p)
	if strings.Contains(got, Divider) {
		t.Errorf("appended scene should not be preceded by a divider: %q", got)
	}
	if strings.Contains(got, "<!---Storm--->") {
		t.Errorf("appended scene should not carry a title comment: %q", got)
	}
}

func TestRoundTrip_LosslessSubset(t *testing.T) {
	for _, mode := range []bool{false, true} {
		src := sampleProject()
		if mode {
			// Markdown mode expects scene text to be Markdown already.
			sc, _ := src.Scenes.Get("1")
			sc.SetContent("It was *dark*.\n\nThe end came.")
		}
		c := NewCodec(Options{MarkdownMode: mode, SceneTitles: true})
		got := c.Parse(c.Render(src))

		if got.Title != "Novel" || models.Deref(got.Author) != "Ann" {
			t.Errorf("mode %v: header = %q/%q", mode, got.Title, models.Deref(got.Author))
		}
		if got.Chapters.Len() != 2 || got.Scenes.Len() != 2 {
			t.Fatalf("mode %v: %d chapters, %d scenes", mode, got.Chapters.Len(), got.Scenes.Len())
		}
		part, _ := got.Chapters.Get("1")
		if part.Title != "Part One" || !part.IsPart() {
			t.Errorf("mode %v: part = %+v", mode, part)
		}
		arrival, _ := got.Chapters.Get("2")
		if arrival.Title != "Arrival" || strings.Join(arrival.SceneIDs, ",") != "1,2" {
			t.Errorf("mode %v: chapter = %+v", mode, arrival)
		}
		for _, id := range []string{"1", "2"} {
			want, _ := src.Scenes.Get(id)
			have, _ := got.Scenes.Get(id)
			if have.Title != want.Title {
				t.Errorf("mode %v: scene %s title = %q, want %q", mode, id, have.Title, want.Title)
			}
			wantText, _ := want.Content()
			if gotText, _ := have.Content(); gotText != wantText {
				t.Errorf("mode %v: scene %s content = %q, want %q", mode, id, gotText, wantText)
			}
		}
	}
}

func TestRoundTrip_EmphasisInTitles(t *testing.T) {
	src := sampleProject()
	src.Title = "A *Big* Story"
	src.Author = models.Ptr("Ann *Lee* Moss")
	arrival, _ := src.Chapters.Get("2")
	arrival.Title = "The *Long* Night"
	storm, _ := src.Scenes.Get("2")
	storm.Title = "Storm *over* sea"

	c := NewCodec(Options{SceneTitles: true})
	got := c.Parse(c.Render(src))

	if got.Title != "A *Big* Story" || models.Deref(got.Author) != "Ann *Lee* Moss" {
		t.Errorf("header = %q/%q", got.Title, models.Deref(got.Author))
	}
	if ch, _ := got.Chapters.Get("2"); ch.Title != "The *Long* Night" {
		t.Errorf("chapter title = %q", ch.Title)
	}
	if sc, _ := got.Scenes.Get("2"); sc.Title != "Storm *over* sea" {
		t.Errorf("scene title = %q", sc.Title)
	}
	if text := sceneContent(t, got, "1"); text != "It was [i]dark[/i].\nThe end came." {
		t.Errorf("scene text = %q", text)
	}
}

func TestRoundTrip_DividerPlacement(t *testing.T) {
	p := models.NewProject()
	bodies := []string{"First scene.", "Second\nscene.", "Third [b]scene[/b]."}
	ids := make([]string, len(bodies))
	for i, body := range bodies {
		sc := &models.Scene{Title: "S"}
		sc.SetContent(body)
		ids[i] = string(rune('1' + i))
		p.Scenes.Set(ids[i], sc)
	}
	p.Chapters.Set("1", &models.Chapter{Title: "A", SceneIDs: ids[:2]})
	p.Chapters.Set("2", &models.Chapter{Title: "B", SceneIDs: ids[2:]})

	c := NewCodec(Options{SceneTitles: false})
	got := c.Parse(c.Render(p))
	if got.Scenes.Len() != len(bodies) {
		t.Fatalf("scenes = %d, want %d", got.Scenes.Len(), len(bodies))
	}
	for i, body := range bodies {
		if text := sceneContent(t, got, ids[i]); text != body {
			t.Errorf("scene %d = %q, want %q", i, text, body)
		}
	}
}

func TestDecode_RejectsInvalidUTF8(t *testing.T) {
	_, err := NewCodec(Options{}).Decode([]byte{0xff, 0xfe, '#'})
	if !errors.Is(err, apperr.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestDecode_NormalizesLineEndingsAndBOM(t *testing.T) {
	p, err := NewCodec(Options{}).Decode([]byte("\xef\xbb\xbf## A\r\nBody\r\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := sceneContent(t, p, "1"); got != "Body" {
		t.Errorf("content = %q", got)
	}
}
