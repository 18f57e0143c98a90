package yw

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/starford/ywmark/internal/models"
)

// Encode writes p. With existing bytes the tree is updated in place so that
// tags ywmark does not model survive; without, a new project is created.
func (c *Codec) Encode(p *models.Project, existing []byte) ([]byte, error) {
	if existing == nil {
		return c.Create(p)
	}
	doc, err := parseDocument(existing)
	if err != nil {
		return nil, err
	}
	c.update(doc.Root(), p)
	return serialize(doc)
}

// Create builds a new project document from p. Chapters and scenes are
// renumbered in reading order.
func (c *Codec) Create(p *models.Project) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement(c.dialect.RootTag)
	prj := root.CreateElement("PROJECT")
	prj.CreateElement("Ver").SetText(c.dialect.Version)
	for _, tag := range []string{"LOCATIONS", "ITEMS", "CHARACTERS", "CHAPTERS", "SCENES"} {
		root.CreateElement(tag)
	}

	c.update(root, renumber(p))
	return serialize(doc)
}

func serialize(doc *etree.Document) ([]byte, error) {
	doc.IndentTabs()
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("yw: write document: %w", err)
	}
	return out, nil
}

// renumber returns a view of p whose chapters and scenes carry ordinal ids.
// Scenes not referenced by any chapter follow the referenced ones.
func renumber(p *models.Project) *models.Project {
	out := models.NewProject()
	out.Title, out.Desc, out.Author, out.FieldTitles = p.Title, p.Desc, p.Author, p.FieldTitles
	out.Characters, out.Locations, out.Items = p.Characters, p.Locations, p.Items

	sceneIDs := make(map[string]string, p.Scenes.Len())
	add := func(oldID string) {
		if _, done := sceneIDs[oldID]; done {
			return
		}
		sc, ok := p.Scenes.Get(oldID)
		if !ok {
			return
		}
		id := strconv.Itoa(len(sceneIDs) + 1)
		sceneIDs[oldID] = id
		out.Scenes.Set(id, sc)
	}
	for _, ch := range p.Chapters.All() {
		for _, scID := range ch.SceneIDs {
			add(scID)
		}
	}
	for scID := range p.Scenes.All() {
		add(scID)
	}

	n := 0
	for _, ch := range p.Chapters.All() {
		n++
		cp := *ch
		cp.OldType = models.Ptr("0")
		if strings.HasPrefix(cp.Title, "@") {
			cp.SuppressTitle = models.Ptr(true)
		}
		cp.SceneIDs = make([]string, 0, len(ch.SceneIDs))
		for _, scID := range ch.SceneIDs {
			if id, ok := sceneIDs[scID]; ok {
				cp.SceneIDs = append(cp.SceneIDs, id)
			}
		}
		out.Chapters.Set(strconv.Itoa(n), &cp)
	}
	return out
}

func (c *Codec) update(root *etree.Element, p *models.Project) {
	prj := section(root, "PROJECT")
	setRaw(prj, "Title", p.Title)
	setText(prj, "AuthorName", p.Author)
	setText(prj, "Desc", p.Desc)
	for i, t := range p.FieldTitles {
		setText(prj, "FieldTitle"+strconv.Itoa(i+1), t)
	}

	rebuildWorld(section(root, "LOCATIONS"), "LOCATION", p.Locations)
	rebuildWorld(section(root, "ITEMS"), "ITEM", p.Items)
	rebuildCharacters(section(root, "CHARACTERS"), p.Characters)

	reconcile(section(root, "SCENES"), "SCENE", p.Scenes, func(el *etree.Element, sc *models.Scene) {
		c.writeScene(el, sc)
	})
	reconcile(section(root, "CHAPTERS"), "CHAPTER", p.Chapters, writeChapter)
}

func writeWorldElement(el *etree.Element, id string, w *models.WorldElement) {
	el.CreateElement("ID").SetText(id)
	setRaw(el, "Title", w.Title)
	setText(el, "ImageFile", w.Image)
	setText(el, "Desc", w.Desc)
	setTags(el, w.Tags)
	setText(el, "AKA", w.AKA)
}

func clearChildren(sec *etree.Element) {
	for _, el := range sec.ChildElements() {
		sec.RemoveChild(el)
	}
}

func rebuildWorld(sec *etree.Element, tag string, items *models.Collection[models.WorldElement]) {
	clearChildren(sec)
	for id, w := range items.All() {
		writeWorldElement(sec.CreateElement(tag), id, w)
	}
}

func rebuildCharacters(sec *etree.Element, chars *models.Collection[models.Character]) {
	clearChildren(sec)
	for id, ch := range chars.All() {
		el := sec.CreateElement("CHARACTER")
		writeWorldElement(el, id, &ch.WorldElement)
		setText(el, "Notes", ch.Notes)
		setText(el, "Bio", ch.Bio)
		setText(el, "Goals", ch.Goals)
		setText(el, "FullName", ch.FullName)
		setFlag(el, "Major", flagTrue, ch.IsMajor)
	}
}

// reconcile reorders the elements of sec into collection order, keeping
// existing elements, creating missing ones and dropping the rest.
func reconcile[T any](sec *etree.Element, tag string, items *models.Collection[T], write func(*etree.Element, *T)) {
	existing := make(map[string]*etree.Element)
	for _, el := range sec.SelectElements(tag) {
		if id, ok := textOf(el, "ID"); ok {
			existing[strings.TrimSpace(id)] = el
		}
	}
	clearChildren(sec)

	for id, item := range items.All() {
		el, ok := existing[id]
		if ok {
			sec.AddChild(el)
		} else {
			el = sec.CreateElement(tag)
			el.CreateElement("ID").SetText(id)
		}
		write(el, item)
	}
}

func (c *Codec) writeScene(el *etree.Element, sc *models.Scene) {
	setRaw(el, "Title", sc.Title)
	setText(el, "Desc", sc.Desc)

	if text, ok := sc.Content(); ok {
		setRaw(el, "SceneContent", text)
		setRaw(el, "WordCount", strconv.Itoa(sc.WordCount()))
		setRaw(el, "LetterCount", strconv.Itoa(sc.LetterCount()))
	}

	setFlag(el, "Unused", flagTrue, sc.Unused)
	if sc.Kind != nil {
		fields := child(el, "Fields")
		switch *sc.Kind {
		case models.KindNotes:
			setRaw(fields, "Field_SceneType", "1")
		case models.KindTodo:
			setRaw(fields, "Field_SceneType", "2")
		default:
			remove(fields, "Field_SceneType")
		}
		dropEmpty(el, "Fields")
	}

	if sc.DoNotExport != nil {
		if *sc.DoNotExport {
			setRaw(el, "ExportCondSpecific", flagTrue)
			remove(el, "ExportWhenRTF")
		} else if !has(el, "ExportWhenRTF") {
			remove(el, "ExportCondSpecific")
		}
	}

	if sc.Status != nil {
		setRaw(el, "Status", strconv.Itoa(int(*sc.Status)))
	}
	setText(el, "Notes", sc.Notes)
	setTags(el, sc.Tags)
	for i, f := range sc.Fields {
		setText(el, "Field"+strconv.Itoa(i+1), f)
	}
	setFlag(el, "AppendToPrev", flagTrue, sc.AppendToPrev)

	switch {
	case sc.Date != nil && sc.Time != nil:
		setRaw(el, "SpecificDateTime", *sc.Date+" "+*sc.Time)
		for _, tag := range []string{"Day", "Hour", "Minute"} {
			remove(el, tag)
		}
	case sc.Day != nil || sc.Hour != nil || sc.Minute != nil:
		remove(el, "SpecificDateTime")
		setText(el, "Day", sc.Day)
		setText(el, "Hour", sc.Hour)
		setText(el, "Minute", sc.Minute)
	}
	setText(el, "LastsDays", sc.LastsDays)
	setText(el, "LastsHours", sc.LastsHours)
	setText(el, "LastsMinutes", sc.LastsMinutes)

	setFlag(el, "ReactionScene", flagTrue, sc.IsReaction)
	setText(el, "Goal", sc.Goal)
	setText(el, "Conflict", sc.Conflict)
	setText(el, "Outcome", sc.Outcome)

	setIDList(el, "Characters", "CharID", sc.Characters)
	setIDList(el, "Locations", "LocID", sc.Locations)
	setIDList(el, "Items", "ItemID", sc.Items)

	if c.dialect.StripRTF {
		remove(el, "RTFFile")
	}
}

func writeChapter(el *etree.Element, ch *models.Chapter) {
	setRaw(el, "Title", ch.Title)
	setText(el, "Desc", ch.Desc)

	if ch.Level != nil {
		setFlag(el, "SectionStart", flagTrue, models.Ptr(*ch.Level == models.LevelPart))
	}
	setText(el, "Type", ch.OldType)
	if ch.Kind != nil {
		setRaw(el, "ChapterType", strconv.Itoa(int(*ch.Kind)))
	}
	setFlag(el, "Unused", flagTrue, ch.Unused)

	if ch.SuppressTitle != nil || ch.IsTrash != nil || ch.SuppressBreak != nil {
		fields := child(el, "Fields")
		setFlag(fields, "Field_SuppressChapterTitle", fieldTrue, ch.SuppressTitle)
		setFlag(fields, "Field_IsTrash", fieldTrue, ch.IsTrash)
		setFlag(fields, "Field_SuppressChapterBreak", fieldTrue, ch.SuppressBreak)
		dropEmpty(el, "Fields")
	}

	setIDList(el, "Scenes", "ScID", ch.SceneIDs)
}
