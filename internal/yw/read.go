package yw

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/starford/ywmark/internal/apperr"
	"github.com/starford/ywmark/internal/models"
)

// Codec reads and writes one yWriter dialect.
type Codec struct {
	dialect Dialect
}

// NewCodec returns a codec writing dialect d. Reading accepts either root.
func NewCodec(d Dialect) *Codec {
	return &Codec{dialect: d}
}

// Dialect returns the dialect the codec writes.
func (c *Codec) Dialect() Dialect {
	return c.dialect
}

// Decode reads a project tree. A missing entity ID or an unknown root is a
// parse failure; dangling references are dropped.
func (c *Codec) Decode(data []byte) (*models.Project, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	return readProject(doc.Root())
}

func parseDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))); err != nil {
		return nil, fmt.Errorf("yw: %w: %v", apperr.ErrParse, err)
	}
	root := doc.Root()
	if root == nil || !knownRoot(root.Tag) {
		return nil, fmt.Errorf("yw: %w: not a yWriter project", apperr.ErrParse)
	}
	return doc, nil
}

func readProject(root *etree.Element) (*models.Project, error) {
	p := models.NewProject()

	if prj := root.SelectElement("PROJECT"); prj != nil {
		p.Title, _ = textOf(prj, "Title")
		p.Author = optText(prj, "AuthorName")
		p.Desc = optText(prj, "Desc")
		for i := range models.FieldCount {
			p.FieldTitles[i] = optText(prj, "FieldTitle"+strconv.Itoa(i+1))
		}
	}

	if err := readWorld(root, "LOCATIONS", "LOCATION", p.Locations); err != nil {
		return nil, err
	}
	if err := readWorld(root, "ITEMS", "ITEM", p.Items); err != nil {
		return nil, err
	}
	if err := readCharacters(root, p.Characters); err != nil {
		return nil, err
	}
	if err := readScenes(root, p); err != nil {
		return nil, err
	}
	if err := readChapters(root, p); err != nil {
		return nil, err
	}
	return p, nil
}

func elementID(el *etree.Element) (string, error) {
	id, ok := textOf(el, "ID")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return "", fmt.Errorf("yw: %w: %s without ID", apperr.ErrParse, el.Tag)
	}
	return id, nil
}

func readWorldElement(el *etree.Element) models.WorldElement {
	w := models.WorldElement{
		Image: optText(el, "ImageFile"),
		Desc:  optText(el, "Desc"),
		AKA:   optText(el, "AKA"),
	}
	w.Title, _ = textOf(el, "Title")
	if tags, ok := textOf(el, "Tags"); ok {
		w.Tags = splitTags(tags)
	}
	return w
}

func readWorld(root *etree.Element, sectionTag, tag string, into *models.Collection[models.WorldElement]) error {
	sec := root.SelectElement(sectionTag)
	if sec == nil {
		return nil
	}
	for _, el := range sec.SelectElements(tag) {
		id, err := elementID(el)
		if err != nil {
			return err
		}
		w := readWorldElement(el)
		into.Set(id, &w)
	}
	return nil
}

func readCharacters(root *etree.Element, into *models.Collection[models.Character]) error {
	sec := root.SelectElement("CHARACTERS")
	if sec == nil {
		return nil
	}
	for _, el := range sec.SelectElements("CHARACTER") {
		id, err := elementID(el)
		if err != nil {
			return err
		}
		into.Set(id, &models.Character{
			WorldElement: readWorldElement(el),
			Notes:        optText(el, "Notes"),
			Bio:          optText(el, "Bio"),
			Goals:        optText(el, "Goals"),
			FullName:     optText(el, "FullName"),
			IsMajor:      models.Ptr(has(el, "Major")),
		})
	}
	return nil
}

func readScenes(root *etree.Element, p *models.Project) error {
	sec := root.SelectElement("SCENES")
	if sec == nil {
		return nil
	}
	for _, el := range sec.SelectElements("SCENE") {
		id, err := elementID(el)
		if err != nil {
			return err
		}
		p.Scenes.Set(id, readScene(el, p))
	}
	return nil
}

func readScene(el *etree.Element, p *models.Project) *models.Scene {
	sc := &models.Scene{
		Desc:         optText(el, "Desc"),
		Unused:       models.Ptr(has(el, "Unused")),
		DoNotExport:  models.Ptr(has(el, "ExportCondSpecific") && !has(el, "ExportWhenRTF")),
		AppendToPrev: models.Ptr(has(el, "AppendToPrev")),
		IsReaction:   models.Ptr(has(el, "ReactionScene")),
		Goal:         optText(el, "Goal"),
		Conflict:     optText(el, "Conflict"),
		Outcome:      optText(el, "Outcome"),
		Notes:        optText(el, "Notes"),
		LastsDays:    optText(el, "LastsDays"),
		LastsHours:   optText(el, "LastsHours"),
		LastsMinutes: optText(el, "LastsMinutes"),
	}
	sc.Title, _ = textOf(el, "Title")
	if text, ok := textOf(el, "SceneContent"); ok {
		sc.SetContent(text)
	}

	kind := models.KindNormal
	if fields := el.SelectElement("Fields"); fields != nil {
		switch t, _ := textOf(fields, "Field_SceneType"); strings.TrimSpace(t) {
		case "1":
			kind = models.KindNotes
		case "2":
			kind = models.KindTodo
		}
	}
	sc.Kind = models.Ptr(kind)

	if s, ok := textOf(el, "Status"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && models.Status(n).Valid() {
			sc.Status = models.Ptr(models.Status(n))
		}
	}
	if tags, ok := textOf(el, "Tags"); ok {
		sc.Tags = splitTags(tags)
	}
	for i := range models.FieldCount {
		sc.Fields[i] = optText(el, "Field"+strconv.Itoa(i+1))
	}

	if dt, ok := textOf(el, "SpecificDateTime"); ok {
		date, clock, _ := strings.Cut(strings.TrimSpace(dt), " ")
		sc.Date = models.Ptr(date)
		sc.Time = models.Ptr(clock)
	} else {
		sc.Day = optText(el, "Day")
		sc.Hour = optText(el, "Hour")
		sc.Minute = optText(el, "Minute")
	}

	sc.Characters = keepKnown(idList(el, "Characters", "CharID"), p.Characters.Has)
	sc.Locations = keepKnown(idList(el, "Locations", "LocID"), p.Locations.Has)
	sc.Items = keepKnown(idList(el, "Items", "ItemID"), p.Items.Has)
	return sc
}

func readChapters(root *etree.Element, p *models.Project) error {
	sec := root.SelectElement("CHAPTERS")
	if sec == nil {
		return nil
	}
	for _, el := range sec.SelectElements("CHAPTER") {
		id, err := elementID(el)
		if err != nil {
			return err
		}
		p.Chapters.Set(id, readChapter(el, p))
	}
	return nil
}

func readChapter(el *etree.Element, p *models.Project) *models.Chapter {
	ch := &models.Chapter{
		Desc:    optText(el, "Desc"),
		OldType: optText(el, "Type"),
		Unused:  models.Ptr(has(el, "Unused")),
	}
	ch.Title, _ = textOf(el, "Title")

	level := models.LevelChapter
	if has(el, "SectionStart") {
		level = models.LevelPart
	}
	ch.Level = models.Ptr(level)

	kind := models.KindNormal
	if t, ok := textOf(el, "ChapterType"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil && n >= 0 && n <= int(models.KindTodo) {
			kind = models.Kind(n)
		}
	} else if models.Deref(ch.OldType) == "1" {
		kind = models.KindNotes
	}
	ch.Kind = models.Ptr(kind)

	var suppress, trash, noBreak bool
	if fields := el.SelectElement("Fields"); fields != nil {
		suppress = fieldSet(fields, "Field_SuppressChapterTitle")
		trash = fieldSet(fields, "Field_IsTrash")
		noBreak = fieldSet(fields, "Field_SuppressChapterBreak")
	}
	ch.SuppressTitle = models.Ptr(suppress)
	ch.IsTrash = models.Ptr(trash)
	ch.SuppressBreak = models.Ptr(noBreak)

	ch.SceneIDs = keepKnown(idList(el, "Scenes", "ScID"), p.Scenes.Has)
	if ch.SceneIDs == nil {
		ch.SceneIDs = []string{}
	}
	return ch
}

func fieldSet(fields *etree.Element, tag string) bool {
	t, ok := textOf(fields, tag)
	return ok && strings.TrimSpace(t) == fieldTrue
}

func keepKnown(ids []string, known func(string) bool) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if known(id) {
			out = append(out, id)
		}
	}
	return out
}
