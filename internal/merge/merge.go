// Package merge reconciles a freshly read project into an existing one.
// Values carried by the source win; values the source does not carry are
// kept from the target.
package merge

import (
	"slices"

	"github.com/starford/ywmark/internal/apperr"
	"github.com/starford/ywmark/internal/models"
)

// RefKind names the collection a scene cross-reference points into.
type RefKind string

const (
	RefCharacter RefKind = "character"
	RefLocation  RefKind = "location"
	RefItem      RefKind = "item"
)

// DroppedRef is a scene reference removed because the target has no entity
// with that id.
type DroppedRef struct {
	SceneID string  `json:"scene_id"`
	Kind    RefKind `json:"kind"`
	ID      string  `json:"id"`
}

// Result describes a successful merge.
type Result struct {
	Project     *models.Project
	Scenes      int
	Chapters    int
	DroppedRefs []DroppedRef
}

// Merge copies source into target and returns the mutated target. Scenes and
// chapters are matched by id. Every source id the target does not know
// counts as a mismatch; any count above zero fails the merge with a
// *apperr.MismatchError before target is touched.
func Merge(target, source *models.Project) (*Result, error) {
	if n := mismatches(target, source); n > 0 {
		return nil, &apperr.MismatchError{Count: n}
	}

	m := &merger{target: target, source: source}
	m.project()
	mergeWorld(target.Locations, source.Locations, mergeElement)
	mergeWorld(target.Items, source.Items, mergeElement)
	mergeWorld(target.Characters, source.Characters, mergeCharacter)
	m.scenes()
	m.chapters()

	return &Result{
		Project:     target,
		Scenes:      source.Scenes.Len(),
		Chapters:    source.Chapters.Len(),
		DroppedRefs: m.dropped,
	}, nil
}

func mismatches(target, source *models.Project) int {
	n := 0
	for id := range source.Scenes.All() {
		if !target.Scenes.Has(id) {
			n++
		}
	}
	for id := range source.Chapters.All() {
		if !target.Chapters.Has(id) {
			n++
		}
	}
	return n
}

type merger struct {
	target, source *models.Project
	dropped        []DroppedRef
}

func (m *merger) project() {
	if m.source.Title != "" {
		m.target.Title = m.source.Title
	}
	overwrite(&m.target.Desc, m.source.Desc)
	overwrite(&m.target.Author, m.source.Author)
	for i := range m.target.FieldTitles {
		overwrite(&m.target.FieldTitles[i], m.source.FieldTitles[i])
	}
}

// overwrite replaces *dst with src when src is carried.
func overwrite[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func overwriteList(dst *[]string, src []string) {
	if src != nil {
		*dst = append([]string{}, src...)
	}
}

// mergeWorld rebuilds dst in source order when the source carries any
// entries. Each entry starts from the old entry with the same id.
func mergeWorld[T any](dst, src *models.Collection[T], merge func(dst, src *T)) {
	if src.Len() == 0 {
		return
	}
	old := make(map[string]*T, dst.Len())
	for id, v := range dst.All() {
		old[id] = v
	}
	dst.Reset()
	for id, s := range src.All() {
		e, ok := old[id]
		if !ok {
			e = new(T)
		}
		merge(e, s)
		dst.Set(id, e)
	}
}

func mergeElement(dst, src *models.WorldElement) {
	if src.Title != "" {
		dst.Title = src.Title
	}
	overwrite(&dst.Image, src.Image)
	overwrite(&dst.Desc, src.Desc)
	overwriteList(&dst.Tags, src.Tags)
	overwrite(&dst.AKA, src.AKA)
}

func mergeCharacter(dst, src *models.Character) {
	mergeElement(&dst.WorldElement, &src.WorldElement)
	overwrite(&dst.Notes, src.Notes)
	overwrite(&dst.Bio, src.Bio)
	overwrite(&dst.Goals, src.Goals)
	overwrite(&dst.FullName, src.FullName)
	overwrite(&dst.IsMajor, src.IsMajor)
}

func (m *merger) scenes() {
	for id, src := range m.source.Scenes.All() {
		dst, ok := m.target.Scenes.Get(id)
		if !ok {
			continue
		}
		m.scene(id, dst, src)
	}
}

func (m *merger) scene(id string, dst, src *models.Scene) {
	if src.Title != "" {
		dst.Title = src.Title
	}
	overwrite(&dst.Desc, src.Desc)
	if text, ok := src.Content(); ok {
		dst.SetContent(text)
	}
	overwrite(&dst.Status, src.Status)
	overwrite(&dst.Kind, src.Kind)
	overwrite(&dst.Unused, src.Unused)
	overwrite(&dst.DoNotExport, src.DoNotExport)
	overwrite(&dst.AppendToPrev, src.AppendToPrev)
	overwrite(&dst.IsReaction, src.IsReaction)
	overwrite(&dst.Goal, src.Goal)
	overwrite(&dst.Conflict, src.Conflict)
	overwrite(&dst.Outcome, src.Outcome)
	overwrite(&dst.Notes, src.Notes)
	overwriteList(&dst.Tags, src.Tags)
	for i := range dst.Fields {
		overwrite(&dst.Fields[i], src.Fields[i])
	}

	switch {
	case src.Date != nil:
		overwrite(&dst.Date, src.Date)
		overwrite(&dst.Time, src.Time)
		dst.Day, dst.Hour, dst.Minute = nil, nil, nil
	case src.Day != nil || src.Hour != nil || src.Minute != nil:
		overwrite(&dst.Day, src.Day)
		overwrite(&dst.Hour, src.Hour)
		overwrite(&dst.Minute, src.Minute)
		dst.Date, dst.Time = nil, nil
	}
	overwrite(&dst.LastsDays, src.LastsDays)
	overwrite(&dst.LastsHours, src.LastsHours)
	overwrite(&dst.LastsMinutes, src.LastsMinutes)

	if src.Characters != nil {
		dst.Characters = m.filterRefs(id, RefCharacter, src.Characters, m.target.Characters.Has)
	}
	if src.Locations != nil {
		dst.Locations = m.filterRefs(id, RefLocation, src.Locations, m.target.Locations.Has)
	}
	if src.Items != nil {
		dst.Items = m.filterRefs(id, RefItem, src.Items, m.target.Items.Has)
	}
}

func (m *merger) filterRefs(sceneID string, kind RefKind, ids []string, known func(string) bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if known(id) {
			out = append(out, id)
			continue
		}
		m.dropped = append(m.dropped, DroppedRef{SceneID: sceneID, Kind: kind, ID: id})
	}
	return out
}

// chapters merges chapters by id and takes the chapter order from the
// source. A scene belongs to the first source chapter listing it. Chapters
// the source no longer has lose the scenes a source chapter claimed; a
// manuscript chapter left without scenes was deleted by the author and is
// removed. The others, such as notes chapters the manuscript never showed,
// follow the source chapters.
func (m *merger) chapters() {
	if m.source.Chapters.Len() == 0 {
		return
	}

	claimed := make(map[string]bool)
	for id, src := range m.source.Chapters.All() {
		dst, ok := m.target.Chapters.Get(id)
		if !ok {
			continue
		}

		if src.Title != "" {
			dst.Title = src.Title
		}
		overwrite(&dst.Desc, src.Desc)
		overwrite(&dst.Level, src.Level)
		overwrite(&dst.OldType, src.OldType)
		overwrite(&dst.Kind, src.Kind)
		overwrite(&dst.Unused, src.Unused)
		overwrite(&dst.SuppressTitle, src.SuppressTitle)
		overwrite(&dst.IsTrash, src.IsTrash)
		overwrite(&dst.SuppressBreak, src.SuppressBreak)

		sceneIDs := src.SceneIDs
		if sceneIDs == nil {
			sceneIDs = dst.SceneIDs
		}
		ids := make([]string, 0, len(sceneIDs))
		for _, scID := range sceneIDs {
			if claimed[scID] || !m.target.Scenes.Has(scID) {
				continue
			}
			claimed[scID] = true
			ids = append(ids, scID)
		}
		if src.SceneIDs != nil || dst.SceneIDs != nil {
			dst.SceneIDs = ids
		}
	}

	for _, id := range m.target.Chapters.IDs() {
		if m.source.Chapters.Has(id) {
			continue
		}
		ch, _ := m.target.Chapters.Get(id)
		ch.SceneIDs = slices.DeleteFunc(ch.SceneIDs, func(scID string) bool { return claimed[scID] })
		if len(ch.SceneIDs) == 0 && ch.InManuscript() {
			m.target.Chapters.Delete(id)
		}
	}
	m.target.Chapters.SetOrder(m.source.Chapters.IDs())
}
