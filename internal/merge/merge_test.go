package merge

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/ywmark/internal/apperr"
	"github.com/starford/ywmark/internal/models"
)

func targetProject() *models.Project {
	p := models.NewProject()
	p.Title = "Novel"
	p.Author = models.Ptr("Ann")
	p.Desc = models.Ptr("A story")

	p.Characters.Set("1", &models.Character{
		WorldElement: models.WorldElement{Title: "Mara", Desc: models.Ptr("lead")},
		IsMajor:      models.Ptr(true),
	})
	p.Characters.Set("2", &models.Character{WorldElement: models.WorldElement{Title: "Tom"}})
	p.Locations.Set("1", &models.WorldElement{Title: "Harbor"})

	s1 := &models.Scene{
		Title:      "Intro",
		Notes:      models.Ptr("keep"),
		Status:     models.Ptr(models.StatusFirstEdit),
		Characters: []string{"1"},
		Date:       models.Ptr("2024-05-01"),
		Time:       models.Ptr("08:00:00"),
	}
	s1.SetContent("Old text.")
	s2 := &models.Scene{Title: "Storm"}
	s2.SetContent("Rain.")
	p.Scenes.Set("1", s1)
	p.Scenes.Set("2", s2)

	p.Chapters.Set("1", &models.Chapter{Title: "Arrival", Desc: models.Ptr("first"), SceneIDs: []string{"1", "2"}})
	p.Chapters.Set("2", &models.Chapter{Title: "Later", SceneIDs: []string{}})
	return p
}

func TestMerge_SourceWinsAndTargetFillsGaps(t *testing.T) {
	target := targetProject()
	source := models.NewProject()
	source.Title = "Renamed"
	sc := &models.Scene{Title: "Opening", Status: models.Ptr(models.StatusDraft)}
	sc.SetContent("New text with more words.")
	source.Scenes.Set("1", sc)
	source.Chapters.Set("1", &models.Chapter{Title: "Arrival", SceneIDs: []string{"2", "1"}})

	res, err := Merge(target, source)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	p := res.Project
	if p.Title != "Renamed" || models.Deref(p.Author) != "Ann" || models.Deref(p.Desc) != "A story" {
		t.Errorf("project = %q/%q/%q", p.Title, models.Deref(p.Author), models.Deref(p.Desc))
	}

	got, _ := p.Scenes.Get("1")
	if got.Title != "Opening" || got.CurrentStatus() != models.StatusDraft {
		t.Errorf("scene = %q/%v", got.Title, got.CurrentStatus())
	}
	if text, _ := got.Content(); text != "New text with more words." || got.WordCount() != 5 {
		t.Errorf("content = %q (%d words)", text, got.WordCount())
	}
	if models.Deref(got.Notes) != "keep" || strings.Join(got.Characters, ",") != "1" {
		t.Errorf("target-only values lost: notes=%q chars=%v", models.Deref(got.Notes), got.Characters)
	}
	if models.Deref(got.Date) != "2024-05-01" {
		t.Errorf("schedule lost: %v", models.Deref(got.Date))
	}

	ch, _ := p.Chapters.Get("1")
	if strings.Join(ch.SceneIDs, ",") != "2,1" || models.Deref(ch.Desc) != "first" {
		t.Errorf("chapter = %+v", ch)
	}
	if p.Characters.Len() != 2 || p.Locations.Len() != 1 {
		t.Error("empty source world collections must leave the target untouched")
	}
}

func TestMerge_IdentityStability(t *testing.T) {
	target := targetProject()
	before := target.Scenes.IDs()
	source := models.NewProject()
	for _, id := range []string{"2", "1"} {
		sc := &models.Scene{}
		sc.SetContent("text " + id)
		source.Scenes.Set(id, sc)
	}

	if _, err := Merge(target, source); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := strings.Join(target.Scenes.IDs(), ","); got != strings.Join(before, ",") {
		t.Errorf("scene order = %s, want %v", got, before)
	}
	sc, _ := target.Scenes.Get("2")
	if sc.Title != "Storm" {
		t.Errorf("empty source title overwrote target: %q", sc.Title)
	}
}

func TestMerge_MismatchDetected(t *testing.T) {
	target := targetProject()
	source := models.NewProject()
	source.Scenes.Set("3", &models.Scene{Title: "Extra"})
	source.Chapters.Set("9", &models.Chapter{Title: "Extra"})

	res, err := Merge(target, source)
	if res != nil {
		t.Error("result should be nil on mismatch")
	}
	var mm *apperr.MismatchError
	if !errors.As(err, &mm) || mm.Count != 2 {
		t.Fatalf("err = %v, want MismatchError{2}", err)
	}
	if !errors.Is(err, apperr.ErrStructuralMismatch) {
		t.Error("mismatch must wrap ErrStructuralMismatch")
	}
}

func TestMerge_WorldRebuiltInSourceOrder(t *testing.T) {
	target := targetProject()
	source := models.NewProject()
	source.Characters.Set("2", &models.Character{WorldElement: models.WorldElement{Title: "Thomas"}})
	source.Characters.Set("3", &models.Character{WorldElement: models.WorldElement{Title: "Eve"}})
	source.Characters.Set("1", &models.Character{})

	if _, err := Merge(target, source); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := strings.Join(target.Characters.IDs(), ","); got != "2,3,1" {
		t.Errorf("order = %s", got)
	}
	mara, _ := target.Characters.Get("1")
	if mara.Title != "Mara" || models.Deref(mara.Desc) != "lead" || !models.Deref(mara.IsMajor) {
		t.Errorf("inherited fields lost: %+v", mara)
	}
	tom, _ := target.Characters.Get("2")
	if tom.Title != "Thomas" {
		t.Errorf("title = %q", tom.Title)
	}
}

func TestMerge_WorldEntriesMissingFromSourceAreDropped(t *testing.T) {
	target := targetProject()
	source := models.NewProject()
	source.Characters.Set("2", &models.Character{})

	if _, err := Merge(target, source); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if target.Characters.Has("1") {
		t.Error("character 1 should be dropped by the rebuild")
	}
}

func TestMerge_CrossRefsFiltered(t *testing.T) {
	target := targetProject()
	source := models.NewProject()
	source.Scenes.Set("1", &models.Scene{Characters: []string{"2", "7"}, Locations: []string{"9"}})

	res, err := Merge(target, source)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	sc, _ := target.Scenes.Get("1")
	if strings.Join(sc.Characters, ",") != "2" || len(sc.Locations) != 0 {
		t.Errorf("refs = %v / %v", sc.Characters, sc.Locations)
	}
	want := []DroppedRef{
		{SceneID: "1", Kind: RefCharacter, ID: "7"},
		{SceneID: "1", Kind: RefLocation, ID: "9"},
	}
	if len(res.DroppedRefs) != len(want) {
		t.Fatalf("dropped = %v", res.DroppedRefs)
	}
	for i := range want {
		if res.DroppedRefs[i] != want[i] {
			t.Errorf("dropped[%d] = %+v, want %+v", i, res.DroppedRefs[i], want[i])
		}
	}
}

func TestMerge_ChapterSceneListsClaimOnce(t *testing.T) {
	target := targetProject()
	source := models.NewProject()
	source.Chapters.Set("1", &models.Chapter{SceneIDs: []string{"1", "5"}})
	source.Chapters.Set("2", &models.Chapter{SceneIDs: []string{"1", "2"}})

	if _, err := Merge(target, source); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	first, _ := target.Chapters.Get("1")
	second, _ := target.Chapters.Get("2")
	if strings.Join(first.SceneIDs, ",") != "1" || strings.Join(second.SceneIDs, ",") != "2" {
		t.Errorf("scene lists = %v / %v", first.SceneIDs, second.SceneIDs)
	}
	if err := target.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestMerge_ScheduleVariantsExclusive(t *testing.T) {
	target := targetProject()
	source := models.NewProject()
	source.Scenes.Set("1", &models.Scene{Day: models.Ptr("3")})

	if _, err := Merge(target, source); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	sc, _ := target.Scenes.Get("1")
	if sc.Date != nil || sc.Time != nil || models.Deref(sc.Day) != "3" {
		t.Errorf("schedule = date %v day %v", sc.Date, models.Deref(sc.Day))
	}
}

// threeChapters holds scenes 1..3, one per chapter.
func threeChapters() *models.Project {
	p := models.NewProject()
	for _, id := range []string{"1", "2", "3"} {
		sc := &models.Scene{Title: "Scene " + id}
		sc.SetContent("Body " + id)
		p.Scenes.Set(id, sc)
		p.Chapters.Set(id, &models.Chapter{Title: "Chapter " + id, SceneIDs: []string{id}})
	}
	return p
}

func TestMerge_SourceDropsChapter(t *testing.T) {
	target := threeChapters()
	source := models.NewProject()
	for _, id := range []string{"1", "2", "3"} {
		source.Scenes.Set(id, &models.Scene{})
	}
	source.Chapters.Set("1", &models.Chapter{SceneIDs: []string{"1"}})
	source.Chapters.Set("2", &models.Chapter{SceneIDs: []string{"2", "3"}})

	if _, err := Merge(target, source); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := strings.Join(target.Chapters.IDs(), ","); got != "1,2" {
		t.Errorf("chapter order = %s, want 1,2", got)
	}
	second, _ := target.Chapters.Get("2")
	if strings.Join(second.SceneIDs, ",") != "2,3" {
		t.Errorf("chapter 2 scenes = %v", second.SceneIDs)
	}
	if err := target.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestMerge_ChapterOrderFollowsSource(t *testing.T) {
	target := threeChapters()
	notes, _ := target.Chapters.Get("2")
	notes.Kind = models.Ptr(models.KindNotes)
	source := models.NewProject()
	source.Chapters.Set("3", &models.Chapter{SceneIDs: []string{"3", "1"}})
	source.Chapters.Set("1", &models.Chapter{SceneIDs: []string{}})

	if _, err := Merge(target, source); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := strings.Join(target.Chapters.IDs(), ","); got != "3,1,2" {
		t.Errorf("chapter order = %s, want 3,1,2", got)
	}
	if strings.Join(notes.SceneIDs, ",") != "2" {
		t.Errorf("notes chapter scenes = %v", notes.SceneIDs)
	}
	if err := target.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestMerge_MismatchLeavesTargetUntouched(t *testing.T) {
	target := targetProject()
	source := models.NewProject()
	source.Title = "Renamed"
	source.Scenes.Set("1", &models.Scene{Title: "Changed"})
	source.Scenes.Set("7", &models.Scene{Title: "Extra"})

	if _, err := Merge(target, source); !errors.Is(err, apperr.ErrStructuralMismatch) {
		t.Fatalf("err = %v, want ErrStructuralMismatch", err)
	}
	sc, _ := target.Scenes.Get("1")
	if target.Title != "Novel" || sc.Title != "Intro" || target.Scenes.Len() != 2 {
		t.Errorf("target changed: title %q, scene %q, %d scenes", target.Title, sc.Title, target.Scenes.Len())
	}
}
