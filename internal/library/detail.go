package library

import "github.com/starford/ywmark/internal/models"

// ProjectDetail is the live structure of one library file.
type ProjectDetail struct {
	Path       string          `json:"path"`
	Format     string          `json:"format"`
	Title      string          `json:"title"`
	Author     string          `json:"author,omitempty"`
	Checksum   string          `json:"checksum"`
	Stats      models.Stats    `json:"stats"`
	Chapters   []ChapterDetail `json:"chapters"`
	Characters []string        `json:"characters"`
	Locations  []string        `json:"locations"`
	Items      []string        `json:"items"`
}

// ChapterDetail is one chapter of a ProjectDetail.
type ChapterDetail struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Part   bool          `json:"part"`
	Kind   string        `json:"kind"`
	Unused bool          `json:"unused,omitempty"`
	Scenes []SceneDetail `json:"scenes"`
}

// SceneDetail is one scene of a ChapterDetail.
type SceneDetail struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	Kind       string   `json:"kind"`
	Words      int      `json:"words"`
	Tags       []string `json:"tags"`
	Viewpoint  string   `json:"viewpoint,omitempty"`
	Characters int      `json:"characters"`
}

var kindNames = map[models.Kind]string{
	models.KindNormal: "normal",
	models.KindNotes:  "notes",
	models.KindTodo:   "todo",
}

// Describe flattens p into its reading-order structure.
func Describe(path, format, checksum string, p *models.Project) *ProjectDetail {
	d := &ProjectDetail{
		Path:       path,
		Format:     format,
		Title:      p.Title,
		Author:     models.Deref(p.Author),
		Checksum:   checksum,
		Stats:      p.Stats(),
		Chapters:   []ChapterDetail{},
		Characters: titles(p.Characters, func(c *models.Character) string { return c.Title }),
		Locations:  titles(p.Locations, worldTitle),
		Items:      titles(p.Items, worldTitle),
	}

	for chID, ch := range p.Chapters.All() {
		cd := ChapterDetail{
			ID:     chID,
			Title:  ch.Title,
			Part:   ch.IsPart(),
			Kind:   kindNames[ch.ContentKind()],
			Unused: ch.IsUnused(),
			Scenes: []SceneDetail{},
		}
		for _, scID := range ch.SceneIDs {
			sc, ok := p.Scenes.Get(scID)
			if !ok {
				continue
			}
			sd := SceneDetail{
				ID:         scID,
				Title:      sc.Title,
				Status:     sc.CurrentStatus().String(),
				Kind:       kindNames[sc.ContentKind()],
				Words:      sc.WordCount(),
				Tags:       nonNilSlice(sc.Tags),
				Characters: len(sc.Characters),
			}
			if vp, ok := sc.Viewpoint(); ok {
				if c, found := p.Characters.Get(vp); found {
					sd.Viewpoint = c.Title
				}
			}
			cd.Scenes = append(cd.Scenes, sd)
		}
		d.Chapters = append(d.Chapters, cd)
	}
	return d
}

func worldTitle(w *models.WorldElement) string { return w.Title }

func titles[T any](c *models.Collection[T], title func(*T) string) []string {
	out := make([]string, 0, c.Len())
	for _, v := range c.All() {
		out = append(out, title(v))
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
