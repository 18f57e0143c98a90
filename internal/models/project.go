// Package models defines the in-memory novel project: chapters, scenes and
// world elements, each kept in an identity-ordered collection.
package models

import (
	"fmt"
	"time"
)

// FieldCount is the number of user-relabelable custom scene fields.
const FieldCount = 4

// Project is the root aggregate of a novel.
type Project struct {
	Title       string
	Desc        *string
	Author      *string
	FieldTitles [FieldCount]*string

	Chapters   *Collection[Chapter]
	Scenes     *Collection[Scene]
	Characters *Collection[Character]
	Locations  *Collection[WorldElement]
	Items      *Collection[WorldElement]
}

// NewProject returns an empty, consistent project.
func NewProject() *Project {
	return &Project{
		Chapters:   NewCollection[Chapter](),
		Scenes:     NewCollection[Scene](),
		Characters: NewCollection[Character](),
		Locations:  NewCollection[WorldElement](),
		Items:      NewCollection[WorldElement](),
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p, or the zero value when p is nil.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// Validate reports the first dangling reference, or the first scene listed
// by more than one chapter.
func (p *Project) Validate() error {
	owner := make(map[string]string)
	for chID, ch := range p.Chapters.All() {
		for _, scID := range ch.SceneIDs {
			if !p.Scenes.Has(scID) {
				return fmt.Errorf("chapter %s: unknown scene %s", chID, scID)
			}
			if prev, ok := owner[scID]; ok {
				return fmt.Errorf("chapter %s: scene %s already in chapter %s", chID, scID, prev)
			}
			owner[scID] = chID
		}
	}
	for scID, sc := range p.Scenes.All() {
		for _, id := range sc.Characters {
			if !p.Characters.Has(id) {
				return fmt.Errorf("scene %s: unknown character %s", scID, id)
			}
		}
		for _, id := range sc.Locations {
			if !p.Locations.Has(id) {
				return fmt.Errorf("scene %s: unknown location %s", scID, id)
			}
		}
		for _, id := range sc.Items {
			if !p.Items.Has(id) {
				return fmt.Errorf("scene %s: unknown item %s", scID, id)
			}
		}
	}
	return nil
}

// Stats summarizes the size of a project.
type Stats struct {
	Chapters int `json:"chapters"`
	Scenes   int `json:"scenes"`
	Words    int `json:"words"`
	Letters  int `json:"letters"`
}

// Stats counts chapters, scenes and words of the scenes referenced by
// chapters.
func (p *Project) Stats() Stats {
	var s Stats
	for _, ch := range p.Chapters.All() {
		s.Chapters++
		for _, scID := range ch.SceneIDs {
			sc, ok := p.Scenes.Get(scID)
			if !ok {
				continue
			}
			s.Scenes++
			s.Words += sc.WordCount()
			s.Letters += sc.LetterCount()
		}
	}
	return s
}

// FileMetadata describes a project or Markdown file in the library.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
