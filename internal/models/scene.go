package models

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Status is the editing status of a scene.
type Status int

const (
	StatusNone Status = iota
	StatusOutline
	StatusDraft
	StatusFirstEdit
	StatusSecondEdit
	StatusDone
)

var statusNames = [...]string{"None", "Outline", "Draft", "1st Edit", "2nd Edit", "Done"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return statusNames[0]
	}
	return statusNames[s]
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return s >= StatusNone && s <= StatusDone
}

var (
	bracketRe   = regexp.MustCompile(`\[.+?\]`)
	wordNoiseRe = regexp.MustCompile(`\[.+?\]|\.|,| -`)
)

// Scene is a unit of text inside a chapter. Nil pointers and nil slices mean
// the value was not carried by the source the scene was read from.
type Scene struct {
	Title string
	Desc  *string

	content     *string
	wordCount   int
	letterCount int

	Status       *Status
	Kind         *Kind
	Unused       *bool
	DoNotExport  *bool
	AppendToPrev *bool

	IsReaction *bool
	Goal       *string
	Conflict   *string
	Outcome    *string
	Notes      *string
	Tags       []string
	Fields     [FieldCount]*string

	// Date and Time form the absolute schedule; Day, Hour and Minute the
	// relative one. A scene carries one or the other.
	Date   *string
	Time   *string
	Day    *string
	Hour   *string
	Minute *string

	LastsDays    *string
	LastsHours   *string
	LastsMinutes *string

	Characters []string
	Locations  []string
	Items      []string
}

// SetContent stores the body text and recomputes word and letter counts.
func (s *Scene) SetContent(text string) {
	s.content = &text
	s.wordCount, s.letterCount = CountText(text)
}

// Content returns the body text and whether one was set.
func (s *Scene) Content() (string, bool) {
	if s.content == nil {
		return "", false
	}
	return *s.content, true
}

func (s *Scene) WordCount() int   { return s.wordCount }
func (s *Scene) LetterCount() int { return s.letterCount }

func (s *Scene) IsUnused() bool        { return Deref(s.Unused) }
func (s *Scene) IsExcluded() bool      { return Deref(s.DoNotExport) }
func (s *Scene) AppendsToPrev() bool   { return Deref(s.AppendToPrev) }
func (s *Scene) ContentKind() Kind     { return Deref(s.Kind) }
func (s *Scene) CurrentStatus() Status { return Deref(s.Status) }

// Viewpoint returns the first character id, if any.
func (s *Scene) Viewpoint() (string, bool) {
	if len(s.Characters) == 0 {
		return "", false
	}
	return s.Characters[0], true
}

// CountText returns the word and letter counts of scene text. Words are the
// whitespace-separated tokens left after removing bracketed markup, commas,
// periods and " -" sequences; letters are the runes left after removing
// bracketed markup and line breaks.
func CountText(text string) (words, letters int) {
	words = len(strings.Fields(wordNoiseRe.ReplaceAllString(text, "")))
	stripped := bracketRe.ReplaceAllString(text, "")
	stripped = strings.NewReplacer("\n", "", "\r", "").Replace(stripped)
	letters = utf8.RuneCountInString(stripped)
	return words, letters
}
