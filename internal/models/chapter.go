package models

// Level distinguishes a part heading from an ordinary chapter.
type Level int

const (
	LevelChapter Level = 0
	LevelPart    Level = 1
)

// Kind is the content kind of a chapter or scene.
type Kind int

const (
	KindNormal Kind = 0
	KindNotes  Kind = 1
	KindTodo   Kind = 2
)

// Chapter groups scenes. Nil pointers mean the value was not carried by the
// source the chapter was read from.
type Chapter struct {
	Title         string
	Desc          *string
	Level         *Level
	OldType       *string
	Kind          *Kind
	Unused        *bool
	SuppressTitle *bool
	IsTrash       *bool
	SuppressBreak *bool
	SceneIDs      []string
}

func (c *Chapter) IsPart() bool          { return Deref(c.Level) == LevelPart }
func (c *Chapter) IsUnused() bool        { return Deref(c.Unused) }
func (c *Chapter) IsTrashBin() bool      { return Deref(c.IsTrash) }
func (c *Chapter) TitleSuppressed() bool { return Deref(c.SuppressTitle) }
func (c *Chapter) ContentKind() Kind     { return Deref(c.Kind) }

// InManuscript reports whether the chapter belongs to the exported
// manuscript: a used normal chapter outside the trash bin.
func (c *Chapter) InManuscript() bool {
	return !c.IsUnused() && !c.IsTrashBin() && c.ContentKind() == KindNormal
}
