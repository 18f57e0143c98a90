package models

// WorldElement is the shape shared by characters, locations and items.
type WorldElement struct {
	Title string
	Image *string
	Desc  *string
	Tags  []string
	AKA   *string
}

// Character is a world element with biographical fields.
type Character struct {
	WorldElement
	Notes    *string
	Bio      *string
	Goals    *string
	FullName *string
	IsMajor  *bool
}
