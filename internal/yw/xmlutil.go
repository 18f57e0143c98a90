package yw

import (
	"strings"

	"github.com/beevik/etree"
)

const (
	flagTrue  = "-1"
	fieldTrue = "1"
	tagSep    = ";"
)

// cdataTags are written as CDATA sections holding the raw text.
var cdataTags = map[string]bool{
	"Title":        true,
	"AuthorName":   true,
	"Bio":          true,
	"Desc":         true,
	"FieldTitle1":  true,
	"FieldTitle2":  true,
	"FieldTitle3":  true,
	"FieldTitle4":  true,
	"Tags":         true,
	"AKA":          true,
	"ImageFile":    true,
	"FullName":     true,
	"Goals":        true,
	"Notes":        true,
	"RTFFile":      true,
	"SceneContent": true,
	"Outcome":      true,
	"Goal":         true,
	"Conflict":     true,
}

// textOf returns the text of the first child named tag.
func textOf(parent *etree.Element, tag string) (string, bool) {
	el := parent.SelectElement(tag)
	if el == nil {
		return "", false
	}
	return el.Text(), true
}

func optText(parent *etree.Element, tag string) *string {
	text, ok := textOf(parent, tag)
	if !ok {
		return nil
	}
	return &text
}

func has(parent *etree.Element, tag string) bool {
	return parent.SelectElement(tag) != nil
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, tagSep) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// idList reads the text of every child element of parent/listTag named
// itemTag.
func idList(parent *etree.Element, listTag, itemTag string) []string {
	list := parent.SelectElement(listTag)
	if list == nil {
		return nil
	}
	ids := []string{}
	for _, el := range list.SelectElements(itemTag) {
		if id := strings.TrimSpace(el.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func child(parent *etree.Element, tag string) *etree.Element {
	if el := parent.SelectElement(tag); el != nil {
		return el
	}
	return parent.CreateElement(tag)
}

func remove(parent *etree.Element, tag string) {
	for _, el := range parent.SelectElements(tag) {
		parent.RemoveChild(el)
	}
}

func setRaw(parent *etree.Element, tag, text string) {
	el := child(parent, tag)
	if cdataTags[tag] && !strings.Contains(text, "]]>") {
		el.SetCData(text)
		return
	}
	el.SetText(text)
}

// setText writes v into tag. A nil v leaves the element untouched.
func setText(parent *etree.Element, tag string, v *string) {
	if v == nil {
		return
	}
	setRaw(parent, tag, *v)
}

// setFlag writes a presence flag. A nil v leaves the element untouched.
func setFlag(parent *etree.Element, tag, value string, v *bool) {
	if v == nil {
		return
	}
	if *v {
		setRaw(parent, tag, value)
		return
	}
	remove(parent, tag)
}

func setTags(parent *etree.Element, tags []string) {
	if tags == nil {
		return
	}
	if len(tags) == 0 {
		remove(parent, "Tags")
		return
	}
	setRaw(parent, "Tags", strings.Join(tags, tagSep))
}

// setIDList rebuilds parent/listTag from ids. A nil ids leaves the list
// untouched.
func setIDList(parent *etree.Element, listTag, itemTag string, ids []string) {
	if ids == nil {
		return
	}
	remove(parent, listTag)
	if len(ids) == 0 {
		return
	}
	list := parent.CreateElement(listTag)
	for _, id := range ids {
		list.CreateElement(itemTag).SetText(id)
	}
}

// section returns root/tag, creating it when missing.
func section(root *etree.Element, tag string) *etree.Element {
	return child(root, tag)
}

func dropEmpty(parent *etree.Element, tag string) {
	if el := parent.SelectElement(tag); el != nil && len(el.ChildElements()) == 0 {
		parent.RemoveChild(el)
	}
}
