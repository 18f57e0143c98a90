// Package yw reads and writes yWriter project files. One codec serves both
// the current .yw7 format and the legacy .yw6 format through a Dialect.
package yw

import (
	"path/filepath"
	"strings"
)

// Dialect describes one variant of the tagged project format.
type Dialect struct {
	Extension string
	RootTag   string
	Version   string
	// StripRTF removes the legacy per-scene RTF file reference on write.
	StripRTF bool
}

var (
	YW7 = Dialect{Extension: ".yw7", RootTag: "YWRITER7", Version: "7"}
	YW6 = Dialect{Extension: ".yw6", RootTag: "YWRITER6", Version: "5", StripRTF: true}
)

var dialects = []Dialect{YW7, YW6}

// DialectFor returns the dialect matching the extension of path.
func DialectFor(path string) (Dialect, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, d := range dialects {
		if d.Extension == ext {
			return d, true
		}
	}
	return Dialect{}, false
}

// IsProjectFile reports whether path has a yWriter project extension.
func IsProjectFile(path string) bool {
	_, ok := DialectFor(path)
	return ok
}

func knownRoot(tag string) bool {
	for _, d := range dialects {
		if d.RootTag == tag {
			return true
		}
	}
	return false
}
