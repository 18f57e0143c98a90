// Package storage defines the library file-system abstraction.
package storage

import "github.com/starford/ywmark/internal/models"

// LockSuffix marks the sentinel file a desktop editor leaves next to a
// project it has open.
const LockSuffix = ".lock"

// Provider is the interface for library file operations.
type Provider interface {
	// List returns metadata for every project and Markdown file under dir
	// (relative to the library root).
	List(dir string) ([]models.FileMetadata, error)
	// Exists reports whether a regular file is present at path.
	Exists(path string) (bool, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Locked reports whether the lock sentinel for path is present.
	Locked(path string) (bool, error)
}
