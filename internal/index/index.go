package index

import "github.com/starford/ywmark/internal/models"

// ProjectIndex defines the interface for manuscript indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ProjectIndex interface {
	IndexProject(path, format, checksum string, p *models.Project) error
	DeleteProject(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	GetProject(path string) (*ProjectRow, error)
	ListProjects() ([]ProjectRow, error)
	Scenes(project string) ([]SceneRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	RecordConversion(c ConversionRow) (ConversionRow, error)
	Conversions(limit int) ([]ConversionRow, error)
	Ping() error
	Close() error
}

// Verify *DB satisfies ProjectIndex at compile time.
var _ ProjectIndex = (*DB)(nil)
