package api

import (
	"github.com/starford/ywmark/internal/convert"
	"github.com/starford/ywmark/internal/index"
	"github.com/starford/ywmark/internal/library"
)

// ConvertRequest is the request body for running a conversion.
type ConvertRequest struct {
	Path      string `json:"path" example:"novel.md" validate:"required"`
	Overwrite bool   `json:"overwrite" example:"false"`
}

// ConvertResponse reports a finished conversion.
type ConvertResponse struct {
	Message string          `json:"message" example:"File written: \"novel.yw7\"" validate:"required"`
	Result  *convert.Result `json:"result" validate:"required"`
}

// ProjectDetail is the live project structure (aliased from the domain layer).
type ProjectDetail = library.ProjectDetail

// ProjectListItem is one indexed library file (aliased from the index).
type ProjectListItem = index.ProjectRow

// ProjectListResponse wraps the library listing.
type ProjectListResponse struct {
	Projects []ProjectListItem `json:"projects" validate:"required"`
	Total    int               `json:"total" example:"3" validate:"required"`
}

// SearchResult is a single scene hit (aliased from the index).
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// ConversionsResponse wraps the conversion log.
type ConversionsResponse struct {
	Conversions []index.ConversionRow `json:"conversions" validate:"required"`
}
