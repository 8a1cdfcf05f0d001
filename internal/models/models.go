package models

import (
	"fmt"
	"strings"
)

const watchURL = "https://www.youtube.com/watch?v="

// CatalogItem is a single track read from the catalog provider.
type CatalogItem struct {
	Title      string
	Artist     string
	Album      string
	ExternalID string // Catalog provider track ID
}

// Query builds the search string used to discover sources for the item.
func (c CatalogItem) Query(suffix string) string {
	q := strings.TrimSpace(c.Title + " " + c.Artist)
	if suffix == "" {
		return q
	}
	return q + " " + suffix
}

func (c CatalogItem) String() string {
	return fmt.Sprintf("%s - %s", c.Title, c.Artist)
}

// SourceCandidate is an opaque identifier for a downloadable media source.
type SourceCandidate struct {
	Identifier   string
	ProviderHint string
}

// URL returns the watch URL for the candidate.
func (s SourceCandidate) URL() string {
	return watchURL + s.Identifier
}

// Playlist represents a catalog playlist
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
}

// PlaylistExport represents a playlist with all of its items
type PlaylistExport struct {
	Playlist Playlist
	Items    []CatalogItem
}
