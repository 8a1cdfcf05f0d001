package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/songdl/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// trackItem wraps [models.CatalogItem] to implement [list.Item].
type trackItem struct {
	item models.CatalogItem
}

func (i trackItem) FilterValue() string { return i.item.Title }
func (i trackItem) Title() string       { return i.item.Title }
func (i trackItem) Description() string {
	desc := i.item.Artist
	if i.item.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.item.Album)
	}
	return desc
}
