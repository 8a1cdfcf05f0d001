// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for playlist downloads:
//  1. [PlaylistListView] : Browse and select Spotify playlists
//  2. [TrackListView] : Preview tracks before downloading
//  3. [ConfirmView] : Confirm the output directory
//  4. [BatchView] : Monitor progress with a progress bar and status line, x cancels
//  5. [ResultView] : Display the batch summary
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the download engine, providing non-blocking status reporting during batches.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, x, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
