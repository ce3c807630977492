// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks a single download batch through four views:
//  1. [TrackListView] : Preview the tracks of a track, album or playlist
//  2. [ConfirmView] : Confirm the download
//  3. [DownloadView] : Follow per-track progress, retries included
//  4. [ResultView] : Summary with failed tracks, which can be retried
//
// Progress updates flow through a channel from a [BatchRunner] (normally the
// tasks.DownloadEngine) and arrive as [Msg] values, so the engine never blocks on the UI.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, y/n, r, q) with contextual help from charmbracelet/bubbles/help.
package ui
