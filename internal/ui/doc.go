// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI renders a live view of a running sync:
//  1. [SyncView] : Phase, progress bar, and the song currently transferring
//  2. [ResultView] : Final counts (downloaded, skipped, failed, relocated, playlists)
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the sync engine, providing
// non-blocking status reporting during transfers. Pressing q cancels the
// sync through its context.
package ui
