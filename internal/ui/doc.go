// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for the scrobble archive:
//  1. [ConfirmView] : Confirm an incremental import for the signed-in user
//  2. [ImportView] : Monitor real-time progress updates with a progress bar
//  3. [ResultView] : Display import counters and skip reasons
//  4. [BrowseView] : Page through the archived listening history in a table
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the ImportEngine, providing non-blocking status reporting during imports.
// Cancelling mid-import is safe; the resume point is persisted before the program exits.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
