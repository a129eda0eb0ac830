// Package ui provides the Bubble Tea TUI for wallfeed.
package ui

// DownloadDone is sent when an item's full-resolution image has been
// fetched to the local cache.
type DownloadDone struct {
	ID   string
	Path string
	Err  error
}

// Applied is sent when the downloaded image has been handed to the
// desktop applier.
type Applied struct {
	ID  string
	Err error
}

// PinToggled is sent when a pin flip has been persisted.
type PinToggled struct {
	ID     string
	Pinned bool
	Err    error
}
