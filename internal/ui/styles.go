package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/wallfeed/internal/store"
)

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
)

// SelectedItem style for the currently highlighted item.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalItem style for unselected items.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// CachedItem style for items already downloaded to disk.
var CachedItem = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Padding(0, 1)

// PinMarker style for the favorite indicator.
var PinMarker = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in the status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in the status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// NoticeStyle for transient warnings (network trouble).
var NoticeStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("214")).
	Bold(true).
	Padding(0, 1)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// sourcePalette maps each provider to a stable badge color.
var sourcePalette = map[store.Source]lipgloss.Color{
	store.SourceBing:     lipgloss.Color("39"),
	store.SourcePeapix:   lipgloss.Color("141"),
	store.SourceQihu:     lipgloss.Color("208"),
	store.SourceUnsplash: lipgloss.Color("75"),
	store.SourcePexels:   lipgloss.Color("78"),
	store.SourceRSS:      lipgloss.Color("99"),
}

// SourceColor returns the badge color for a provider, with a neutral
// fallback for tags added after this palette was drawn.
func SourceColor(src store.Source) lipgloss.Color {
	if c, ok := sourcePalette[src]; ok {
		return c
	}
	return colorSecondary
}
