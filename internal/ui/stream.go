package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/wallfeed/internal/store"
)

// RenderStream renders the wallpaper list with the cursor kept visible.
func RenderStream(items []store.Item, cursor, width, height int) string {
	if len(items) == 0 {
		return HelpStyle.Render("No wallpapers yet. Press 'r' to refresh.")
	}

	availableHeight := height
	if availableHeight < 1 {
		availableHeight = 1
	}

	scrollOffset := 0
	if cursor >= availableHeight {
		scrollOffset = cursor - availableHeight + 1
	}

	var b strings.Builder
	rendered := 0
	for i := scrollOffset; i < len(items) && rendered < availableHeight; i++ {
		b.WriteString(renderItemLine(items[i], i == cursor, width))
		b.WriteString("\n")
		rendered++
	}
	return b.String()
}

// renderItemLine renders a single item row: source column, pin and
// cached markers, then the title.
func renderItemLine(item store.Item, selected bool, width int) string {
	const sourceColWidth = 10

	src := string(item.Source)
	if utf8.RuneCountInString(src) > sourceColWidth {
		src = string([]rune(src)[:sourceColWidth])
	}
	src += strings.Repeat(" ", sourceColWidth-utf8.RuneCountInString(src))
	sourceField := lipgloss.NewStyle().Foreground(SourceColor(item.Source)).Render(src)

	marker := "  "
	if item.Pinned {
		marker = PinMarker.Render("♥ ")
	}

	title := displayTitle(item)
	titleWidth := width - sourceColWidth - 6
	if titleWidth < 20 {
		titleWidth = 20
	}
	if utf8.RuneCountInString(title) > titleWidth {
		title = string([]rune(title)[:titleWidth-1]) + "…"
	}

	var titleStyle lipgloss.Style
	switch {
	case selected:
		titleStyle = SelectedItem
	case item.LocalPath != "":
		titleStyle = CachedItem
	default:
		titleStyle = NormalItem
	}

	return sourceField + marker + titleStyle.Render(title)
}

// displayTitle picks the best label for an item: title, then
// attribution, then the URL's file name.
func displayTitle(item store.Item) string {
	if item.Title != "" {
		return item.Title
	}
	if item.Attribution != "" {
		return item.Attribution
	}
	url := item.ContentURL
	if i := strings.LastIndexByte(url, '/'); i >= 0 && i < len(url)-1 {
		return url[i+1:]
	}
	return url
}

// RenderStatusBar renders the bottom bar: position or loading state on
// the left, key hints on the right.
func RenderStatusBar(cursor, total, width int, loading bool, spinnerView string) string {
	var position string
	if loading {
		position = " " + spinnerView + " loading "
	} else {
		position = fmt.Sprintf(" %d/%d ", cursor+1, total)
	}

	keys := []string{
		StatusBarKey.Render("j/k") + StatusBarText.Render(":nav"),
		StatusBarKey.Render("enter") + StatusBarText.Render(":apply"),
		StatusBarKey.Render("d") + StatusBarText.Render(":download"),
		StatusBarKey.Render("f") + StatusBarText.Render(":pin"),
		StatusBarKey.Render("r") + StatusBarText.Render(":refresh"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	keyHints := strings.Join(keys, " ")

	padding := width - lipgloss.Width(position) - lipgloss.Width(keyHints)
	if padding < 0 {
		padding = 0
	}

	bar := position + strings.Repeat(" ", padding) + keyHints
	return StatusBar.Width(width).Render(bar)
}
