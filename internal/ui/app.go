package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/wallfeed/internal/store"
	"github.com/abelbrown/wallfeed/internal/stream"
)

// Feed is the read side of the live sequence the App consumes. The
// scheduler's snapshot reads are safe to interleave with background
// appends.
type Feed interface {
	Items() []store.Item
	Len() int
	At(i int) (store.Item, bool)
	Loading() bool
}

// App is the root Bubble Tea model.
//
// App reads the feed but never mutates the catalog directly: writes go
// through the injected command functions and come back as messages.
type App struct {
	feed Feed

	// reportPosition drives the prefetch trigger as the cursor moves.
	reportPosition func(p int)
	// requestRefresh forces a load round; reports whether one started.
	requestRefresh func() bool
	// downloadItem fetches an item's image to disk and yields DownloadDone.
	downloadItem func(id string) tea.Cmd
	// applyItem downloads if needed and sets the wallpaper, yielding Applied.
	applyItem func(id string) tea.Cmd
	// togglePin persists a pin flip and yields PinToggled.
	togglePin func(id string) tea.Cmd

	spin   spinner.Model
	cursor int
	err    error
	notice string
	width  int
	height int
	ready  bool
}

// Callbacks bundles the command functions the App needs.
type Callbacks struct {
	ReportPosition func(p int)
	RequestRefresh func() bool
	DownloadItem   func(id string) tea.Cmd
	ApplyItem      func(id string) tea.Cmd
	TogglePin      func(id string) tea.Cmd
}

// NewApp creates the root model over a feed and its command functions.
func NewApp(feed Feed, cb Callbacks) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorHighlight)

	return App{
		feed:           feed,
		reportPosition: cb.ReportPosition,
		requestRefresh: cb.RequestRefresh,
		downloadItem:   cb.DownloadItem,
		applyItem:      cb.ApplyItem,
		togglePin:      cb.TogglePin,
		spin:           sp,
	}
}

// Init reports the starting position so an empty feed triggers an
// immediate load.
func (a App) Init() tea.Cmd {
	if a.reportPosition != nil {
		a.reportPosition(0)
	}
	return a.spin.Tick
}

// Update handles messages and returns the updated model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case stream.SourceComplete:
		// Items already appended by the scheduler; the next View picks
		// them up from the feed snapshot.
		return a, nil

	case stream.RoundComplete:
		if msg.Appended > 0 {
			a.notice = ""
		}
		return a, nil

	case stream.StalledNotice:
		a.notice = "No new wallpapers after several attempts. Check your network."
		return a, nil

	case stream.OfflineNotice:
		a.notice = "Network unreachable."
		return a, nil

	case DownloadDone:
		if msg.Err != nil {
			a.err = msg.Err
		}
		return a, nil

	case Applied:
		if msg.Err != nil {
			a.err = msg.Err
		}
		return a, nil

	case PinToggled:
		if msg.Err != nil {
			a.err = msg.Err
		}
		return a, nil
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.err != nil {
		a.err = nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "j", "down":
		if a.cursor < a.feed.Len()-1 {
			a.cursor++
			a.report()
		}
		return a, nil

	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
			a.report()
		}
		return a, nil

	case "g", "home":
		a.cursor = 0
		a.report()
		return a, nil

	case "G", "end":
		if n := a.feed.Len(); n > 0 {
			a.cursor = n - 1
			a.report()
		}
		return a, nil

	case "enter":
		if item, ok := a.feed.At(a.cursor); ok && a.applyItem != nil {
			return a, a.applyItem(item.ID)
		}
		return a, nil

	case "d":
		if item, ok := a.feed.At(a.cursor); ok && a.downloadItem != nil {
			return a, a.downloadItem(item.ID)
		}
		return a, nil

	case "f":
		if item, ok := a.feed.At(a.cursor); ok && a.togglePin != nil {
			return a, a.togglePin(item.ID)
		}
		return a, nil

	case "r":
		if a.requestRefresh != nil {
			a.requestRefresh()
		}
		return a, nil
	}

	return a, nil
}

// report forwards the cursor to the prefetch trigger.
func (a App) report() {
	if a.reportPosition != nil {
		a.reportPosition(a.cursor)
	}
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	contentHeight := a.height - 1
	if a.err != nil || a.notice != "" {
		contentHeight--
	}

	view := RenderStream(a.feed.Items(), a.cursor, a.width, contentHeight)

	banner := ""
	switch {
	case a.err != nil:
		banner = ErrorStyle.Width(a.width).Render("Error: " + a.err.Error() + " (press any key to dismiss)")
	case a.notice != "":
		banner = NoticeStyle.Width(a.width).Render(a.notice)
	}

	statusBar := RenderStatusBar(a.cursor, a.feed.Len(), a.width, a.feed.Loading(), a.spin.View())

	return view + banner + statusBar
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}
