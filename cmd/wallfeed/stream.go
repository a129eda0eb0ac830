package main

import (
	"context"
	"fmt"
	"net"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/wallfeed/internal/download"
	"github.com/abelbrown/wallfeed/internal/store"
	"github.com/abelbrown/wallfeed/internal/stream"
	"github.com/abelbrown/wallfeed/internal/ui"
)

func streamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stream",
		Short: "Open the wallpaper stream browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream()
		},
	}
}

// runStream wires the scheduler, downloader, and TUI together and runs
// until quit.
func runStream() error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dl := download.New(d.store, d.cache, download.DefaultTimeout)
	applier := download.NewApplier()

	// The scheduler is created before the program so the app can read
	// it; events flow back in through program.Send once it exists.
	var program *tea.Program
	sched := stream.New(d.agg,
		stream.WithPrefetchThreshold(d.cfg.Stream.PrefetchThreshold),
		stream.WithPreflight(online),
		stream.WithNotify(func(msg any) {
			if program != nil {
				program.Send(msg)
			}
		}),
	)

	// Start from what the catalog already holds.
	seed, err := d.store.Items(store.Query{Limit: d.cfg.Retention.GlobalCap})
	if err != nil {
		return err
	}
	sched.Seed(seed)

	app := ui.NewApp(sched, ui.Callbacks{
		ReportPosition: func(p int) {
			sched.ReportPosition(ctx, p)
		},
		RequestRefresh: func() bool {
			return sched.Refresh(ctx)
		},
		DownloadItem: func(id string) tea.Cmd {
			return func() tea.Msg {
				path, err := fetchItem(ctx, d.store, dl, sched, id)
				return ui.DownloadDone{ID: id, Path: path, Err: err}
			}
		},
		ApplyItem: func(id string) tea.Cmd {
			return func() tea.Msg {
				path, err := fetchItem(ctx, d.store, dl, sched, id)
				if err != nil {
					return ui.Applied{ID: id, Err: err}
				}
				return ui.Applied{ID: id, Err: applier.Apply(ctx, path)}
			}
		},
		TogglePin: func(id string) tea.Cmd {
			return func() tea.Msg {
				pinned, err := d.store.TogglePin(id)
				if err == nil {
					sched.MarkPinned(id, pinned)
				}
				return ui.PinToggled{ID: id, Pinned: pinned, Err: err}
			}
		},
	})

	program = tea.NewProgram(app, tea.WithAltScreen())
	_, runErr := program.Run()

	// Stop scheduling new rounds but let an in-flight one settle, so
	// already-fetched items still land in the catalog.
	sched.Pause()
	cancel()
	sched.Wait()

	return runErr
}

// fetchItem resolves an item and ensures its image is on disk, keeping
// the live sequence's copy in sync.
func fetchItem(ctx context.Context, st *store.Store, dl *download.Downloader, sched *stream.Scheduler, id string) (string, error) {
	item, err := st.Item(id)
	if err != nil {
		return "", err
	}
	if item == nil {
		return "", fmt.Errorf("no item with id %q", id)
	}
	path, err := dl.Fetch(ctx, *item)
	if err != nil {
		return "", err
	}
	sched.MarkLocalPath(id, path)
	return path, nil
}

// online is the preflight connectivity check: one quick TCP dial to a
// public resolver. Cheaper than letting every provider time out in turn.
func online() bool {
	conn, err := net.DialTimeout("tcp", "1.1.1.1:443", 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
