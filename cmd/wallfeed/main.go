// Package main provides the wallfeed CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/wallfeed/internal/aggregate"
	"github.com/abelbrown/wallfeed/internal/cache"
	"github.com/abelbrown/wallfeed/internal/config"
	"github.com/abelbrown/wallfeed/internal/logging"
	"github.com/abelbrown/wallfeed/internal/source"
	"github.com/abelbrown/wallfeed/internal/store"
)

const fetchTimeout = 30 * time.Second

func main() {
	if err := logging.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	}
	defer logging.Close()

	rootCmd := &cobra.Command{
		Use:   "wallfeed",
		Short: "A streaming wallpaper feed for your terminal",
		Long: `wallfeed aggregates wallpapers from several providers into a local
catalog and streams them in a terminal browser. Items can be pinned,
downloaded to a local cache, and applied as the desktop wallpaper.

Running wallfeed with no subcommand opens the stream browser.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream()
		},
	}

	rootCmd.AddCommand(streamCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(favoritesCmd())
	rootCmd.AddCommand(pinCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(sourcesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// deps bundles everything a command needs, built once per invocation.
type deps struct {
	cfg     *config.Config
	store   *store.Store
	cache   *cache.DiskCache
	agg     *aggregate.Aggregator
	evictor *aggregate.Evictor
}

// evict applies the retention caps for one source ("" = global only).
func (d *deps) evict(src store.Source) (int, error) {
	return d.evictor.Trim(d.store, src)
}

func (d *deps) close() {
	if d.store != nil {
		d.store.Close()
	}
}

// openDeps loads the config and opens the catalog and image cache.
func openDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	dc, err := cache.New(cfg.CacheDir(), cfg.Cache.MaxBytes)
	if err != nil {
		st.Close()
		return nil, err
	}

	evictor := aggregate.NewEvictor(cfg.Retention.PerSourceCap, cfg.Retention.GlobalCap)
	agg := aggregate.New(st, evictor, buildSourceTable(cfg), fetchTimeout)

	return &deps{cfg: cfg, store: st, cache: dc, agg: agg, evictor: evictor}, nil
}

// buildSourceTable constructs a provider client for every configured
// source. Keyed providers without a key come out disabled regardless of
// the config flag.
func buildSourceTable(cfg *config.Config) map[store.Source]aggregate.SourceConfig {
	table := make(map[store.Source]aggregate.SourceConfig)

	for tag, settings := range cfg.Sources {
		var client source.Client
		enabled := settings.Enabled

		switch tag {
		case store.SourceBing:
			client = source.NewBingClient(nil, fetchTimeout)
		case store.SourcePeapix:
			client = source.NewPeapixClient(settings.Country, fetchTimeout)
		case store.SourceQihu:
			client = source.NewQihuClient(fetchTimeout)
		case store.SourceUnsplash:
			c := source.NewUnsplashClient(settings.APIKey, fetchTimeout)
			enabled = enabled && c.Available()
			client = c
		case store.SourcePexels:
			if settings.APIKey == "" {
				enabled = false
			}
			client = source.NewPexelsClient(settings.APIKey, fetchTimeout)
		case store.SourceRSS:
			if settings.FeedURL == "" {
				enabled = false
			}
			client = source.NewRSSClient("rss", settings.FeedURL, fetchTimeout)
		default:
			continue
		}

		table[tag] = aggregate.SourceConfig{
			Client:          client,
			Enabled:         enabled,
			BatchSize:       settings.Batch,
			RefreshInterval: settings.RefreshInterval(),
		}
	}
	return table
}

// printItems writes a catalog listing to stdout. The leading markers
// are * for pinned and # for locally cached.
func printItems(items []store.Item, showIDs bool) {
	for _, item := range items {
		pin := " "
		if item.Pinned {
			pin = "*"
		}
		cached := " "
		if item.LocalPath != "" {
			cached = "#"
		}
		title := item.Title
		if title == "" {
			title = item.ContentURL
		}
		if showIDs {
			fmt.Printf("%s%s %-36s %-10s %-12s %s\n",
				pin, cached, item.ID, item.Source, item.AddedAt.Format("2006-01-02"), title)
			continue
		}
		fmt.Printf("%s%s %-10s %-12s %s\n",
			pin, cached, item.Source, item.AddedAt.Format("2006-01-02"), title)
	}
}
