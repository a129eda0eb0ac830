package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abelbrown/wallfeed/internal/store"
)

func fetchCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch [source]",
		Short: "Run one aggregation cycle",
		Long: `Fetch new wallpapers into the catalog. With a source argument only
that provider is queried; otherwise every enabled provider runs.

Each source honors its configured refresh interval unless --force is
given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			targets := d.agg.Sources()
			if len(args) == 1 {
				targets = []store.Source{store.Source(args[0])}
			}

			for _, src := range targets {
				outcome, err := d.agg.Run(context.Background(), src, force)
				if err != nil {
					return err
				}
				if !outcome.Refreshed {
					fmt.Printf("%-10s up to date (%d items)\n", src, outcome.SourceTotal)
					continue
				}
				fmt.Printf("%-10s fetched %d, new %d, duplicate %d, saved %d (%d items)\n",
					src, outcome.Fetched, outcome.New, outcome.Duplicate,
					outcome.Saved, outcome.SourceTotal)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Fetch even within the refresh interval")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		src     string
		limit   int
		showIDs bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged wallpapers, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			items, err := d.store.Items(store.Query{
				Source: store.Source(src),
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			printItems(items, showIDs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&src, "source", "s", "", "Only list one provider")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum items to show")
	cmd.Flags().BoolVar(&showIDs, "ids", false, "Include item IDs (for the pin command)")
	return cmd
}

func favoritesCmd() *cobra.Command {
	var showIDs bool

	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "List pinned wallpapers",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			pinned := true
			items, err := d.store.Items(store.Query{Pinned: &pinned})
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No favorites yet. Pin items with 'f' in the stream or 'wallfeed pin <id>'.")
				return nil
			}
			printItems(items, showIDs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showIDs, "ids", false, "Include item IDs")
	return cmd
}

func pinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <id>",
		Short: "Toggle an item's pinned state",
		Long: `Toggle the pinned state of a cataloged item. Pinned items are exempt
from retention eviction. Find IDs with 'wallfeed list --ids'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			pinned, err := d.store.TogglePin(args[0])
			if err != nil {
				return err
			}
			if pinned {
				fmt.Println("pinned")
			} else {
				fmt.Println("unpinned")
			}
			return nil
		},
	}
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Apply the retention caps to the catalog",
		Long: `Evict old unpinned items beyond the per-source and global caps.
Normally this runs automatically after every fetch; the command exists
for catalogs written by older versions or after a cap reduction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			total := 0
			for _, src := range d.agg.Sources() {
				n, err := d.evict(src)
				if err != nil {
					return err
				}
				total += n
			}
			// One more pass with no source filter for sources that are
			// present in the catalog but disabled in the config.
			n, err := d.evict("")
			if err != nil {
				return err
			}
			total += n

			fmt.Printf("evicted %d items\n", total)
			return nil
		},
	}
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Show configured providers and their catalog counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			tags := make([]string, 0, len(d.cfg.Sources))
			for tag := range d.cfg.Sources {
				tags = append(tags, string(tag))
			}
			sort.Strings(tags)

			for _, tag := range tags {
				src := store.Source(tag)
				settings := d.cfg.Sources[src]

				state := "disabled"
				if settings.Enabled {
					state = "enabled"
				}
				count, err := d.store.Count(src)
				if err != nil {
					return err
				}
				last, err := d.store.LastAddedAt(src)
				if err != nil {
					return err
				}
				lastStr := "never"
				if !last.IsZero() {
					lastStr = last.Format("2006-01-02 15:04")
				}
				fmt.Printf("%-10s %-9s %4d items, last fetch %s\n", tag, state, count, lastStr)
			}
			return nil
		},
	}
}
