package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the local image cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cacheStatus()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show cache size against its ceiling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cacheStatus()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached image file",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			n, err := d.cache.Clear()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d files\n", n)
			return nil
		},
	})

	var target int64
	evict := &cobra.Command{
		Use:   "evict",
		Short: "Delete least-recently-used images down to a size target",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			n, err := d.cache.EvictLRU(target)
			if err != nil {
				return err
			}
			fmt.Printf("evicted %d files\n", n)
			return nil
		},
	}
	evict.Flags().Int64Var(&target, "target-bytes", -1, "Size to shrink to (default: the configured ceiling)")
	cmd.AddCommand(evict)

	return cmd
}

func cacheStatus() error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.close()

	size, err := d.cache.SizeBytes()
	if err != nil {
		return err
	}
	count, err := d.cache.Count()
	if err != nil {
		return err
	}
	full, err := d.cache.IsFull()
	if err != nil {
		return err
	}

	fmt.Printf("dir:   %s\n", d.cache.Dir())
	fmt.Printf("files: %d\n", count)
	fmt.Printf("size:  %s of %s\n", formatBytes(size), formatBytes(d.cache.MaxBytes()))
	if full {
		fmt.Println("the cache is at its ceiling; run 'wallfeed cache evict' to reclaim space")
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
