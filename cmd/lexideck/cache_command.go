package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lexideck/internal/mediacache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the media cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show media cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, ctx, func(cache *mediacache.Cache) error {
				stats, err := cache.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				printCacheStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print stats as JSON")
	return cmd
}

func printCacheStats(out io.Writer, stats mediacache.Stats) {
	fmt.Fprintf(out, "Directory: %s\n", stats.Dir)
	fmt.Fprintf(out, "Entries:   %d\n", stats.Entries)
	fmt.Fprintf(out, "Size:      %s\n", humanize.IBytes(uint64(max(stats.TotalBytes, 0))))
	if stats.TotalFSBytes > 0 {
		fmt.Fprintf(out, "Disk:      %s free of %s (%.1f%%)\n",
			humanize.IBytes(stats.FreeBytes), humanize.IBytes(stats.TotalFSBytes), stats.FreeRatio*100)
	}
	if len(stats.Kinds) == 0 {
		return
	}
	rows := make([][]string, 0, len(stats.Kinds))
	for _, k := range stats.Kinds {
		rows = append(rows, []string{k.Kind, strconv.Itoa(k.Entries), humanize.IBytes(uint64(max(k.TotalBytes, 0)))})
	}
	fmt.Fprintln(out, renderTable(
		[]column{textColumn("Kind"), numericColumn("Entries"), numericColumn("Size")}, rows, nil))
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var (
		kind       string
		limit      int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached artifacts, most recently used first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, ctx, func(cache *mediacache.Cache) error {
				entries, err := cache.List(cmd.Context(), strings.TrimSpace(kind), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No cached artifacts")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.FileName,
						e.Kind,
						humanize.IBytes(uint64(max(e.SizeBytes, 0))),
						humanize.Time(e.LastUsedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{textColumn("File"), textColumn("Kind"), numericColumn("Size"), textColumn("Last used")},
					rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only list this kind (word_audio, sentence_audio, image)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the media cache without --yes")
			}
			return withCache(cmd, ctx, func(cache *mediacache.Cache) error {
				removed, err := cache.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached artifacts\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Reconcile the cache index with the files on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, ctx, func(cache *mediacache.Cache) error {
				result, err := cache.Prune(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if result == (mediacache.PruneResult{}) {
					fmt.Fprintln(out, "Cache index already consistent")
					return nil
				}
				fmt.Fprintf(out, "Dropped %d stale rows, removed %d temp and %d empty files, adopted %d artifacts\n",
					result.RemovedRows, result.RemovedTemp, result.RemovedEmpty, result.Adopted)
				return nil
			})
		},
	}
}

func withCache(cmd *cobra.Command, ctx *commandContext, fn func(*mediacache.Cache) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cache, err := mediacache.Open(cmd.Context(), cfg.Paths.MediaDir,
		mediacache.WithRevision(cfg.Deck.MediaRevision),
		mediacache.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer cache.Close()
	return fn(cache)
}
