package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/speakleash/pkg/speakleash/dataset"
)

var cacheClearAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the replica directory",
	Long: `Commands for managing the replica directory.

The replica directory holds cached registry listings and manifests
({md5(url)}-{bucket}.json) and downloaded dataset archives ({name}.jsonl.zst).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached registry documents",
	Long: `Removes cached listings, manifests, samples and interrupted downloads.
With --all, downloaded archives and cached category labels are removed too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir := cfg.ReplicateDir
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			printInfo(cmd, "Cache is already empty.")
			return nil
		}

		stats, err := scanReplica(dir)
		if err != nil {
			return fmt.Errorf("failed to scan cache: %w", err)
		}

		remove := slices.Concat(stats.Structures.paths, stats.Partial.paths)
		if cacheClearAll {
			remove = append(remove, stats.Archives.paths...)
		}
		for _, path := range remove {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			printVerbose(cmd, "removed %s", path)
		}

		if cacheClearAll {
			if err := os.RemoveAll(cfg.LabelsPath()); err != nil {
				return fmt.Errorf("failed to clear label store: %w", err)
			}
		}

		printInfo(cmd, "Cache cleared (%d files).", len(remove))
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays the number and size of cached documents and archives.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir := cfg.ReplicateDir
		out := cmd.OutOrStdout()

		info, err := os.Stat(dir)
		if os.IsNotExist(err) {
			fmt.Fprintln(out, "Cache: empty (no replica directory)")
			fmt.Fprintf(out, "Cache location: %s\n", dir)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to stat cache: %w", err)
		}

		stats, err := scanReplica(dir)
		if err != nil {
			return fmt.Errorf("failed to scan cache: %w", err)
		}

		fmt.Fprintf(out, "Cache location: %s\n", dir)
		fmt.Fprintf(out, "Documents:      %d (%s)\n", stats.Structures.Count, humanize.IBytes(uint64(stats.Structures.Size)))
		fmt.Fprintf(out, "Archives:       %d (%s)\n", stats.Archives.Count, humanize.IBytes(uint64(stats.Archives.Size)))
		if stats.Partial.Count > 0 {
			fmt.Fprintf(out, "Partial:        %d (%s)\n", stats.Partial.Count, humanize.IBytes(uint64(stats.Partial.Size)))
		}
		if stats.Other.Count > 0 {
			fmt.Fprintf(out, "Other files:    %d (%s)\n", stats.Other.Count, humanize.IBytes(uint64(stats.Other.Size)))
		}
		fmt.Fprintf(out, "Label store:    %s (%s)\n", cfg.LabelsPath(), cfg.Labels.Store)
		fmt.Fprintf(out, "Last modified:  %s\n", info.ModTime().Format(time.DateTime))
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the replica directory.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cfg.ReplicateDir)
	},
}

func init() {
	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "also remove archives and cached labels")
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

// fileGroup counts files of one kind.
type fileGroup struct {
	Count int
	Size  int64
	paths []string
}

func (g *fileGroup) add(path string, size int64) {
	g.Count++
	g.Size += size
	g.paths = append(g.paths, path)
}

// replicaStats classifies the files of a replica directory.
type replicaStats struct {
	Structures fileGroup
	Archives   fileGroup
	Partial    fileGroup
	Other      fileGroup
}

// structureName matches {md5}-MM_DD_YY[_HH].json.
var structureName = regexp.MustCompile(`^[0-9a-f]{32}-\d{2}_\d{2}_\d{2}(_\d{2})?\.json$`)

// scanReplica walks dir and groups its regular files by kind.
func scanReplica(dir string) (*replicaStats, error) {
	var (
		mu    sync.Mutex
		stats replicaStats
	)

	root := filepath.Clean(dir)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if d.IsDir() {
			if filepath.Clean(path) != root {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil //nolint:nilerr // entries we can't stat are skipped
		}

		name := d.Name()
		mu.Lock()
		defer mu.Unlock()
		switch {
		case structureName.MatchString(name):
			stats.Structures.add(path, info.Size())
		case strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".part"):
			stats.Partial.add(path, info.Size())
		case strings.HasSuffix(name, dataset.DataSuffix):
			stats.Archives.add(path, info.Size())
		default:
			stats.Other.add(path, info.Size())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
