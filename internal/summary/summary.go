// Package summary handles display of scan results and statistics
package summary

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/bethropolis/dir-digest/internal/fsaccess"
	"github.com/bethropolis/dir-digest/internal/walker"
	"github.com/bethropolis/dir-digest/internal/workspace"
)

// Logger defines the minimal logging interface required
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

// DisplayResults shows the end results of a tree build
func DisplayResults(
	logger Logger,
	res *walker.Result,
	duration time.Duration,
	quiet bool,
) {
	if quiet || res == nil {
		return
	}
	logger.Info("Found %d files in %d entries.", len(res.Files), res.NodeCount)
	if res.Truncated {
		logger.Info("Tree was truncated; raise max_tree_entries to see everything.")
	}
	logger.Info("Scan complete in %v.", duration.Round(time.Millisecond))
}

// DisplayWarnings logs the warnings collected during a build. Warnings are
// shown even in quiet mode.
func DisplayWarnings(logger Logger, warnings []string) {
	for _, w := range warnings {
		logger.Warn("%s", w)
	}
}

// DisplaySkippedItems formats and prints information about skipped items
func DisplaySkippedItems(
	logger Logger,
	skippedItems []walker.SkippedItem,
	output io.Writer,
	quiet bool,
) {
	infoLog := func(format string, args ...interface{}) {
		if !quiet {
			logger.Info(format, args...)
		}
	}

	infoLog("--- Skipped Items (%d) ---", len(skippedItems))
	if len(skippedItems) > 0 {
		items := append([]walker.SkippedItem(nil), skippedItems...)
		sort.Slice(items, func(i, j int) bool {
			return items[i].Path < items[j].Path
		})
		for _, item := range items {
			typeStr := "FILE"
			if item.IsDir {
				typeStr = "DIR " // Add space for alignment
			}
			line := fmt.Sprintf("Skipped %s: %-50.50s [%s]", typeStr, item.Path, item.Reason)
			if item.Pattern != "" {
				line += " " + item.Pattern
			}
			fmt.Fprintln(output, line)
		}
	} else {
		infoLog("No items were skipped.")
	}
	infoLog("--- End Skipped Items ---")
}

// DisplayStats prints filesystem call counts and cache occupancy.
func DisplayStats(output io.Writer, calls *fsaccess.CallStats, cache workspace.CacheStats) {
	fmt.Fprintln(output, "--- Stats ---")
	if calls != nil {
		fmt.Fprintf(output, "Filesystem calls: %d (readdir %d, lstat %d, stat %d, readfile %d, realpath %d)\n",
			calls.Total(), calls.ReadDir, calls.Lstat, calls.Stat, calls.ReadFile, calls.RealPath)
	}
	fmt.Fprintf(output, "Compiled patterns: %d\n", cache.Patterns)
	fmt.Fprintf(output, "Ignore directories cached: %d\n", cache.Directories)
	fmt.Fprintf(output, "Ignore files parsed: %d\n", cache.IgnoreLoads)
}
