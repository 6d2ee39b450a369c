package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/venturelens/venturelens/pkg/domain"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill <dir|files...>",
	Short: "Ingest a directory or list of save files",
	Long: `Backfill loads many saves at once, ordered by game day regardless of
file order, so trend windows and cash runway see history the way it
happened. Saves already in the store are skipped.`,
	Example: `  # Ingest a whole save directory
  venturelens backfill --db ~/.venturelens.db ~/saves/

  # Ingest specific files
  venturelens backfill --db ~/.venturelens.db day1.json day2.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBackfill,
}

func runBackfill(cmd *cobra.Command, args []string) error {
	paths, err := collectPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .json save files found")
	}

	docs := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read save %s: %w", p, err)
		}
		docs = append(docs, data)
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	res, reports, err := a.pipeline.Backfill(context.Background(), docs)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d snapshots, skipped %d duplicates.\n\n", res.Ingested, res.Skipped)
	if len(reports) > 0 {
		latest := reports[len(reports)-1]
		fmt.Printf("Latest state (game day %d): %d alerts, %d recommended actions.\n",
			latest.GameDay, len(latest.Alerts), len(latest.Recommendations))
		printTopActions(latest)
	}
	return nil
}

func printTopActions(rpt *domain.Report) {
	for i, r := range rpt.Recommendations {
		if i == 3 {
			break
		}
		fmt.Printf("  %d. [%s] %s -> %s\n", r.Priority, r.Severity, r.Command, r.Target)
	}
}

// collectPaths expands directory arguments into their .json files and
// keeps explicit file arguments as-is, sorted for stable processing.
func collectPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			out = append(out, filepath.Join(arg, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
