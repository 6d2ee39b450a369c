package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/venturelens/venturelens/pkg/domain"
)

var evaluateOutput string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <save.json>",
	Short: "Evaluate one save snapshot and print the report",
	Long: `Evaluate normalizes a raw save document, derives metrics, records them
in the time-series store, and runs every threshold rule.

Re-evaluating the same save is safe: the store recognizes the snapshot
fingerprint, appends nothing, and the report is flagged as duplicate.`,
	Example: `  # Evaluate a save file
  venturelens evaluate ~/saves/sg_momentum.json

  # Read the save from stdin
  cat save.json | venturelens evaluate -

  # Persist history across runs
  venturelens evaluate --db ~/.venturelens.db save.json

  # Machine-readable output
  venturelens evaluate -o json save.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateOutput, "output", "o", "human", "Output format: human, json")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	raw, err := readDocument(args[0])
	if err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	rpt, err := a.pipeline.Run(context.Background(), raw)
	if err != nil {
		return err
	}
	return printReport(rpt)
}

func readDocument(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read save: %w", err)
	}
	return data, nil
}

func printReport(rpt *domain.Report) error {
	if evaluateOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rpt)
	}

	fmt.Printf("Snapshot %s (game day %d)\n", rpt.SnapshotID, rpt.GameDay)
	if rpt.Duplicate {
		fmt.Println("Already ingested; history unchanged.")
	}
	fmt.Println()

	if len(rpt.Alerts) == 0 {
		fmt.Println("No thresholds breached.")
		return nil
	}

	fmt.Printf("Alerts (%d):\n", len(rpt.Alerts))
	for _, a := range rpt.Alerts {
		fmt.Printf("  [%s] %s\n", a.Severity, a.Message)
	}
	fmt.Println()

	fmt.Printf("Recommended actions (%d):\n", len(rpt.Recommendations))
	for _, r := range rpt.Recommendations {
		fmt.Printf("  %d. [%s] %s -> %s\n", r.Priority, r.Severity, r.Command, r.Target)
		if r.ExpectedResult != "" {
			fmt.Printf("     expected: %s\n", r.ExpectedResult)
		}
		if r.CostEstimate != nil {
			fmt.Printf("     estimated cost: %.2f\n", *r.CostEstimate)
		}
	}
	return nil
}
