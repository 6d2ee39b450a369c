package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/venturelens/venturelens/pkg/domain"
	"github.com/venturelens/venturelens/pkg/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate threshold rule sets",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the effective rule set",
	Long: `List shows every rule in evaluation order: the built-in threshold
table, or the file given with --rules.`,
	RunE: runRulesList,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <rules.yaml>",
	Short: "Validate a rule set file",
	Long: `Validate parses a rule file and reports every problem at once:
unknown metrics, scope mismatches, malformed comparators, bad
severities, and incomplete commands.`,
	Args: cobra.ExactArgs(1),
	RunE: runRulesValidate,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rs, err := loadRules(cfg)
	if err != nil {
		return err
	}

	source := "built-in"
	if cfg.Rules.Path != "" {
		source = cfg.Rules.Path
	}
	fmt.Printf("Rule set: %s (%d rules)\n\n", source, len(rs.Rules))

	for _, r := range rs.Rules {
		subject := r.Metric
		if r.Source == rules.SourceTrend {
			subject = fmt.Sprintf("%s trend over %dd", r.Metric, r.WindowDays)
		}
		fmt.Printf("  %-24s [%s] %s %s %g -> %s\n",
			r.ID, r.Severity, subject, r.Comparator, r.Threshold, r.Command.Action)
	}
	return nil
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	_, err := rules.LoadFile(args[0])
	if err == nil {
		fmt.Printf("%s: valid\n", args[0])
		return nil
	}

	var cfgErr *domain.RuleConfigurationError
	if errors.As(err, &cfgErr) {
		fmt.Printf("%s: %d problem(s)\n", args[0], len(cfgErr.Issues))
		for _, issue := range cfgErr.Issues {
			id := issue.RuleID
			if id == "" {
				id = "(rule set)"
			}
			fmt.Printf("  %s %s: %s\n", id, issue.Field, issue.Problem)
		}
	}
	return err
}
