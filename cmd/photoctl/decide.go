package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/decide"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/pipeline"
)

var (
	decideAudit         string
	decideOverride      string
	decideJustification string
	decideApprover      string
)

func init() {
	cmd := newDecideCmd()
	cmd.Flags().StringVar(&decideAudit, "audit", "", "Path to the SQLite audit trail")
	cmd.Flags().StringVar(&decideOverride, "override", "", "Override the recommendation (repair or skip)")
	cmd.Flags().StringVar(&decideJustification, "justification", "", "Why the recommendation is being overruled")
	cmd.Flags().StringVar(&decideApprover, "approver", "", "Who approved the override")
	rootCmd.AddCommand(cmd)
}

func newDecideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decide <dir>",
		Short: "Recommend whether a repair pass is worth running",
		Long: `The decide command validates the batch and weighs the empirical repair
success rates of the damage it found against the configured thresholds.
The recommendation names the rule that drove it and projects how many
additional valid artifacts a repair pass would produce.

An operator can overrule the recommendation with --override, which
requires --justification and --approver; the original recommendation
stays in the record alongside the override.

Example:
  photoctl decide ./recovered
  photoctl decide ./recovered --override repair --justification "client request" --approver case-lead`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecide(cmd, args)
		},
	}
}

func runDecide(cmd *cobra.Command, args []string) error {
	var override *decide.Override
	switch decideOverride {
	case "":
	case "repair":
		override = &decide.Override{
			Action:        decide.ActionRepair,
			Justification: decideJustification,
			Approver:      decideApprover,
		}
	case "skip":
		override = &decide.Override{
			Action:        decide.ActionSkip,
			Justification: decideJustification,
			Approver:      decideApprover,
		}
	default:
		return fmt.Errorf("unknown override %q (must be repair or skip)", decideOverride)
	}

	p, err := pipeline.New(cfg, pipeline.Options{AuditPath: decideAudit})
	if err != nil {
		return err
	}
	defer p.Close()

	report, err := p.Decide(cmd.Context(), args[0], override)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(report)
	}
	printInfo("%s", report.Validation.FormatText())
	printInfo("\n%s", report.Decision.FormatText())
	return nil
}
