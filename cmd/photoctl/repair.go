package main

import (
	"github.com/spf13/cobra"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/pipeline"
)

var (
	repairOutput string
	repairSort   bool
	repairAudit  string
	repairDryRun bool
	repairForce  bool
)

func init() {
	cmd := newRepairCmd()
	cmd.Flags().StringVarP(&repairOutput, "output", "o", "", "Directory for repaired output (required unless --dry-run)")
	cmd.Flags().BoolVar(&repairSort, "sort", false, "Copy artifacts into classification directories as well")
	cmd.Flags().StringVar(&repairAudit, "audit", "", "Path to the SQLite audit trail")
	cmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "Plan repairs without writing any output")
	cmd.Flags().BoolVar(&repairForce, "force", false, "Run the repair stage even when the decision says skip")
	rootCmd.AddCommand(cmd)
}

func newRepairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair <dir>",
		Short: "Run the full validate-decide-repair workflow",
		Long: `The repair command runs the complete workflow: validate the batch,
decide whether repair is justified, and reconstruct every repairable
artifact the decision covers. Repaired files are re-validated before
delivery and written atomically under the output directory; an artifact
whose repair cannot be verified is reported as failed, never delivered.

Example:
  photoctl repair ./recovered -o ./restored
  photoctl repair ./recovered --dry-run
  photoctl repair ./recovered -o ./restored --force --audit case.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(cmd, args)
		},
	}
}

func runRepair(cmd *cobra.Command, args []string) error {
	p, err := pipeline.New(cfg, pipeline.Options{
		OutputDir:    repairOutput,
		SortIntoDirs: repairSort,
		AuditPath:    repairAudit,
		DryRun:       repairDryRun,
		ForceRepair:  repairForce,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	report, err := p.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(report)
	}
	printInfo("%s", report.Validation.FormatText())
	printInfo("\n%s", report.Decision.FormatText())
	if report.Repair != nil {
		printInfo("\n%s", report.Repair.FormatText())
	} else {
		printInfo("\nRepair stage skipped per decision.\n")
	}
	return nil
}
