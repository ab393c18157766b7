package main

import (
	"github.com/spf13/cobra"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/pipeline"
)

var (
	validateOutput string
	validateSort   bool
	validateAudit  string
)

func init() {
	cmd := newValidateCmd()
	cmd.Flags().StringVarP(&validateOutput, "output", "o", "", "Directory for classification output")
	cmd.Flags().BoolVar(&validateSort, "sort", false, "Copy artifacts into valid/, corrupted/ and unrecoverable/ under the output directory")
	cmd.Flags().StringVar(&validateAudit, "audit", "", "Path to the SQLite audit trail")
	rootCmd.AddCommand(cmd)
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>",
		Short: "Validate and classify recovered artifacts",
		Long: `The validate command runs the check battery over every artifact under
the given directory and classifies each one as valid, corrupted, or
unrecoverable. Corrupted artifacts carry the corruption type, its
repairability tier, and the recommended reconstruction technique.

Example:
  photoctl validate ./recovered
  photoctl validate ./recovered --sort -o ./classified
  photoctl validate ./recovered --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args)
		},
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, err := pipeline.New(cfg, pipeline.Options{
		OutputDir:    validateOutput,
		SortIntoDirs: validateSort,
		AuditPath:    validateAudit,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	report, err := p.Validate(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(report)
	}
	printInfo("%s", report.FormatText())
	return nil
}
