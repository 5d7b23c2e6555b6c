package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"subsync/internal/dnssync"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview the decisions a sync would make",
	Long: `Compute the full decision set without touching the zone: which managed
records would be deleted, created, or replaced, which names are blocked by
unmanaged records, and the redirect list that would be submitted.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().Bool("print-plan", false, "Write the full plan to stdout")
	planCmd.Flags().String("output", "", "Optional file to write the plan to")
	planCmd.Flags().String("format", "json", "Plan output format (json|yaml)")
	planCmd.Flags().Bool("pretty", true, "Pretty-print the plan output")
}

func runPlan(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFromFlag(cmd); err != nil {
		return err
	}
	log := newLogger()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	pipe, err := newPipeline(ctx, log)
	if err != nil {
		return err
	}
	plan, _, rejections, err := pipe.build(ctx)
	if err != nil {
		return err
	}
	warnRejections(log, rejections)

	fmt.Fprintln(cmd.OutOrStdout(), summarizePlan(plan))

	format := outputFormat(cmd, "format")
	pretty := mustGetBoolFlag(cmd, "pretty")

	if mustGetBoolFlag(cmd, "print-plan") {
		payload, err := dnssync.EncodePlan(plan, format, pretty)
		if err != nil {
			return err
		}
		if err := streamDoc(cmd, payload); err != nil {
			return err
		}
	}

	if output := mustGetStringFlag(cmd, "output"); output != "" {
		if err := dnssync.SavePlan(plan, output, format, pretty); err != nil {
			return fmt.Errorf("write plan: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Plan saved to %s\n", output)
	}

	return nil
}
