package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"subsync/internal/archive"
	"subsync/internal/config"
	"subsync/internal/dnssync"
	"subsync/internal/logging"
	"subsync/internal/submission"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile submissions against the live zone",
	Long: `Load and validate the submission files, fetch the live zone, delete
orphaned managed records, create or replace drifted ones, and replace the
redirect rule list. Use --dry-run to preview the decisions without mutating.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().Bool("dry-run", false, "Compute and print the plan without applying it")
	syncCmd.Flags().Bool("yes", false, "Apply changes without prompting")
	syncCmd.Flags().Bool("print-plan", false, "Write the full plan to stdout before applying")
	syncCmd.Flags().String("format", "json", "Plan/report serialization format (json|yaml)")
	syncCmd.Flags().Bool("pretty", true, "Pretty-print JSON output")
	syncCmd.Flags().Bool("archive", false, "Upload a snapshot of the live zone before applying")
	syncCmd.Flags().String("archive-format", "json", "Snapshot format for --archive (json|yaml)")
	syncCmd.Flags().String("report", "", "Write the run report to this file")
}

// pipeline bundles the pieces every planning verb needs: validated
// configuration, a provider client, and the resolved root domain.
type pipeline struct {
	cfg    *config.Config
	client *dnssync.Client
	log    logging.Logger
	root   string
}

func newPipeline(ctx context.Context, log logging.Logger) (*pipeline, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	client, err := dnssync.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	root := cfg.RootDomain
	if root == "" {
		root, err = client.ResolveRootDomain(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve root domain: %w", err)
		}
		log.Infof("resolved root domain %s from zone %s", root, cfg.ZoneID)
	}
	return &pipeline{cfg: cfg, client: client, log: log, root: root}, nil
}

// build runs the read-only half of a sync: load and validate submissions,
// fetch the live zone, and compute the plan. A live fetch failure is fatal;
// rejected submissions are not.
func (p *pipeline) build(ctx context.Context) (*dnssync.Plan, []dnssync.LiveRecord, []submission.Rejection, error) {
	validator := submission.NewValidator(p.cfg.Blocklist)
	records, rejections, err := submission.LoadDir(p.cfg.SubmissionsDir, validator)
	if err != nil {
		return nil, nil, nil, err
	}
	desired, redirects := dnssync.Partition(records)

	live, err := p.client.FetchLiveRecords(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	return dnssync.BuildPlan(p.root, desired, redirects, live), live, rejections, nil
}

func runSync(cmd *cobra.Command, _ []string) error {
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
	plan, live, rejections, err := pipe.build(ctx)
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

	if mustGetBoolFlag(cmd, "dry-run") {
		fmt.Fprintln(cmd.ErrOrStderr(), "Dry run enabled; no changes applied")
		return nil
	}

	if !mustGetBoolFlag(cmd, "yes") {
		if err := confirmApply(plan); err != nil {
			return err
		}
	}

	if mustGetBoolFlag(cmd, "archive") {
		store, err := archive.New(pipe.cfg.Archive, log)
		if err != nil {
			return err
		}
		snapshot := dnssync.NewSnapshot(pipe.cfg.ZoneID, pipe.root, live)
		key, err := store.Archive(ctx, snapshot, mustGetStringFlag(cmd, "archive-format"))
		if err != nil {
			return fmt.Errorf("pre-apply archive: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Snapshot archived to %s\n", key)
	}

	reconciler := dnssync.NewReconciler(pipe.client, log, pipe.cfg.Concurrency)
	results := reconciler.Run(ctx, plan)

	fmt.Fprintln(cmd.OutOrStdout(), summarizeResults(results))

	if report := mustGetStringFlag(cmd, "report"); report != "" {
		if err := dnssync.SaveResults(results, report, format, pretty); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to %s\n", report)
	}

	if !results.Ok() {
		return fmt.Errorf("%d unit(s) failed; the remaining changes were applied", len(results.Failures))
	}
	return nil
}

// confirmApply asks before mutating. In a non-interactive session the prompt
// cannot be shown, so the run is refused the way it would be without --yes.
func confirmApply(plan *dnssync.Plan) error {
	message := fmt.Sprintf("Apply %d DNS change(s) and replace the redirect list (%d rule(s))?",
		plan.MutationCount(), len(plan.Redirects))
	confirmed := false
	prompt := &survey.Confirm{Message: message}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return fmt.Errorf("confirmation unavailable (%v); rerun with --yes or --dry-run", err)
	}
	if !confirmed {
		return errors.New("aborted")
	}
	return nil
}
