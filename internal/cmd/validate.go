package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subsync/internal/config"
	"subsync/internal/dnssync"
	"subsync/internal/submission"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the submission files without touching the zone",
	Long: `Run the validator over every submission file and report the outcome per
file. Exits nonzero when any file is rejected, so CI can gate pull requests on
it. No credentials are needed; the live zone is never contacted.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().String("dir", "", "Submissions directory (default: SUBDOMAINS_DIR or \"domains\")")
	validateCmd.Flags().Bool("json", false, "Output outcomes as JSON")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFromFlag(cmd); err != nil {
		return err
	}

	dir := mustGetStringFlag(cmd, "dir")
	if dir == "" {
		dir = getEnvWithDefault("SUBDOMAINS_DIR", config.DefaultSubmissionsDir)
	}
	blocklist := config.ParseBlocklist(os.Getenv("BLOCKED_KEYWORDS"))

	validator := submission.NewValidator(blocklist)
	records, rejections, err := submission.LoadDir(dir, validator)
	if err != nil {
		return err
	}

	if mustGetBoolFlag(cmd, "json") {
		payload, err := json.MarshalIndent(struct {
			Accepted   []dnssync.DesiredRecord `json:"accepted"`
			Rejections []submission.Rejection  `json:"rejections"`
		}{records, rejections}, "", "  ")
		if err != nil {
			return err
		}
		if err := streamDoc(cmd, payload); err != nil {
			return err
		}
	} else {
		for _, rec := range records {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s\n", rec.Subdomain, describeRecord(rec))
		}
		for _, rej := range rejections {
			fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %s\n", rej.File, rej.Detail)
		}
	}

	total := len(records) + len(rejections)
	if len(rejections) > 0 {
		return fmt.Errorf("%d of %d submission(s) rejected", len(rejections), total)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "All %d submission(s) valid\n", total)
	return nil
}
