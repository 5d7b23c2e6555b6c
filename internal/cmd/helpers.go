package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"subsync/internal/dnssync"
	"subsync/internal/logging"
	"subsync/internal/submission"
)

func findEnvArg(argv []string) string {
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if strings.HasPrefix(arg, "--env=") {
			return strings.TrimPrefix(arg, "--env=")
		}
		if arg == "--env" && i+1 < len(argv) {
			return argv[i+1]
		}
	}
	return ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// mustGetStringFlag retrieves a string flag value.
// Errors are ignored because cobra guarantees flags exist if they're defined.
func mustGetStringFlag(cmd *cobra.Command, name string) string {
	val, _ := cmd.Flags().GetString(name)
	return val
}

// mustGetBoolFlag retrieves a bool flag value.
// Errors are ignored because cobra guarantees flags exist if they're defined.
func mustGetBoolFlag(cmd *cobra.Command, name string) bool {
	val, _ := cmd.Flags().GetBool(name)
	return val
}

// mustGetDurationFlag retrieves a duration flag value.
// Errors are ignored because cobra guarantees flags exist if they're defined.
func mustGetDurationFlag(cmd *cobra.Command, name string) time.Duration {
	val, _ := cmd.Flags().GetDuration(name)
	return val
}

func loadEnvFromFlag(cmd *cobra.Command) error {
	path := mustGetStringFlag(cmd, "env")
	if path == "" {
		return nil
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// commandContext bounds the whole command run with the --timeout flag.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout := mustGetDurationFlag(cmd, "timeout")
	if timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

func outputFormat(cmd *cobra.Command, flag string) string {
	format := strings.ToLower(mustGetStringFlag(cmd, flag))
	if format == "" {
		format = "json"
	}
	return format
}

// streamDoc writes an encoded document to stdout with a trailing newline.
func streamDoc(cmd *cobra.Command, payload []byte) error {
	if _, err := cmd.OutOrStdout().Write(payload); err != nil {
		return err
	}
	if len(payload) == 0 || payload[len(payload)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func summarizePlan(plan *dnssync.Plan) string {
	if plan == nil {
		return "no plan"
	}
	return fmt.Sprintf("Plan for %s: %d create, %d update, %d delete, %d in sync, %d conflict(s); %d redirect rule(s)",
		plan.RootDomain, len(plan.Creates), len(plan.Updates), len(plan.Deletes),
		plan.InSync, len(plan.Conflicts), len(plan.Redirects))
}

func summarizeResults(results *dnssync.Results) string {
	if results == nil {
		return "no results"
	}
	return fmt.Sprintf("Run %s: %d created, %d updated, %d deleted, %d in sync, %d conflict(s) skipped, %d redirect rule(s), %d failure(s)",
		results.RunID, results.Created, results.Updated, results.Deleted,
		results.InSync, results.Conflicts, results.RedirectCount, len(results.Failures))
}

func describeRecord(rec dnssync.DesiredRecord) string {
	if rec.IsRedirect() {
		return fmt.Sprintf("REDIRECT -> %s (owner %s)", rec.TargetURL, rec.Owner)
	}
	return fmt.Sprintf("%s %s (owner %s)", rec.Kind, rec.Content, rec.Owner)
}

func warnRejections(log logging.Logger, rejections []submission.Rejection) {
	for _, rej := range rejections {
		log.Warnf("rejected %s: %s", rej.File, rej.Detail)
	}
}
