package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"subsync/internal/archive"
	"subsync/internal/config"
	"subsync/internal/dnssync"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the live zone as a snapshot",
	Long: `Fetch every record in the zone and write it out as a snapshot document.
With --upload the snapshot also goes to the configured archive storage.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("output", "", "File to write the snapshot to (default: stdout)")
	exportCmd.Flags().String("format", "json", "Snapshot format: json or yaml")
	exportCmd.Flags().Bool("pretty", true, "Pretty-print JSON/YAML output")
	exportCmd.Flags().Bool("upload", false, "Also upload the snapshot to archive storage")
}

func runExport(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFromFlag(cmd); err != nil {
		return err
	}
	log := newLogger()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	client, err := dnssync.NewClient(cfg)
	if err != nil {
		return err
	}
	root := cfg.RootDomain
	if root == "" {
		root, err = client.ResolveRootDomain(ctx)
		if err != nil {
			return fmt.Errorf("resolve root domain: %w", err)
		}
	}

	live, err := client.FetchLiveRecords(ctx)
	if err != nil {
		return err
	}
	snapshot := dnssync.NewSnapshot(cfg.ZoneID, root, live)

	format := outputFormat(cmd, "format")
	pretty := mustGetBoolFlag(cmd, "pretty")

	if mustGetBoolFlag(cmd, "upload") {
		store, err := archive.New(cfg.Archive, log)
		if err != nil {
			return err
		}
		key, err := store.Archive(ctx, snapshot, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Snapshot uploaded to %s\n", key)
	}

	if output := mustGetStringFlag(cmd, "output"); output != "" {
		if err := dnssync.SaveSnapshot(snapshot, output, format, pretty); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Snapshot saved to %s\n", output)
		return nil
	}

	payload, err := dnssync.EncodeSnapshot(snapshot, format, pretty)
	if err != nil {
		return err
	}
	return streamDoc(cmd, payload)
}
