package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"subsync/internal/archive"
	"subsync/internal/config"
	"subsync/internal/dnssync"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify credentials, zone, redirect list, and archive storage",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
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

	out := cmd.OutOrStdout()
	failures := 0

	fmt.Fprintln(out, "1. Verifying API token...")
	if token, err := client.VerifyToken(ctx); err != nil {
		failures++
		fmt.Fprintf(out, "   ✗ %v\n", err)
	} else {
		fmt.Fprintf(out, "   ✓ Token %s status: %s\n", token.ID, token.Status)
	}

	fmt.Fprintln(out, "2. Checking zone...")
	if zoneName, err := client.ResolveRootDomain(ctx); err != nil {
		failures++
		fmt.Fprintf(out, "   ✗ %v\n", err)
	} else {
		fmt.Fprintf(out, "   ✓ Zone %s resolves to %s\n", cfg.ZoneID, zoneName)
		switch {
		case cfg.RootDomain == "":
			fmt.Fprintf(out, "   ✓ ROOT_DOMAIN unset; runs will use %s\n", zoneName)
		case zoneContains(zoneName, cfg.RootDomain):
			fmt.Fprintf(out, "   ✓ ROOT_DOMAIN %s belongs to the zone\n", cfg.RootDomain)
		default:
			failures++
			fmt.Fprintf(out, "   ✗ ROOT_DOMAIN %s does not belong to zone %s\n", cfg.RootDomain, zoneName)
		}
	}

	fmt.Fprintln(out, "3. Checking redirect list...")
	if list, err := client.RedirectList(ctx); err != nil {
		failures++
		fmt.Fprintf(out, "   ✗ %v\n", err)
	} else {
		fmt.Fprintf(out, "   ✓ List %s is a %s list with %d item(s)\n", list.Name, list.Kind, list.NumItems)
	}

	if cfg.Archive.Enabled() {
		fmt.Fprintln(out, "4. Checking archive storage...")
		store, err := archive.New(cfg.Archive, log)
		if err != nil {
			failures++
			fmt.Fprintf(out, "   ✗ %v\n", err)
		} else {
			if err := store.TestConnection(ctx); err != nil {
				failures++
				fmt.Fprintf(out, "   ✗ %v\n", err)
			} else {
				fmt.Fprintf(out, "   ✓ Bucket %s accepts writes\n", cfg.Archive.Bucket)
			}
			if store.GlacierEnabled() {
				if err := store.TestGlacierConnection(ctx); err != nil {
					failures++
					fmt.Fprintf(out, "   ✗ %v\n", err)
				} else {
					fmt.Fprintf(out, "   ✓ Glacier vault %s accepts archives\n", cfg.Archive.GlacierVault)
				}
			}
		}
	} else {
		fmt.Fprintln(out, "4. Archive storage not configured; skipping")
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	fmt.Fprintln(out, "All checks passed")
	return nil
}

// zoneContains reports whether the configured root domain sits at or under
// the zone apex.
func zoneContains(zoneName, rootDomain string) bool {
	if rootDomain == zoneName {
		return true
	}
	for _, candidate := range dnssync.ZoneCandidates(rootDomain) {
		if candidate == zoneName {
			return true
		}
	}
	return false
}
