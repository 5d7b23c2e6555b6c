// Package cmd wires the subsync command tree. Every verb reads its settings
// from the environment (seeded by .env and the viper config file) and builds
// its own provider client; nothing here caches state between invocations.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"subsync/internal/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "subsync",
		Short: "Declarative subdomain sync for a shared parent domain",
		Long: `subsync reconciles per-subdomain submission files against the live
Cloudflare zone. It validates submissions, deletes orphaned managed records,
creates or replaces drifted ones, and keeps the account redirect rule list in
step. Records it did not create are never touched.`,
		Version: "1.0.0",
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.subsync.yaml)")
	rootCmd.PersistentFlags().String("env", "", "path to a .env file to load before executing")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
	rootCmd.PersistentFlags().String("log-format", "human", "log output format (human|text|json)")
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Minute, "overall timeout for provider operations")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Environment variables may come from a .env file. The --env flag is
	// handled again per-run with godotenv.Overload so its values win, but it
	// has to be picked out of argv here for flag defaults to see it.
	if envPath := findEnvArg(os.Args); envPath != "" {
		_ = godotenv.Load(envPath)
	} else if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".subsync")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// newLogger builds the run logger from the root flags. Unknown formats fall
// back to the human handler rather than failing the command.
func newLogger() logging.Logger {
	var level slog.Leveler = slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	log, err := logging.New(viper.GetString("log-format"), level)
	if err != nil {
		log, _ = logging.New("human", level)
	}
	return log
}
