// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the odis2vcp CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/odis2vcp/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from the config and verbosity flags before any command runs.
var logger = slog.Default()

// rootCmd is the base command for the odis2vcp CLI.
var rootCmd = &cobra.Command{
	Use:   "odis2vcp",
	Short: "Extract ODIS datasets to VCP containers or raw binaries",
	Long: `odis2vcp reads the PARAMETER_DATA datasets embedded in an ODIS XML export
and writes each one either as a VCP SW-CNT XML container or as a raw binary
file. Runs can be recorded in a local manifest database and listed with the
history command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetCount("verbose")
		quiet, _ := cmd.Flags().GetCount("quiet")
		logger = newLogger(cfg.Log.Level, cfg.Log.Format, quiet-verbose, os.Stderr)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./odis2vcp.yaml or ~/.config/odis2vcp/odis2vcp.yaml)")
	pf.CountP("verbose", "v", "be more verbose (repeatable)")
	pf.CountP("quiet", "q", "be less verbose (repeatable)")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("manifest-dir", "", "directory of the manifest database (default .odis2vcp)")

	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = viper.BindPFlag("manifest.dir", pf.Lookup("manifest-dir"))

	viper.SetDefault("output.mode", string(types.ModeStructured))
	viper.SetDefault("output.dir", ".")
	viper.SetDefault("output.workers", 1)
	viper.SetDefault("output.overwrite", true)
	viper.SetDefault("manifest.enabled", false)
	viper.SetDefault("manifest.dir", ".odis2vcp")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("odis2vcp")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "odis2vcp"))
		}
	}

	viper.SetEnvPrefix("ODIS2VCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged flags, environment and config file.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	os.Exit(run())
}

// run executes the root command and returns the process exit code.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
