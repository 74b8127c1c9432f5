// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/odis2vcp/internal/manifest"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List runs recorded in the manifest database",
	Long: `History lists the conversion runs recorded with extract --manifest,
newest first. Use the show subcommand for the artifacts of one run and export
to dump the whole history as YAML or JSON.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openManifest()
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-10s  %-9s  %-9s  %s\n",
		"ID", "Started", "Mode", "Status", "Converted", "Input")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-10s  %-9s  %4d/%-4d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Mode, r.Status,
			r.Converted, r.Total, r.InputPath)
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run and the artifacts it wrote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openManifest()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Run:         %s\n", run.ID)
		fmt.Printf("Input:       %s\n", run.InputPath)
		fmt.Printf("Mode:        %s\n", run.Mode)
		fmt.Printf("Description: %s\n", run.Description)
		fmt.Printf("Status:      %s (%d of %d converted)\n", run.Status, run.Converted, run.Total)
		if run.Error != "" {
			fmt.Printf("Error:       %s\n", run.Error)
		}
		fmt.Println()
		for _, a := range run.Artifacts {
			fmt.Printf("%4d  %-4s  %-12s  %6d bytes  %s\n", a.RecordIndex, a.DiagnosticAddress, a.ZDCName, a.Size, a.Path)
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run history to YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		store, err := openManifest()
		if err != nil {
			return err
		}
		defer store.Close()

		var path string
		switch format {
		case "yaml", "":
			path, err = store.ExportYAML(cmd.Context())
		case "json":
			path, err = store.ExportJSON(cmd.Context())
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
		if err != nil {
			return err
		}
		fmt.Println("Exported to", path)
		return nil
	},
}

func openManifest() (*manifest.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return manifest.Open(cfg.Manifest)
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
