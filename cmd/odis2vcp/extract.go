// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/odis2vcp/internal/manifest"
	"github.com/pdiddy/odis2vcp/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract the datasets of ODIS files",
	Long: `Extract reads each ODIS file and writes one artifact per PARAMETER_DATA
record: a VCP container "<module> VCP <start> <zdc> - <description>.xml" in
structured mode, or the decoded payload "<module> <start> <zdc> - <description>.bin"
in raw mode. The first bad record stops the file; files already written stay.`,
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringSliceP("input", "i", nil, "input ODIS file (repeatable)")
	f.StringP("fmt", "f", "", "output format: vcp (default), structured, or raw")
	f.StringP("desc", "d", "", `output file description, e.g. "Seat Leon 2016" (default: input file name)`)
	f.StringP("out-dir", "o", "", `directory for extracted files (default ".")`)
	f.Int("workers", 0, "records converted concurrently (default 1)")
	f.Bool("overwrite", true, "replace output files left by earlier runs")
	f.Bool("manifest", false, "record the run in the manifest database")

	_ = viper.BindPFlag("output.mode", f.Lookup("fmt"))
	_ = viper.BindPFlag("output.description", f.Lookup("desc"))
	_ = viper.BindPFlag("output.dir", f.Lookup("out-dir"))
	_ = viper.BindPFlag("output.workers", f.Lookup("workers"))
	_ = viper.BindPFlag("output.overwrite", f.Lookup("overwrite"))
	_ = viper.BindPFlag("manifest.enabled", f.Lookup("manifest"))

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	inputs, _ := cmd.Flags().GetStringSlice("input")
	inputs = append(inputs, args...)
	if len(inputs) == 0 {
		return fmt.Errorf("provide one or more ODIS files (--input or arguments)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := pipeline.OptionsFromConfig(cfg.Output)
	if err != nil {
		return err
	}

	if cfg.Manifest.Enabled {
		store, err := manifest.Open(cfg.Manifest)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Journal = store
	}

	p, err := pipeline.New(opts, pipeline.SlogSink{Logger: logger})
	if err != nil {
		return err
	}

	var failed int
	for _, in := range inputs {
		summary, err := p.Run(cmd.Context(), in)
		if err != nil || !summary.Complete() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(inputs))
	}
	return nil
}
