package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bazokhan/arabic-itsm-dataset/internal/config"
	"github.com/bazokhan/arabic-itsm-dataset/internal/observability"
	"github.com/bazokhan/arabic-itsm-dataset/internal/pipeline"
	"github.com/bazokhan/arabic-itsm-dataset/internal/taxonomy"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "itsmds",
		Short: "Arabic ITSM dataset builder",
		Long: `itsmds validates and merges machine-generated Arabic ITSM ticket
part files (line-delimited JSON) into one clean dataset.

Records are checked against a structural schema and a category taxonomy,
deduplicated by ticket id, auto-repaired when only the priority rule is
off, and written out as clean JSONL + CSV plus a rejected-rows log.`,
		Version: version,
	}

	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(taxonomyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildCmd() *cobra.Command {
	var (
		configFile  string
		taxonomySrc string
		inputGlob   string
		outJSONL    string
		outCSV      string
		outRejected string
		applyFixes  bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Validate and merge part files into the clean dataset",
		Long: `Build runs the full pipeline: optional fix-merge pre-pass, taxonomy
load, per-record validation, dedup and single-error auto-repair, then the
three output artifacts.

Example:
  itsmds build
  itsmds build --input-glob "parts/part_*.jsonl" --apply-fixes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("taxonomy") {
				cfg.Pipeline.TaxonomyPath = taxonomySrc
			}
			if flags.Changed("input-glob") {
				cfg.Pipeline.InputGlob = inputGlob
			}
			if flags.Changed("out-jsonl") {
				cfg.Pipeline.OutJSONL = outJSONL
			}
			if flags.Changed("out-csv") {
				cfg.Pipeline.OutCSV = outCSV
			}
			if flags.Changed("out-rejected") {
				cfg.Pipeline.OutRejected = outRejected
			}
			if flags.Changed("apply-fixes") {
				cfg.Pipeline.ApplyFixes = applyFixes
			}

			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			summary, err := pipeline.NewDriver(cfg.Pipeline, logger).Run()
			if err != nil {
				return err
			}

			printSummary(summary, cfg.Pipeline.OutRejected)
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Optional YAML config file")
	cmd.Flags().StringVar(&taxonomySrc, "taxonomy", "taxonomy_itsm_v1.json", "Path to taxonomy JSON file")
	cmd.Flags().StringVar(&inputGlob, "input-glob", "parts/part_*.jsonl", "Glob pattern for input JSONL part files")
	cmd.Flags().StringVar(&outJSONL, "out-jsonl", "dataset_clean.jsonl", "Output path for clean JSONL")
	cmd.Flags().StringVar(&outCSV, "out-csv", "dataset_clean.csv", "Output path for clean CSV")
	cmd.Flags().StringVar(&outRejected, "out-rejected", "dataset_rejected.jsonl", "Output path for rejected rows JSONL")
	cmd.Flags().BoolVar(&applyFixes, "apply-fixes", false, "Before building, merge *_fixed.jsonl rows into their original part files, then delete the fixed and rejected files")

	return cmd
}

func taxonomyCmd() *cobra.Command {
	var taxonomySrc string

	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Load a taxonomy file and print its allowed category paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := taxonomy.Load(taxonomySrc)
			if err != nil {
				return err
			}
			for _, p := range idx.AllowedPaths() {
				fmt.Println(p)
			}
			fmt.Printf("\n%d allowed paths\n", idx.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&taxonomySrc, "taxonomy", "taxonomy_itsm_v1.json", "Path to taxonomy JSON file")

	return cmd
}

func printSummary(summary *pipeline.Summary, rejectedPath string) {
	fmt.Printf("Clean rows: %d\n", summary.Accepted)
	fmt.Printf("Rejected rows: %d\n", summary.Rejected)
	if summary.Rejected > 0 {
		fmt.Printf("Rejected rows written to: %s\n", rejectedPath)
		fmt.Println("\n--- Rejected rows (id, cause) ---")
		for _, r := range summary.Rejections {
			fmt.Printf("%s\t%s\n", r.RowID(), strings.Join(r.Reason, ", "))
		}
	}

	fmt.Println("\n--- Allowed category paths (copy into prompt) ---")
	for _, p := range summary.AllowedPaths {
		fmt.Println(p)
	}
}
