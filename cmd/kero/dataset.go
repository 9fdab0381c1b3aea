package kero

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/kareemzeiad-ops/kero-feeder/internal/service"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
	importFormat string
	importIn     string
	importMode   string
	importDryRun bool
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Export or import the reference dataset (json or yaml)",
}

var datasetExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the reference dataset to a file or stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := service.ParseFormat(exportFormat, exportOut)
		if err != nil {
			return err
		}
		return withDB(func(sqldb *sql.DB) error {
			f, err := service.ExportDataset(sqldb)
			if err != nil {
				return err
			}
			b, err := service.EncodeDatasetFile(f, format)
			if err != nil {
				return err
			}
			if strings.TrimSpace(exportOut) == "" {
				_, err := cmd.OutOrStdout().Write(b)
				return err
			}
			if err := os.WriteFile(exportOut, b, 0o644); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported dataset to %s\n", exportOut)
			return nil
		})
	},
}

var datasetImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a dataset file into the reference store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(importIn) == "" {
			return fmt.Errorf("--in is required")
		}
		format, err := service.ParseFormat(importFormat, importIn)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(importIn)
		if err != nil {
			return fmt.Errorf("read import file: %w", err)
		}
		payload, err := service.DecodeDatasetFile(raw, format)
		if err != nil {
			return err
		}
		return withDB(func(sqldb *sql.DB) error {
			report, err := service.ImportDataset(sqldb, payload, service.ImportOptions{
				Mode:   service.ImportMode(strings.ToLower(strings.TrimSpace(importMode))),
				DryRun: importDryRun,
			})
			if err != nil {
				return err
			}
			prefix := "Import report"
			if importDryRun {
				prefix = "Dry run"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: inserted=%d updated=%d skipped=%d conflicts=%d\n", prefix, report.Inserted, report.Updated, report.Skipped, report.Conflicts)
			for _, w := range report.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetExportCmd, datasetImportCmd)

	datasetExportCmd.Flags().StringVar(&exportFormat, "format", "", "json or yaml (default: from --out extension, else json)")
	datasetExportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default: stdout)")
	datasetImportCmd.Flags().StringVar(&importFormat, "format", "", "json or yaml (default: from --in extension)")
	datasetImportCmd.Flags().StringVar(&importIn, "in", "", "Input file")
	datasetImportCmd.Flags().StringVar(&importMode, "mode", "fail", "Conflict mode: fail, skip, merge, replace")
	datasetImportCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Report without writing")
}
