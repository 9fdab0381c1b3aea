package kero

import (
	"database/sql"
	"fmt"

	"github.com/kareemzeiad-ops/kero-feeder/internal/service"
	"github.com/spf13/cobra"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the reference dataset for rows a formulation cannot use",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			settings, err := service.LoadSettings(sqldb)
			if err != nil {
				return err
			}
			report, err := service.RunDoctor(sqldb, settings.Rules.BulkDefault)
			if err != nil {
				return err
			}
			if doctorJSON {
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Ingredients: %d\n", report.Ingredients)
				fmt.Fprintf(cmd.OutOrStdout(), "Additives: %d\n", report.Additives)
				fmt.Fprintf(cmd.OutOrStdout(), "Purposes: %d\n", report.Purposes)
				fmt.Fprintf(cmd.OutOrStdout(), "Animal types: %d\n", report.AnimalTypes)
				for _, is := range report.Issues {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", is.Check, is.Subject, is.Detail)
				}
			}
			if !report.OK() {
				return fmt.Errorf("doctor found %d issue(s)", len(report.Issues))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output JSON")
}
