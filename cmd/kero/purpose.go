package kero

import (
	"database/sql"
	"fmt"

	"github.com/kareemzeiad-ops/kero-feeder/internal/service"
	"github.com/spf13/cobra"
)

var purposeCmd = &cobra.Command{
	Use:   "purpose",
	Short: "Manage production purposes and protein targets",
}

var purposeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List purposes and animal types",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			items, err := service.ListPurposes(sqldb)
			if err != nil {
				return err
			}
			animals, err := service.ListAnimalTypes(sqldb)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PURPOSE\tPROTEIN_TARGET")
			for _, it := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.1f\n", it.Name, it.ProteinTarget)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ANIMAL")
			for _, a := range animals {
				fmt.Fprintln(cmd.OutOrStdout(), a)
			}
			return nil
		})
	},
}

var purposeSetCmd = &cobra.Command{
	Use:   "set <name> <protein-target>",
	Short: "Add a purpose or change its protein target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseFloatArg("protein target", args[1])
		if err != nil {
			return err
		}
		return withDB(func(sqldb *sql.DB) error {
			if err := service.SetPurpose(sqldb, args[0], target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s protein target to %.1f%%\n", args[0], target)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(purposeCmd)
	purposeCmd.AddCommand(purposeListCmd, purposeSetCmd)
}
