package kero

import (
	"database/sql"
	"fmt"

	"github.com/kareemzeiad-ops/kero-feeder/internal/service"
	"github.com/spf13/cobra"
)

var additiveCmd = &cobra.Command{
	Use:   "additive",
	Short: "Manage fixed-dose additives",
}

var additiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List additives and their doses per batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			items, err := service.ListAdditives(sqldb)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "NAME\tDOSE")
			for _, it := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.2f\n", it.Name, it.Dose)
			}
			return nil
		})
	},
}

var additiveSetCmd = &cobra.Command{
	Use:   "set <name> <dose>",
	Short: "Set the fixed dose of a catalog ingredient",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dose, err := parseFloatArg("dose", args[1])
		if err != nil {
			return err
		}
		return withDB(func(sqldb *sql.DB) error {
			if err := service.SetAdditive(sqldb, args[0], dose); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s dose to %.2f\n", args[0], dose)
			return nil
		})
	},
}

var additiveRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Turn an additive back into a regular ingredient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if err := service.RemoveAdditive(sqldb, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed additive %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(additiveCmd)
	additiveCmd.AddCommand(additiveListCmd, additiveSetCmd, additiveRemoveCmd)
}
