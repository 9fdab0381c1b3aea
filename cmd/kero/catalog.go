package kero

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
	"github.com/kareemzeiad-ops/kero-feeder/internal/service"
	"github.com/spf13/cobra"
)

var (
	catalogJSON    bool
	ingredientIn   service.IngredientInput
	ingredientDose float64
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the ingredient catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog ingredients",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			items, err := service.ListIngredients(sqldb)
			if err != nil {
				return err
			}
			if catalogJSON {
				return printJSON(cmd.OutOrStdout(), items)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "NAME\tPROTEIN\tTDN\tFIBER\tFAT\tCAP%\tADDITIVE")
			for _, it := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%t\n", it.Name, it.Protein, it.TDN, it.Fiber, it.Fat, it.CapPct, it.Additive)
			}
			return nil
		})
	},
}

var catalogAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a catalog ingredient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := ingredientIn
		in.Name = args[0]
		return withDB(func(sqldb *sql.DB) error {
			created, err := service.UpsertIngredient(sqldb, in)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dose") {
				if err := service.SetAdditive(sqldb, in.Name, ingredientDose); err != nil {
					return err
				}
			}
			verb := "Updated"
			if created {
				verb = "Added"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ingredient %s\n", verb, strings.TrimSpace(in.Name))
			return nil
		})
	},
}

var catalogRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a catalog ingredient and its additive dose",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if err := service.DeleteIngredient(sqldb, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed ingredient %s\n", args[0])
			return nil
		})
	},
}

var catalogCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show ingredients grouped by category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			data, err := service.LoadDataset(sqldb)
			if err != nil {
				return err
			}
			groups := ration.NewCatalog(data).Categories()
			if catalogJSON {
				return printJSON(cmd.OutOrStdout(), groups)
			}
			keys := make([]string, 0, len(groups))
			for k := range groups {
				keys = append(keys, string(k))
			}
			sort.Strings(keys)
			fmt.Fprintln(cmd.OutOrStdout(), "CATEGORY\tINGREDIENTS")
			for _, k := range keys {
				names := make([]string, 0, len(groups[ration.Category(k)]))
				for _, ing := range groups[ration.Category(k)] {
					names = append(names, ing.Name)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k, strings.Join(names, ", "))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd, catalogAddCmd, catalogRemoveCmd, catalogCategoriesCmd)

	catalogListCmd.Flags().BoolVar(&catalogJSON, "json", false, "Output JSON")
	catalogCategoriesCmd.Flags().BoolVar(&catalogJSON, "json", false, "Output JSON")

	catalogAddCmd.Flags().Float64Var(&ingredientIn.Protein, "protein", 0, "Crude protein %")
	catalogAddCmd.Flags().Float64Var(&ingredientIn.TDN, "tdn", 0, "Total digestible nutrients %")
	catalogAddCmd.Flags().Float64Var(&ingredientIn.Fiber, "fiber", 0, "Crude fiber %")
	catalogAddCmd.Flags().Float64Var(&ingredientIn.Fat, "fat", 0, "Fat %")
	catalogAddCmd.Flags().Float64Var(&ingredientIn.CapPct, "cap", 0, "Maximum share of the batch, in %")
	catalogAddCmd.Flags().Float64Var(&ingredientDose, "dose", 0, "Fixed dose per batch; marks the ingredient as an additive")
}
