package kero

import (
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/kareemzeiad-ops/kero-feeder/internal/advisory"
	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
	"github.com/kareemzeiad-ops/kero-feeder/internal/service"
	"github.com/kareemzeiad-ops/kero-feeder/internal/session"
	"github.com/spf13/cobra"
)

var (
	planAnimal  string
	planPurpose string
	planWeight  float64
	planMilk    float64
	planSelect  []string
	planSet     []string
	planAdd     []string
	planRemove  []string
	planCustom  []string
	planAdvise  bool
	planApply   bool
	planJSON    bool
	planAPIKey  string
	planModel   string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Formulate a 1000 kg concentrate batch",
	Long: `Allocate the selected ingredients across a 1000 kg batch, apply manual
edits, and print the nutrient profile. With --advise the ration is sent to
the advisory model; --apply replaces the distribution with its suggestion.`,
	Example: `  kero plan --animal بقر --purpose حلاب --weight 500 --milk 20 \
    --select "ذرة صفراء" --select "كسب صويا" --select "ملح طعام" --set "كسب صويا=240"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(planSelect) == 0 {
			return fmt.Errorf("--select is required")
		}
		if planApply && !planAdvise {
			return fmt.Errorf("--apply needs --advise")
		}
		loadEnv()
		return withDB(func(sqldb *sql.DB) error {
			data, err := service.LoadDataset(sqldb)
			if err != nil {
				return err
			}
			settings, err := resolveSettings(sqldb, planModel, 0)
			if err != nil {
				return err
			}
			opts := session.Options{
				Dataset: data,
				Rules:   settings.Rules,
				Logger:  newLogger(cmd.ErrOrStderr()),
			}
			if planAdvise {
				opts.Advisor = &advisory.GeminiClient{APIKey: resolveAPIKey(planAPIKey), Model: settings.AdvisoryModel}
			}
			mgr := session.NewManager(opts)
			defer mgr.Close()

			s, err := mgr.Create(ration.AnimalContext{Animal: planAnimal, Purpose: planPurpose, WeightKg: planWeight, MilkKg: planMilk})
			if err != nil {
				return err
			}
			for _, raw := range planCustom {
				in, err := parseCustomFlag(raw)
				if err != nil {
					return err
				}
				if _, err := s.DefineCustom(in); err != nil {
					return err
				}
			}
			if _, err := s.Select(planSelect...); err != nil {
				return err
			}
			if _, err := s.Allocate(); err != nil {
				return err
			}
			for _, name := range planRemove {
				if _, err := s.Remove(name); err != nil {
					return err
				}
			}
			for _, name := range planAdd {
				if _, err := s.Add(name); err != nil {
					return err
				}
			}
			for _, raw := range planSet {
				name, amount, ok := strings.Cut(raw, "=")
				if !ok {
					return fmt.Errorf("invalid --set %q (use name=amount)", raw)
				}
				if _, err := s.SetWeight(strings.TrimSpace(name), amount); err != nil {
					return err
				}
			}

			view := s.View()
			if planAdvise {
				// A failed call leaves the ration as it is; the cause is
				// logged by the session and the view reports no suggestion.
				view, _ = s.Advise(cmd.Context())
				if planApply && view.Advice.Suggestion != nil {
					if view, err = s.ApplySuggestion(); err != nil {
						return err
					}
				}
			}
			if view.Allocated {
				view.Distribution = view.Distribution.Rounded(1)
			}
			if planJSON {
				return printJSON(cmd.OutOrStdout(), view)
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		})
	},
}

// parseCustomFlag reads name=protein,tdn,fiber,fat.
func parseCustomFlag(raw string) (ration.CustomInput, error) {
	name, rest, ok := strings.Cut(raw, "=")
	if !ok {
		return ration.CustomInput{}, fmt.Errorf("invalid --custom %q (use name=protein,tdn,fiber,fat)", raw)
	}
	parts := strings.Split(rest, ",")
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	return ration.CustomInput{Name: name, Protein: parts[0], TDN: parts[1], Fiber: parts[2], Fat: parts[3]}, nil
}

func printView(w io.Writer, v session.View) {
	fmt.Fprintf(w, "%s / %s / %.0f kg", v.Context.Animal, v.Context.Purpose, v.Context.WeightKg)
	if v.Context.MilkKg > 0 {
		fmt.Fprintf(w, " / %.1f kg milk", v.Context.MilkKg)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "INGREDIENT\tAMOUNT")
	for _, name := range v.Distribution.Names() {
		fmt.Fprintf(w, "%s\t%.1f\n", name, v.Distribution[name])
	}
	fmt.Fprintf(w, "TOTAL\t%.1f\n", v.Total)

	if p := v.Profile; p != nil {
		fmt.Fprintf(w, "Protein: %.2f%%\n", p.Protein)
		fmt.Fprintf(w, "TDN: %.2f%%\n", p.TDN)
		fmt.Fprintf(w, "Fiber: %.2f%%\n", p.Fiber)
		fmt.Fprintf(w, "Fat: %.2f%%\n", p.Fat)
		fmt.Fprintf(w, "Daily concentrate: %.2f kg/head\n", p.DailyConcentrate)
	}
	for _, warn := range v.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn.Message)
	}

	sug := v.Advice.Suggestion
	if sug == nil {
		if v.Advice.Error != "" {
			fmt.Fprintf(w, "Advice: %s (%s)\n", v.Advice.Error, v.Advice.Outcome)
		}
		return
	}
	fmt.Fprintf(w, "Advice: %s\n", sug.Commentary)
	fmt.Fprintf(w, "Balanced: %t  expected protein: %.2f%%\n", sug.IsBalanced, sug.ExpectedProtein)
	fmt.Fprintln(w, "INGREDIENT\tCURRENT\tSUGGESTED")
	for _, c := range v.Advice.Changes {
		mark := ""
		switch {
		case c.Added:
			mark = "\t+"
		case c.Dropped:
			mark = "\t-"
		case c.Changed:
			mark = "\t*"
		}
		fmt.Fprintf(w, "%s\t%.1f\t%.1f%s\n", c.Name, c.Current, c.Suggested, mark)
	}
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planAnimal, "animal", ration.AnimalCattle, "Animal type")
	planCmd.Flags().StringVar(&planPurpose, "purpose", "", "Production purpose")
	planCmd.Flags().Float64Var(&planWeight, "weight", 0, "Live weight in kg")
	planCmd.Flags().Float64Var(&planMilk, "milk", 0, "Daily milk yield in kg (dairy only)")
	planCmd.Flags().StringArrayVar(&planSelect, "select", nil, "Ingredient to include (repeatable)")
	planCmd.Flags().StringArrayVar(&planSet, "set", nil, "Manual amount as name=amount (repeatable)")
	planCmd.Flags().StringArrayVar(&planAdd, "add", nil, "Catalog ingredient to add at zero after allocation (repeatable)")
	planCmd.Flags().StringArrayVar(&planRemove, "remove", nil, "Ingredient to drop after allocation (repeatable)")
	planCmd.Flags().StringArrayVar(&planCustom, "custom", nil, "Custom ingredient as name=protein,tdn,fiber,fat (repeatable)")
	planCmd.Flags().BoolVar(&planAdvise, "advise", false, "Ask the advisory model to review the ration")
	planCmd.Flags().BoolVar(&planApply, "apply", false, "Replace the distribution with the suggestion")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Output JSON")
	planCmd.Flags().StringVar(&planAPIKey, "api-key", "", "Gemini API key (default: $GEMINI_API_KEY)")
	planCmd.Flags().StringVar(&planModel, "model", "", "Advisory model (default: $GEMINI_MODEL, then config)")
}
