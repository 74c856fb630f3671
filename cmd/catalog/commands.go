package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"subrecetas/internal/catalog"
	"subrecetas/internal/invoice"
	"subrecetas/internal/reconcile"
	"subrecetas/models"
)

func newSeedCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog unless its version is already applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repos, err := a.openRepos(ctx)
			if err != nil {
				return err
			}
			if force {
				if err := repos.Meta.Set(ctx, models.MetaEntry{Key: catalog.SeedKey, Value: ""}); err != nil {
					return fmt.Errorf("reset seed version: %w", err)
				}
			}
			result, err := catalog.EnsureDemoSeed(ctx, repos)
			if err != nil {
				return err
			}
			if result.Seeded {
				fmt.Fprintf(a.out, "Seeded demo catalog %s\n", result.Version)
			} else {
				fmt.Fprintf(a.out, "Demo catalog %s already applied\n", result.Version)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace the catalog even when the seed version matches")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "list [ingredients|subrecipes|recipes]",
		Short:     "List catalog entities",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"ingredients", "subrecipes", "recipes"},
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, err := a.openRepos(cmd.Context())
			if err != nil {
				return err
			}
			snapshot, err := catalog.LoadSnapshot(cmd.Context(), repos)
			if err != nil {
				return err
			}
			kind := "all"
			if len(args) == 1 {
				kind = args[0]
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			switch kind {
			case "all", "ingredients":
				fmt.Fprintln(tw, "ID\tNAME\tBASE UNIT\tPRICE")
				for _, ingredient := range snapshot.Ingredients {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ingredient.ID, ingredient.Name, ingredient.BaseUnit, formatFloat(ingredient.PricePerBaseUnit))
				}
				if kind == "ingredients" {
					break
				}
				fmt.Fprintln(tw)
				fallthrough
			case "subrecipes":
				fmt.Fprintln(tw, "ID\tNAME\tYIELD\tITEMS")
				for _, subRecipe := range snapshot.SubRecipes {
					fmt.Fprintf(tw, "%s\t%s\t%s %s\t%d\n", subRecipe.ID, subRecipe.Name, formatFloat(subRecipe.YieldQty), subRecipe.YieldUnit, len(subRecipe.Items))
				}
				if kind == "subrecipes" {
					break
				}
				fmt.Fprintln(tw)
				fallthrough
			case "recipes":
				fmt.Fprintln(tw, "ID\tNAME\tPAX\tPRICE NET\tITEMS")
				for _, recipe := range snapshot.Recipes {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", recipe.ID, recipe.Name, formatFloat(recipe.Pax), formatFloat(recipe.PriceNet), len(recipe.Items))
				}
			default:
				return fmt.Errorf("unknown entity %q", kind)
			}
			return tw.Flush()
		},
	}
}

func newCostCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cost [recipe|subrecipe ID]",
		Short: "Print the cost sheet, or the cost of one recipe or sub-recipe",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return errors.New("expected no arguments or an entity kind and id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repos, err := a.openRepos(ctx)
			if err != nil {
				return err
			}

			if len(args) == 2 {
				switch args[0] {
				case "recipe":
					cost, err := catalog.RecipeCostByID(ctx, repos, args[1])
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "%s total=%s per_pax=%s\n", args[1], formatFloat(cost.Total), formatFloat(cost.PerPax))
				case "subrecipe":
					cost, err := catalog.SubRecipeCostByID(ctx, repos, args[1])
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "%s cost=%s\n", args[1], formatFloat(cost))
				default:
					return fmt.Errorf("unknown entity %q", args[0])
				}
				return nil
			}

			snapshot, err := catalog.LoadSnapshot(ctx, repos)
			if err != nil {
				return err
			}
			return writeCostSheet(a.out, snapshot.Costs())
		},
	}
	return cmd
}

func writeCostSheet(out io.Writer, sheet catalog.CostSheet) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUB-RECIPE\tCOST")
	for _, line := range sheet.SubRecipes {
		cost := formatFloat(line.Cost)
		if line.Error != "" {
			cost = "error: " + line.Error
		}
		fmt.Fprintf(tw, "%s\t%s\n", line.SubRecipe.Name, cost)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "RECIPE\tTOTAL\tPER PAX\tFOOD COST")
	for _, line := range sheet.Recipes {
		if line.Error != "" {
			fmt.Fprintf(tw, "%s\terror: %s\t\t\n", line.Recipe.Name, line.Error)
			continue
		}
		ratio := "-"
		if r := line.FoodCostRatio(); r > 0 {
			ratio = strconv.FormatFloat(r*100, 'f', 1, 64) + "%"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", line.Recipe.Name, formatFloat(line.Cost.Total), formatFloat(line.Cost.PerPax), ratio)
	}
	return tw.Flush()
}

func newDanglingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dangling",
		Short: "List recipe and sub-recipe items that reference deleted entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repos, err := a.openRepos(cmd.Context())
			if err != nil {
				return err
			}
			snapshot, err := catalog.LoadSnapshot(cmd.Context(), repos)
			if err != nil {
				return err
			}
			dangling := snapshot.DanglingReferences()
			if len(dangling) == 0 {
				fmt.Fprintln(a.out, "No dangling references")
				return nil
			}
			for _, ref := range dangling {
				fmt.Fprintf(a.out, "%s %s item %d: missing %s %s\n", ref.Entity, ref.ID, ref.Item+1, ref.MissingKind, ref.MissingID)
			}
			return nil
		},
	}
}

func newParseCmd(a *app) *cobra.Command {
	var (
		selections []string
		commit     bool
		confirm    bool
	)
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse an invoice and review it against the catalog",
		Long: `Parse an invoice file with the configured provider, suggest a catalog
ingredient for every line and print the review. Use --select ROW=NAME to
override a suggestion (rows start at 1) and --commit to save the prices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read invoice: %w", err)
			}
			input, err := invoice.NewUploadInput(filepath.Base(args[0]), data, "")
			if err != nil {
				return err
			}

			parser, err := a.openParser(ctx)
			if err != nil {
				return err
			}
			repos, err := a.openRepos(ctx)
			if err != nil {
				return err
			}

			resp, err := parser.Parse(ctx, input)
			if err == nil {
				err = resp.Validate()
			}
			if err != nil {
				return fmt.Errorf("parse invoice: %w", err)
			}

			fingerprint := invoice.Fingerprint(data)
			if savedAt, seen, err := reconcile.SeenInvoice(ctx, repos.Meta, fingerprint); err == nil && seen {
				resp.Warnings = append(resp.Warnings, "This invoice was already saved on "+savedAt+".")
			}

			stored, err := repos.Ingredients.List(ctx)
			if err != nil {
				return fmt.Errorf("list ingredients: %w", err)
			}
			chosen := reconcile.SuggestSelections(resp.Items, stored)
			if err := applySelections(chosen, selections); err != nil {
				return err
			}

			review := reconcile.Evaluate(resp.Items, chosen, stored)
			if err := writeReview(a.out, resp, chosen, review); err != nil {
				return err
			}
			if !commit {
				return nil
			}

			result, err := reconcile.Commit(ctx, repos, reconcile.Request{
				Lines:            resp.Items,
				Selections:       chosen,
				ConfirmOverwrite: confirm,
				Fingerprint:      fingerprint,
			}, reconcile.Options{})
			if err != nil {
				var overwrite *reconcile.OverwriteError
				if errors.As(err, &overwrite) {
					return fmt.Errorf("%w (rerun with --confirm)", err)
				}
				return err
			}
			fmt.Fprintf(a.out, "Saved %d ingredients (%d created, %d updated)\n", len(result.Saved), result.Created, result.Updated)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&selections, "select", nil, "ingredient for a row, as ROW=NAME")
	cmd.Flags().BoolVar(&commit, "commit", false, "save the reconciled prices")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "allow updating prices of existing ingredients")
	return cmd
}

func applySelections(chosen []string, overrides []string) error {
	for _, override := range overrides {
		rowText, name, ok := strings.Cut(override, "=")
		if !ok {
			return fmt.Errorf("invalid selection %q, expected ROW=NAME", override)
		}
		row, err := strconv.Atoi(strings.TrimSpace(rowText))
		if err != nil || row < 1 || row > len(chosen) {
			return fmt.Errorf("invalid selection row %q", rowText)
		}
		chosen[row-1] = strings.TrimSpace(name)
	}
	return nil
}

func writeReview(out io.Writer, resp invoice.Response, selections []string, review reconcile.Review) error {
	banner := reconcile.Summarize(resp)
	fmt.Fprintf(out, "Confidence: %.0f%%", banner.Confidence*100)
	if banner.LowConfidence {
		fmt.Fprint(out, " (low)")
	}
	fmt.Fprintln(out)
	for _, warning := range banner.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", warning)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tDESCRIPTION\tTOTAL\tQTY\tINGREDIENT\tMATCH\tERRORS")
	for row, line := range resp.Items {
		qty := "-"
		if line.Qty != nil && line.Unit != nil {
			qty = formatFloat(*line.Qty) + " " + *line.Unit
		}
		match := "new"
		if row < len(review.Matches) && review.Matches[row] {
			match = "existing"
		}
		var problems []string
		for _, rowErr := range review.Rows.ForRow(row) {
			problems = append(problems, string(rowErr.Code))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", row+1, line.RawDescription, formatFloat(line.LineTotal),
			qty, selections[row], match, strings.Join(problems, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if review.CanSave {
		fmt.Fprintln(out, "Ready to save")
	} else {
		fmt.Fprintf(out, "Blocked: %d row errors\n", len(review.Rows))
	}
	return nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
