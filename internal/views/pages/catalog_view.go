package pages

import (
	"fmt"
	"math"
	"strings"

	"subrecetas/internal/catalog"
)

// CatalogView is the display model of the catalog cost page.
type CatalogView struct {
	Ingredients []IngredientRow
	SubRecipes  []SubRecipeRow
	Recipes     []RecipeRow
	Dangling    []string
	Message     string
}

// IngredientRow is one ingredient as shown in the price list.
type IngredientRow struct {
	ID        string
	Name      string
	BaseUnit  string
	Price     string
	UpdatedAt string
}

// SubRecipeRow is one priced sub-recipe.
type SubRecipeRow struct {
	ID     string
	Name   string
	Yield  string
	Cost   string
	Failed bool
}

// RecipeRow is one priced recipe with its food cost ratio.
type RecipeRow struct {
	ID       string
	Name     string
	Pax      string
	Total    string
	PerPax   string
	PriceNet string
	Ratio    string
	Failed   bool
}

// NewCatalogView prices the snapshot and formats it for rendering.
func NewCatalogView(snapshot catalog.Snapshot) CatalogView {
	sheet := snapshot.Costs()
	view := CatalogView{
		Ingredients: make([]IngredientRow, 0, len(snapshot.Ingredients)),
		SubRecipes:  make([]SubRecipeRow, 0, len(sheet.SubRecipes)),
		Recipes:     make([]RecipeRow, 0, len(sheet.Recipes)),
	}

	for _, ingredient := range snapshot.Ingredients {
		row := IngredientRow{
			ID:        ingredient.ID,
			Name:      ingredient.Name,
			BaseUnit:  string(ingredient.BaseUnit),
			Price:     formatUnitPrice(ingredient.PricePerBaseUnit),
			UpdatedAt: "—",
		}
		if ingredient.PriceUpdatedAt != nil {
			row.UpdatedAt = ingredient.PriceUpdatedAt.Format("02 Jan 2006")
		}
		view.Ingredients = append(view.Ingredients, row)
	}

	for _, line := range sheet.SubRecipes {
		row := SubRecipeRow{
			ID:    line.SubRecipe.ID,
			Name:  line.SubRecipe.Name,
			Yield: formatQuantity(line.SubRecipe.YieldQty) + " " + string(line.SubRecipe.YieldUnit),
			Cost:  FormatMoney(line.Cost),
		}
		if line.Error != "" {
			row.Cost = line.Error
			row.Failed = true
		}
		view.SubRecipes = append(view.SubRecipes, row)
	}

	for _, line := range sheet.Recipes {
		row := RecipeRow{
			ID:       line.Recipe.ID,
			Name:     line.Recipe.Name,
			Pax:      formatQuantity(line.Recipe.Pax),
			Total:    FormatMoney(line.Cost.Total),
			PerPax:   FormatMoney(line.Cost.PerPax),
			PriceNet: FormatMoney(line.Recipe.PriceNet),
			Ratio:    FormatRatio(line.FoodCostRatio()),
		}
		if line.Error != "" {
			row.Total = line.Error
			row.PerPax = "—"
			row.Ratio = "—"
			row.Failed = true
		}
		view.Recipes = append(view.Recipes, row)
	}

	for _, ref := range snapshot.DanglingReferences() {
		view.Dangling = append(view.Dangling,
			fmt.Sprintf("%s %q item %d references missing %s %q", ref.Entity, ref.ID, ref.Item+1, ref.MissingKind, ref.MissingID))
	}
	return view
}

// FormatMoney renders an amount with two decimals.
func FormatMoney(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// FormatRatio renders a food cost ratio as a percentage, or a dash when the
// recipe has no selling price.
func FormatRatio(ratio float64) string {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return "—"
	}
	return fmt.Sprintf("%.1f%%", ratio*100)
}

func formatUnitPrice(price float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("$%.4f", price), "0"), ".")
}

func formatQuantity(qty float64) string {
	if qty == math.Trunc(qty) {
		return fmt.Sprintf("%.0f", qty)
	}
	return strings.TrimRight(fmt.Sprintf("%.3f", qty), "0")
}
