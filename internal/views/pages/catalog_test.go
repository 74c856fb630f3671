package pages

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"subrecetas/internal/catalog"
	"subrecetas/internal/units"
	"subrecetas/models"
)

func demoSnapshot() catalog.Snapshot {
	return catalog.Snapshot{
		Ingredients: catalog.DemoIngredients(),
		SubRecipes:  catalog.DemoSubRecipes(),
		Recipes:     catalog.DemoRecipes(),
	}
}

func TestNewCatalogViewPricesDemoCatalog(t *testing.T) {
	t.Parallel()

	view := NewCatalogView(demoSnapshot())

	if len(view.Ingredients) != 8 {
		t.Fatalf("expected 8 ingredient rows, got %d", len(view.Ingredients))
	}
	if len(view.SubRecipes) != 1 || view.SubRecipes[0].Cost != "$94.02" {
		t.Fatalf("unexpected sub-recipe rows: %+v", view.SubRecipes)
	}
	if len(view.Recipes) != 1 {
		t.Fatalf("expected one recipe row, got %d", len(view.Recipes))
	}
	recipe := view.Recipes[0]
	if recipe.Total != "$95.82" || recipe.PerPax != "$11.98" {
		t.Fatalf("unexpected recipe costs: %+v", recipe)
	}
	if recipe.Ratio != "66.5%" {
		t.Fatalf("expected food cost ratio 66.5%%, got %q", recipe.Ratio)
	}
	if len(view.Dangling) != 0 {
		t.Fatalf("expected no dangling references, got %v", view.Dangling)
	}
}

func TestNewCatalogViewReportsFailures(t *testing.T) {
	t.Parallel()

	snapshot := demoSnapshot()
	kept := snapshot.Ingredients[:0]
	for _, ingredient := range snapshot.Ingredients {
		if ingredient.ID != "ing-chocolate" {
			kept = append(kept, ingredient)
		}
	}
	snapshot.Ingredients = kept

	view := NewCatalogView(snapshot)

	if !view.Recipes[0].Failed {
		t.Fatalf("expected recipe row to be marked failed: %+v", view.Recipes[0])
	}
	if !strings.Contains(view.Recipes[0].Total, "ing-chocolate") {
		t.Fatalf("expected failure message to name the missing ingredient, got %q", view.Recipes[0].Total)
	}
	if len(view.Dangling) != 1 || !strings.Contains(view.Dangling[0], "item 2") {
		t.Fatalf("unexpected dangling lines: %v", view.Dangling)
	}
}

func TestFormatHelpers(t *testing.T) {
	t.Parallel()

	if got := FormatMoney(1.005); got != "$1.00" && got != "$1.01" {
		t.Fatalf("unexpected money format %q", got)
	}
	if got := FormatRatio(0); got != "—" {
		t.Fatalf("expected dash for unpriced recipe, got %q", got)
	}
	if got := formatUnitPrice(30); got != "$30" {
		t.Fatalf("expected trimmed unit price, got %q", got)
	}
	if got := formatUnitPrice(0.0025); got != "$0.0025" {
		t.Fatalf("expected four decimals, got %q", got)
	}
	if got := formatQuantity(1.5); got != "1.5" {
		t.Fatalf("expected 1.5, got %q", got)
	}
}

func TestCatalogPageEscapesNames(t *testing.T) {
	t.Parallel()

	view := NewCatalogView(catalog.Snapshot{Ingredients: []models.Ingredient{
		{ID: "ing-x", Name: "<script>alert(1)</script>", BaseUnit: units.Gram, PricePerBaseUnit: 1},
	}})

	var buf bytes.Buffer
	if err := CatalogPage(view).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render catalog page: %v", err)
	}
	output := buf.String()
	if strings.Contains(output, "<script>alert") {
		t.Fatalf("expected ingredient name to be escaped: %s", output)
	}
	for _, token := range []string{"<!doctype html>", `id="cost-tables"`, "&lt;script&gt;"} {
		if !strings.Contains(output, token) {
			t.Fatalf("expected output to contain %q", token)
		}
	}
}

func TestCostTablesFragmentOnly(t *testing.T) {
	t.Parallel()

	view := NewCatalogView(demoSnapshot())
	view.Message = "Catálogo actualizado"

	var buf bytes.Buffer
	if err := CostTables(view).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render cost tables: %v", err)
	}
	output := buf.String()
	if strings.Contains(output, "<html") {
		t.Fatalf("fragment must not include the document shell")
	}
	for _, token := range []string{"Torta simple", "Masa basica", "Catálogo actualizado", "66.5%"} {
		if !strings.Contains(output, token) {
			t.Fatalf("expected fragment to contain %q: %s", token, output)
		}
	}
}

func TestCostTablesMarksFailedRows(t *testing.T) {
	t.Parallel()

	snapshot := demoSnapshot()
	kept := snapshot.Ingredients[:0]
	for _, ingredient := range snapshot.Ingredients {
		if ingredient.ID != "ing-chocolate" {
			kept = append(kept, ingredient)
		}
	}
	snapshot.Ingredients = kept

	var buf bytes.Buffer
	if err := CostTables(NewCatalogView(snapshot)).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render cost tables: %v", err)
	}
	output := buf.String()
	for _, token := range []string{
		`<tr data-id="rec-torta-simple" class="error">`,
		`<tr data-id="sub-masa-basica">`,
		`<div class="warning" role="alert">`,
	} {
		if !strings.Contains(output, token) {
			t.Fatalf("expected output to contain %q: %s", token, output)
		}
	}
	if strings.Contains(output, `class="status"`) {
		t.Fatalf("status line rendered without a message")
	}
}

func TestCostTablesEmptyCatalog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := CostTables(NewCatalogView(catalog.Snapshot{})).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render cost tables: %v", err)
	}
	if !strings.Contains(buf.String(), "Sin ingredientes.") {
		t.Fatalf("expected empty ingredients row: %s", buf.String())
	}
}

func TestCatalogPageStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := CatalogPage(NewCatalogView(demoSnapshot())).Render(ctx, &buf)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Render error = %v, want context.Canceled", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", buf.String())
	}
}
