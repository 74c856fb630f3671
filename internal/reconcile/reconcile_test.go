package reconcile

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subrecetas/internal/catalog"
	"subrecetas/internal/catalog/catalogtest"
	"subrecetas/internal/invoice"
	"subrecetas/internal/units"
	"subrecetas/models"
)

func line(description string, total float64, qty *float64, unit *string) invoice.ParsedLine {
	return invoice.ParsedLine{RawDescription: description, LineTotal: total, Qty: qty, Unit: unit}
}

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func fixedOptions() Options {
	at := time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
	n := 0
	return Options{
		Now: func() time.Time { return at },
		NewID: func() string {
			n++
			return "ing-new-" + string(rune('0'+n))
		},
	}
}

func codes(errs []RowError) []RowErrorCode {
	out := make([]RowErrorCode, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  Azúcar  Impalpable ": "azucar impalpable",
		"HARINA\t000":           "harina 000",
		"Crème brûlée":          "creme brulee",
		"Ñoquis":                "noquis",
		"":                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeName(in), "NormalizeName(%q)", in)
	}
	assert.Equal(t, NormalizeName("azucar"), NormalizeName("AZÚCAR"))
}

func TestValidateLinesKilogramAgainstGrams(t *testing.T) {
	t.Parallel()

	catalogItems := []models.Ingredient{{ID: "ing-azucar", Name: "Azúcar", BaseUnit: units.Gram, PricePerBaseUnit: 0.002}}
	lines := []invoice.ParsedLine{line("Azucar x 1kg", 13.2, f(1), s("kg"))}

	errs := ValidateLines(lines, []string{"azucar"}, catalogItems)
	assert.Empty(t, errs)
	assert.True(t, errs.CanSave())

	records, err := BuildIngredientsForSave(lines, []string{"azucar"}, catalogItems, fixedOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ing-azucar", records[0].ID)
	assert.InDelta(t, 0.0132, records[0].PricePerBaseUnit, 1e-12)
	assert.InDelta(t, 13.2, *records[0].PurchaseUnitCost, 1e-12)
	assert.Equal(t, units.Kilogram, *records[0].LastPurchaseUnit)
}

func TestValidateLinesIncompatibleBaseUnitBlocksBatch(t *testing.T) {
	t.Parallel()

	catalogItems := []models.Ingredient{
		{ID: "ing-azucar", Name: "Azucar", BaseUnit: units.Milliliter},
		{ID: "ing-harina", Name: "Harina", BaseUnit: units.Gram},
	}
	lines := []invoice.ParsedLine{
		line("Harina 000 x 1kg", 14.5, f(1), s("kg")),
		line("Azucar x 1kg", 13.2, f(1), s("kg")),
	}

	errs := ValidateLines(lines, []string{"Harina", "Azucar"}, catalogItems)
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Row)
	assert.Equal(t, CodeIncompatibleBaseUnit, errs[0].Code)
	assert.False(t, errs.CanSave())
	assert.Empty(t, errs.ForRow(0))

	_, err := BuildIngredientsForSave(lines, []string{"Harina", "Azucar"}, catalogItems, fixedOptions())
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, CodeIncompatibleBaseUnit, rowErr.Code)
}

func TestValidateLinesCollectsEveryRow(t *testing.T) {
	t.Parallel()

	lines := []invoice.ParsedLine{
		line("", 0, nil, nil),
		line("Leche", 8.9, f(-1), nil),
		line("Sal", math.NaN(), nil, s("cup")),
		line("Huevos", 4, f(12), s("unit")),
		line("Crema", 5, nil, s("ml")),
	}
	selections := []string{"x", "Leche", "Sal", " "}

	errs := ValidateLines(lines, selections, nil)
	assert.Equal(t, []RowErrorCode{CodeEmptyDescription, CodeInvalidTotal}, codes(errs.ForRow(0)))
	assert.Equal(t, []RowErrorCode{CodeInvalidQuantity, CodeMissingUnit}, codes(errs.ForRow(1)))
	assert.Equal(t, []RowErrorCode{CodeInvalidTotal, CodeInvalidUnit}, codes(errs.ForRow(2)))
	assert.Equal(t, []RowErrorCode{CodeMissingSelection}, codes(errs.ForRow(3)))
	assert.Equal(t, []RowErrorCode{CodeMissingSelection}, codes(errs.ForRow(4)))
	assert.False(t, errs.CanSave())
}

func TestConfidenceNeverGatesSaving(t *testing.T) {
	t.Parallel()

	low := 0.1
	lines := []invoice.ParsedLine{{RawDescription: "Harina", LineTotal: 14.5, Qty: f(1), Unit: s("kg"), Confidence: &low}}
	assert.True(t, ValidateLines(lines, []string{"Harina"}, nil).CanSave())

	banner := Summarize(invoice.Response{Confidence: 0.2, LowConfidence: true})
	assert.True(t, banner.LowConfidence)
	assert.NotNil(t, banner.Warnings)
}

func TestBuildIngredientsForSaveMintsAndMerges(t *testing.T) {
	t.Parallel()

	lines := []invoice.ParsedLine{
		line("Leche entera x 1L", 8.9, f(1), s("l")),
		line("Leche entera x 2L", 16, f(2), s("L")),
		line("Manteca 500 g", 5, f(500), s("g")),
	}
	selections := []string{"Leche  Entera", "leche entera", "Manteca"}

	records, err := BuildIngredientsForSave(lines, selections, nil, fixedOptions())
	require.NoError(t, err)
	require.Len(t, records, 2)

	leche := records[0]
	assert.Equal(t, "ing-new-1", leche.ID)
	assert.Equal(t, "Leche Entera", leche.Name)
	assert.Equal(t, units.Milliliter, leche.BaseUnit)
	assert.InDelta(t, 0.008, leche.PricePerBaseUnit, 1e-12)
	assert.InDelta(t, 8, *leche.PurchaseUnitCost, 1e-12)
	assert.Equal(t, 2.0, *leche.LastPurchaseQty)

	manteca := records[1]
	assert.Equal(t, "ing-new-2", manteca.ID)
	assert.InDelta(t, 0.01, manteca.PricePerBaseUnit, 1e-12)
	assert.Equal(t, time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC), *manteca.PriceUpdatedAt)
}

func TestBuildIngredientsForSaveRequiresQuantity(t *testing.T) {
	t.Parallel()

	_, err := BuildIngredientsForSave([]invoice.ParsedLine{line("Harina", 14.5, nil, nil)}, []string{"Harina"}, nil, fixedOptions())
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, CodeMissingQuantity, rowErr.Code)

	_, err = BuildIngredientsForSave([]invoice.ParsedLine{line("Harina", 14.5, f(1), s("kg"))}, nil, nil, fixedOptions())
	assert.Error(t, err)
}

func TestMatchesAndPendingOverwrites(t *testing.T) {
	t.Parallel()

	catalogItems := []models.Ingredient{
		{ID: "ing-harina", Name: "Harina 000", BaseUnit: units.Gram},
		{ID: "ing-leche", Name: "Leche", BaseUnit: units.Milliliter},
	}
	selections := []string{"harina 000", "Cacao", "", "HARINA  000"}

	assert.Equal(t, []bool{true, false, false, true}, Matches(selections, catalogItems))

	pending := PendingOverwrites(selections, catalogItems)
	require.Len(t, pending, 1)
	assert.Equal(t, "ing-harina", pending[0].ID)
}

func TestSuggestSelections(t *testing.T) {
	t.Parallel()

	catalogItems := []models.Ingredient{
		{ID: "a", Name: "Harina"},
		{ID: "b", Name: "Harina 000"},
		{ID: "c", Name: "Leche"},
	}
	lines := []invoice.ParsedLine{
		{RawDescription: "HARINA 000 x 1kg"},
		{RawDescription: "Leche entera x 1L"},
		{RawDescription: "Lechuga"},
	}
	assert.Equal(t, []string{"Harina 000", "Leche", ""}, SuggestSelections(lines, catalogItems))
}

func TestCommit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := catalogtest.NewStore()
	repos := store.Repositories()
	_, err := catalog.EnsureDemoSeed(ctx, repos)
	require.NoError(t, err)
	upserts := store.IngredientUpserts

	mock, err := invoice.NewMockParser().Parse(ctx, invoice.Input{})
	require.NoError(t, err)
	selections := []string{"Harina 000", "Azucar", "Leche"}

	req := Request{Lines: mock.Items, Selections: selections, Fingerprint: "abc"}

	_, err = Commit(ctx, repos, req, fixedOptions())
	var overwrite *OverwriteError
	require.True(t, errors.As(err, &overwrite), "expected OverwriteError, got %v", err)
	assert.Len(t, overwrite.Pending, 3)
	assert.Equal(t, upserts, store.IngredientUpserts)

	req.ConfirmOverwrite = true
	result, err := Commit(ctx, repos, req, fixedOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Updated)
	assert.Zero(t, result.Created)

	harina, err := repos.Ingredients.GetByID(ctx, "ing-harina")
	require.NoError(t, err)
	assert.InDelta(t, 0.0145, harina.PricePerBaseUnit, 1e-12)

	leche, err := repos.Ingredients.GetByID(ctx, "ing-leche")
	require.NoError(t, err)
	assert.InDelta(t, 0.0089, leche.PricePerBaseUnit, 1e-12)

	when, seen, err := SeenInvoice(ctx, repos.Meta, "abc")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, "2026-02-05T10:00:00Z", when)

	cost, err := catalog.SubRecipeCostByID(ctx, repos, "sub-masa-basica")
	require.NoError(t, err)
	assert.Greater(t, cost, 94.0232)
}

func TestCommitBlockedLeavesCatalogUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := catalogtest.NewStore()
	store.PutIngredients(models.Ingredient{ID: "ing-azucar", Name: "Azucar", BaseUnit: units.Milliliter, PricePerBaseUnit: 1})
	repos := store.Repositories()

	req := Request{
		Lines: []invoice.ParsedLine{
			line("Sal fina x 1kg", 2, f(1), s("kg")),
			line("Azucar x 1kg", 13.2, f(1), s("kg")),
		},
		Selections:       []string{"Sal", "Azucar"},
		ConfirmOverwrite: true,
	}

	_, err := Commit(ctx, repos, req, fixedOptions())
	var blocked *BlockedError
	require.True(t, errors.As(err, &blocked), "expected BlockedError, got %v", err)
	require.Len(t, blocked.Rows, 1)
	assert.Equal(t, CodeIncompatibleBaseUnit, blocked.Rows[0].Code)
	assert.Zero(t, store.IngredientUpserts)

	req.Lines = req.Lines[:1]
	req.Selections = req.Selections[:1]
	req.Lines[0].Qty = nil
	req.Lines[0].Unit = nil
	_, err = Commit(ctx, repos, req, fixedOptions())
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, CodeMissingQuantity, blocked.Rows[0].Code)
	assert.Zero(t, store.IngredientUpserts)
}

func TestCommitCreatesNewIngredient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := catalogtest.NewStore()
	repos := store.Repositories()

	result, err := Commit(ctx, repos, Request{
		Lines:      []invoice.ParsedLine{line("Cacao amargo 250 g", 7.5, f(250), s("g"))},
		Selections: []string{"Cacao amargo"},
	}, fixedOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	stored, err := repos.Ingredients.GetByID(ctx, "ing-new-1")
	require.NoError(t, err)
	assert.Equal(t, "Cacao amargo", stored.Name)
	assert.InDelta(t, 0.03, stored.PricePerBaseUnit, 1e-12)

	_, seen, err := SeenInvoice(ctx, repos.Meta, "")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	catalogItems := []models.Ingredient{{ID: "ing-sal", Name: "Sal", BaseUnit: units.Gram}}
	review := Evaluate([]invoice.ParsedLine{line("Sal x 1kg", 2, f(1), s("kg"))}, []string{"sal"}, catalogItems)
	assert.True(t, review.CanSave)
	assert.Equal(t, []bool{true}, review.Matches)
	require.Len(t, review.PendingOverwrites, 1)
	assert.NotNil(t, review.Rows)
}

func TestCommitRejectsExtraSelections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := catalogtest.NewStore()
	store.PutIngredients(
		models.Ingredient{ID: "ing-sal", Name: "Sal", BaseUnit: units.Gram, PricePerBaseUnit: 0.0008},
		models.Ingredient{ID: "ing-azucar", Name: "Azucar", BaseUnit: units.Gram, PricePerBaseUnit: 0.0022},
	)
	repos := store.Repositories()

	req := Request{
		Lines:      []invoice.ParsedLine{line("Sal x 1kg", 2, f(1), s("kg"))},
		Selections: []string{"Sal", "Azucar"},
	}
	for _, confirm := range []bool{false, true} {
		req.ConfirmOverwrite = confirm
		_, err := Commit(ctx, repos, req, fixedOptions())
		var count *SelectionCountError
		require.True(t, errors.As(err, &count), "confirm=%t: expected SelectionCountError, got %v", confirm, err)
		assert.Equal(t, 2, count.Selections)
		assert.Equal(t, 1, count.Lines)
	}
	assert.Zero(t, store.IngredientUpserts)

	_, err := BuildIngredientsForSave(req.Lines, req.Selections, nil, fixedOptions())
	var count *SelectionCountError
	assert.True(t, errors.As(err, &count))
}

func TestCommitTreatsShortSelectionsAsMissing(t *testing.T) {
	t.Parallel()

	req := Request{
		Lines: []invoice.ParsedLine{
			line("Sal x 1kg", 2, f(1), s("kg")),
			line("Azucar x 1kg", 13.2, f(1), s("kg")),
		},
		Selections: []string{"Sal"},
	}
	_, err := Commit(context.Background(), catalogtest.NewStore().Repositories(), req, fixedOptions())
	var blocked *BlockedError
	require.True(t, errors.As(err, &blocked), "expected BlockedError, got %v", err)
	require.Len(t, blocked.Rows, 1)
	assert.Equal(t, 1, blocked.Rows[0].Row)
	assert.Equal(t, CodeMissingSelection, blocked.Rows[0].Code)
}

func TestEvaluateIgnoresSelectionsWithoutLine(t *testing.T) {
	t.Parallel()

	catalogItems := []models.Ingredient{
		{ID: "ing-sal", Name: "Sal", BaseUnit: units.Gram},
		{ID: "ing-azucar", Name: "Azucar", BaseUnit: units.Gram},
	}
	review := Evaluate([]invoice.ParsedLine{line("Sal x 1kg", 2, f(1), s("kg"))}, []string{"Sal", "Azucar"}, catalogItems)
	assert.Equal(t, []bool{true}, review.Matches)
	require.Len(t, review.PendingOverwrites, 1)
	assert.Equal(t, "ing-sal", review.PendingOverwrites[0].ID)
}
