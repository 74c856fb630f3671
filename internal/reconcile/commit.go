package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"subrecetas/internal/catalog"
	"subrecetas/internal/invoice"
	applog "subrecetas/internal/log"
	"subrecetas/models"
)

// Request is a reconciliation commit.
type Request struct {
	Lines            []invoice.ParsedLine `json:"items"`
	Selections       []string             `json:"selections"`
	ConfirmOverwrite bool                 `json:"confirm_overwrite"`
	Fingerprint      string               `json:"fingerprint,omitempty"`
}

// Result describes a successful commit.
type Result struct {
	Saved   []models.Ingredient `json:"saved"`
	Created int                 `json:"created"`
	Updated int                 `json:"updated"`
}

// BlockedError is returned when the save gate is closed.
type BlockedError struct {
	Rows RowErrors
}

func (e *BlockedError) Error() string {
	if len(e.Rows) == 1 {
		return "invoice has 1 row error"
	}
	return fmt.Sprintf("invoice has %d row errors", len(e.Rows))
}

// OverwriteError is returned when a commit would change existing ingredients
// and the caller has not confirmed it.
type OverwriteError struct {
	Pending []models.Ingredient
}

func (e *OverwriteError) Error() string {
	names := make([]string, 0, len(e.Pending))
	for _, ingredient := range e.Pending {
		names = append(names, ingredient.Name)
	}
	return "confirm price update for existing ingredients: " + strings.Join(names, ", ")
}

// SelectionCountError is returned when a request carries more selections
// than invoice lines.
type SelectionCountError struct {
	Selections int
	Lines      int
}

func (e *SelectionCountError) Error() string {
	return fmt.Sprintf("got %d selections for %d lines", e.Selections, e.Lines)
}

// alignSelections returns one selection per line, blank where the caller sent
// none. Extra selections are an error.
func alignSelections(lines []invoice.ParsedLine, selections []string) ([]string, error) {
	if len(selections) > len(lines) {
		return nil, &SelectionCountError{Selections: len(selections), Lines: len(lines)}
	}
	return fitSelections(lines, selections), nil
}

func fitSelections(lines []invoice.ParsedLine, selections []string) []string {
	fitted := make([]string, len(lines))
	copy(fitted, selections)
	return fitted
}

// Review is the interactive state of a draft: row errors, the save gate and
// the match indicators.
type Review struct {
	Rows              RowErrors           `json:"row_errors"`
	CanSave           bool                `json:"can_save"`
	Matches           []bool              `json:"matches"`
	PendingOverwrites []models.Ingredient `json:"pending_overwrites"`
}

// Evaluate computes the review for the given lines and selections.
// Selections beyond the last line are ignored.
func Evaluate(lines []invoice.ParsedLine, selections []string, catalog []models.Ingredient) Review {
	selections = fitSelections(lines, selections)
	rows := ValidateLines(lines, selections, catalog)
	pending := PendingOverwrites(selections, catalog)
	if pending == nil {
		pending = []models.Ingredient{}
	}
	return Review{
		Rows:              rows,
		CanSave:           rows.CanSave(),
		Matches:           Matches(selections, catalog),
		PendingOverwrites: pending,
	}
}

// Commit validates the draft against the current catalog and persists the
// resulting ingredients through the guarded catalog save.
func Commit(ctx context.Context, repos catalog.Repositories, req Request, opts Options) (Result, error) {
	selections, err := alignSelections(req.Lines, req.Selections)
	if err != nil {
		return Result{}, err
	}
	req.Selections = selections

	stored, err := repos.Ingredients.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list ingredients: %w", err)
	}

	if rows := ValidateLines(req.Lines, req.Selections, stored); !rows.CanSave() {
		applog.Debug(ctx, "invoice commit blocked", "row_errors", len(rows))
		return Result{}, &BlockedError{Rows: rows}
	}

	if pending := PendingOverwrites(req.Selections, stored); len(pending) > 0 && !req.ConfirmOverwrite {
		return Result{}, &OverwriteError{Pending: pending}
	}

	records, err := BuildIngredientsForSave(req.Lines, req.Selections, stored, opts)
	if err != nil {
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			return Result{}, &BlockedError{Rows: RowErrors{*rowErr}}
		}
		return Result{}, err
	}

	if _, err := catalog.SaveIngredients(ctx, repos, records); err != nil {
		return Result{}, err
	}

	existing := make(map[string]bool, len(stored))
	for _, ingredient := range stored {
		existing[ingredient.ID] = true
	}
	result := Result{Saved: records}
	for _, record := range records {
		if existing[record.ID] {
			result.Updated++
		} else {
			result.Created++
		}
	}

	if fp := strings.TrimSpace(req.Fingerprint); fp != "" {
		entry := models.MetaEntry{Key: invoice.FingerprintKey(fp), Value: opts.now().Format(time.RFC3339)}
		if err := repos.Meta.Set(ctx, entry); err != nil {
			return Result{}, fmt.Errorf("record invoice fingerprint: %w", err)
		}
	}

	applog.Info(ctx, "invoice reconciled", "created", result.Created, "updated", result.Updated)
	return result, nil
}

// SeenInvoice reports when an invoice with this fingerprint was committed.
func SeenInvoice(ctx context.Context, meta catalog.MetaRepository, fingerprint string) (string, bool, error) {
	if strings.TrimSpace(fingerprint) == "" {
		return "", false, nil
	}
	return meta.Get(ctx, invoice.FingerprintKey(fingerprint))
}

// Banner is the confidence information shown above a draft. It never affects
// the save gate.
type Banner struct {
	Confidence    float64  `json:"confidence"`
	LowConfidence bool     `json:"low_confidence"`
	Warnings      []string `json:"warnings"`
}

// Summarize extracts the banner from a provider response.
func Summarize(resp invoice.Response) Banner {
	warnings := resp.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return Banner{Confidence: resp.Confidence, LowConfidence: resp.LowConfidence, Warnings: warnings}
}
