package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subrecetas/internal/catalog"
	"subrecetas/internal/reconcile"
	"subrecetas/internal/units"
	"subrecetas/models"
)

var (
	numberPattern = regexp.MustCompile(`[-+]?\d*[.,]?\d+`)
	slugPattern   = regexp.MustCompile(`[^a-z0-9]+`)
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import CSV",
		Short: "Import an ingredient price list",
		Long: `Import ingredients from a CSV file with the columns "Name", "Base Unit"
and either "Price" (per base unit) or "Pack Price", "Pack Qty" and
"Pack Unit". An optional "ID" column keeps existing ids; otherwise ids are
derived from the name. The whole file is validated before anything is saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			csvPath := args[0]
			records, err := readCSV(csvPath)
			if err != nil {
				return fmt.Errorf("read csv: %w", err)
			}

			ingredients := make([]models.Ingredient, 0, len(records))
			for idx, record := range records {
				ingredient, err := buildIngredient(record)
				if err != nil {
					return fmt.Errorf("record %d (%s): %w", idx+1, record["Name"], err)
				}
				ingredients = append(ingredients, ingredient)
			}

			repos, err := a.openRepos(cmd.Context())
			if err != nil {
				return err
			}
			saved, err := catalog.SaveIngredients(cmd.Context(), repos, ingredients)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Imported %d ingredients from %s\n", saved, filepath.Base(csvPath))
			return nil
		},
	}
}

func readCSV(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		record := make(map[string]string, len(header))
		for idx, key := range header {
			if idx >= len(row) {
				continue
			}
			record[strings.TrimSpace(key)] = strings.TrimSpace(row[idx])
		}
		records = append(records, record)
	}

	return records, nil
}

func buildIngredient(row map[string]string) (models.Ingredient, error) {
	name := strings.Join(strings.Fields(row["Name"]), " ")
	if name == "" {
		return models.Ingredient{}, errors.New("name is required")
	}
	baseUnit, ok := units.Parse(row["Base Unit"])
	if !ok {
		return models.Ingredient{}, fmt.Errorf("unknown base unit %q", row["Base Unit"])
	}

	ingredient := models.Ingredient{
		ID:       normalizeValue(row["ID"]),
		Name:     name,
		BaseUnit: baseUnit,
	}
	if ingredient.ID == "" {
		ingredient.ID = "ing-" + slugify(name)
	}

	if price := normalizeValue(row["Price"]); price != "" {
		ingredient.PricePerBaseUnit = parseFirstNumber(price)
		return ingredient, nil
	}

	packUnit, ok := units.Parse(row["Pack Unit"])
	if !ok {
		return models.Ingredient{}, fmt.Errorf("a price or a pack unit is required, got %q", row["Pack Unit"])
	}
	base, err := units.ToBaseQuantity(parseFirstNumber(row["Pack Qty"]), packUnit)
	if err != nil {
		return models.Ingredient{}, err
	}
	if base.BaseUnit != baseUnit {
		return models.Ingredient{}, fmt.Errorf("pack unit %s does not convert to %s", packUnit, baseUnit)
	}
	ingredient.PricePerBaseUnit = parseFirstNumber(row["Pack Price"]) / base.BaseQty
	return ingredient, nil
}

func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") {
		return ""
	}
	return value
}

// parseFirstNumber reads the first number in value, accepting a decimal comma.
func parseFirstNumber(value string) float64 {
	value = normalizeValue(value)
	if value == "" {
		return 0
	}

	match := numberPattern.FindString(value)
	if match == "" {
		return 0
	}

	parsed, err := strconv.ParseFloat(strings.Replace(match, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return parsed
}

func slugify(value string) string {
	value = reconcile.NormalizeName(value)
	value = slugPattern.ReplaceAllString(value, "-")
	return strings.Trim(value, "-")
}
