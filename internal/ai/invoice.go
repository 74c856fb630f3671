package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const schemaName = "invoice_parse"

const systemPrompt = "You read supplier invoices for a restaurant kitchen and answer with strict JSON only."

// InvoiceInput is the material a model reads. At least one of ImageData and
// Text must be set.
type InvoiceInput struct {
	FileName  string
	ImageData []byte
	MIMEType  string
	Text      string
}

// InvoiceExtraction is the decoded model answer. Nullable fields stay nil.
type InvoiceExtraction struct {
	Items         []ExtractedLine `json:"items"`
	Confidence    float64         `json:"confidence"`
	LowConfidence bool            `json:"low_confidence"`
	Warnings      []string        `json:"warnings"`
}

// ExtractedLine is one invoice line as returned by the model.
type ExtractedLine struct {
	RawDescription string   `json:"raw_description"`
	LineTotal      float64  `json:"line_total"`
	Qty            *float64 `json:"qty"`
	Unit           *string  `json:"unit"`
	Confidence     *float64 `json:"confidence"`
}

func (in InvoiceInput) validate() error {
	if len(in.ImageData) == 0 && strings.TrimSpace(in.Text) == "" {
		return errors.New("ai: invoice image or text is required")
	}
	return nil
}

func (in InvoiceInput) mimeType() string {
	if mt := strings.TrimSpace(in.MIMEType); mt != "" {
		return mt
	}
	return http.DetectContentType(in.ImageData)
}

func buildInvoicePrompt(input InvoiceInput) string {
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		fileName = "invoice"
	}

	var b strings.Builder
	b.WriteString(`Extract the invoice line items as strict JSON.
Return a list of items with:
- raw_description (string, as printed)
- line_total (number, line price before VAT)
- qty (number or null)
- unit (string or null, one of: g, kg, ml, l, unit)
- confidence (number 0-1 or null)
Also include:
- confidence (number 0-1) for the whole invoice
- low_confidence (boolean) when the document is hard to read
- warnings (array of strings) with guidance for the user
`)
	fmt.Fprintf(&b, "File: %s\n", fileName)
	if text := strings.TrimSpace(input.Text); text != "" {
		b.WriteString("\nInvoice text:\n")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

func invoiceJSONSchema() map[string]any {
	nullable := func(kind string) map[string]any {
		return map[string]any{"type": []string{kind, "null"}}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"items", "confidence", "low_confidence", "warnings"},
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"raw_description", "line_total", "qty", "unit", "confidence"},
					"properties": map[string]any{
						"raw_description": map[string]any{"type": "string"},
						"line_total":      map[string]any{"type": "number"},
						"qty":             nullable("number"),
						"unit":            nullable("string"),
						"confidence":      nullable("number"),
					},
				},
			},
			"confidence":     map[string]any{"type": "number"},
			"low_confidence": map[string]any{"type": "boolean"},
			"warnings": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}

// ErrInvalidPayload reports a model answer missing a required field.
var ErrInvalidPayload = errors.New("ai: invoice payload does not match schema")

// wireExtraction mirrors InvoiceExtraction with pointers so absent required
// fields can be told apart from zero values.
type wireExtraction struct {
	Items         *[]wireLine `json:"items"`
	Confidence    *float64    `json:"confidence"`
	LowConfidence *bool       `json:"low_confidence"`
	Warnings      *[]string   `json:"warnings"`
}

type wireLine struct {
	RawDescription *string  `json:"raw_description"`
	LineTotal      *float64 `json:"line_total"`
	Qty            *float64 `json:"qty"`
	Unit           *string  `json:"unit"`
	Confidence     *float64 `json:"confidence"`
}

func decodeExtraction(content string) (InvoiceExtraction, error) {
	var wire wireExtraction
	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&wire); err != nil {
		return InvoiceExtraction{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	switch {
	case wire.Items == nil:
		return InvoiceExtraction{}, fmt.Errorf("%w: items is required", ErrInvalidPayload)
	case wire.Confidence == nil:
		return InvoiceExtraction{}, fmt.Errorf("%w: confidence is required", ErrInvalidPayload)
	case wire.LowConfidence == nil:
		return InvoiceExtraction{}, fmt.Errorf("%w: low_confidence is required", ErrInvalidPayload)
	case wire.Warnings == nil:
		return InvoiceExtraction{}, fmt.Errorf("%w: warnings is required", ErrInvalidPayload)
	}

	parsed := InvoiceExtraction{
		Items:         make([]ExtractedLine, 0, len(*wire.Items)),
		Confidence:    *wire.Confidence,
		LowConfidence: *wire.LowConfidence,
		Warnings:      make([]string, 0, len(*wire.Warnings)),
	}
	for idx, line := range *wire.Items {
		if line.RawDescription == nil {
			return InvoiceExtraction{}, fmt.Errorf("%w: item %d raw_description is required", ErrInvalidPayload, idx+1)
		}
		if line.LineTotal == nil {
			return InvoiceExtraction{}, fmt.Errorf("%w: item %d line_total is required", ErrInvalidPayload, idx+1)
		}
		item := ExtractedLine{
			RawDescription: normaliseText(*line.RawDescription),
			LineTotal:      *line.LineTotal,
			Qty:            line.Qty,
			Confidence:     line.Confidence,
		}
		if line.Unit != nil {
			if unit := strings.ToLower(normaliseValue(*line.Unit)); unit != "" {
				item.Unit = &unit
			}
		}
		parsed.Items = append(parsed.Items, item)
	}

	for _, warning := range *wire.Warnings {
		if warning = normaliseText(warning); warning != "" {
			parsed.Warnings = append(parsed.Warnings, warning)
		}
	}
	return parsed, nil
}

func normaliseValue(value string) string {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "", "n/a", "na", "none", "null":
		return ""
	default:
		return value
	}
}

func normaliseText(value string) string {
	value = normaliseValue(value)
	if value == "" {
		return ""
	}
	return strings.Join(strings.Fields(value), " ")
}
