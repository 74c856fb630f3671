// Package invoice defines the invoice parsing provider contract and its
// implementations. Providers return draft line items; nothing here touches the
// catalog.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultFileName is used when a caller does not name the uploaded invoice.
const DefaultFileName = "factura.jpg"

// ParsedLine is one invoice line as read by a provider. Qty, Unit and
// Confidence are optional and stay nil when the provider could not read them.
type ParsedLine struct {
	RawDescription string   `json:"raw_description"`
	LineTotal      float64  `json:"line_total"`
	Qty            *float64 `json:"qty,omitempty"`
	Unit           *string  `json:"unit,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
}

// Response is the validated provider output.
type Response struct {
	Items         []ParsedLine `json:"items"`
	Confidence    float64      `json:"confidence"`
	LowConfidence bool         `json:"low_confidence"`
	Warnings      []string     `json:"warnings"`
}

// Input is the normalized request handed to a provider. ImageData holds the
// raw uploaded bytes; Text carries document text extracted from PDFs.
type Input struct {
	FileName  string
	ImageData []byte
	MIMEType  string
	Text      string
}

// Parser turns an uploaded invoice into draft line items.
type Parser interface {
	Parse(ctx context.Context, input Input) (Response, error)
}

// ErrInvalidResponse reports provider output that does not match the schema.
var ErrInvalidResponse = errors.New("invalid invoice parse response")

// Validate checks the numeric fields of the response and replaces nil slices
// with empty ones so the JSON shape is stable.
func (r *Response) Validate() error {
	if r.Items == nil {
		r.Items = []ParsedLine{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	if !unitInterval(r.Confidence) {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidResponse, r.Confidence)
	}
	for idx, item := range r.Items {
		if math.IsNaN(item.LineTotal) || math.IsInf(item.LineTotal, 0) {
			return fmt.Errorf("%w: item %d line_total is not finite", ErrInvalidResponse, idx+1)
		}
		if item.Qty != nil && (math.IsNaN(*item.Qty) || math.IsInf(*item.Qty, 0)) {
			return fmt.Errorf("%w: item %d qty is not finite", ErrInvalidResponse, idx+1)
		}
		if item.Confidence != nil && !unitInterval(*item.Confidence) {
			return fmt.Errorf("%w: item %d confidence %v outside [0,1]", ErrInvalidResponse, idx+1, *item.Confidence)
		}
	}
	return nil
}

// FileNameOrDefault trims name and falls back to DefaultFileName.
func FileNameOrDefault(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return DefaultFileName
}

func unitInterval(value float64) bool {
	return !math.IsNaN(value) && value >= 0 && value <= 1
}

func float64Ptr(value float64) *float64 {
	return &value
}

func stringPtr(value string) *string {
	return &value
}
