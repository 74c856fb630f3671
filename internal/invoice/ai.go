package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"subrecetas/internal/ai"
	applog "subrecetas/internal/log"
)

// Extractor is the model transport used by AIParser. Both ai.Client and
// ai.GeminiClient satisfy it.
type Extractor interface {
	ExtractInvoice(ctx context.Context, input ai.InvoiceInput) (ai.InvoiceExtraction, error)
}

// AIParser reads invoices through a hosted model and validates the answer
// before returning it.
type AIParser struct {
	extractor Extractor
	name      string
}

// NewAIParser wraps an extractor. name is only used in logs.
func NewAIParser(extractor Extractor, name string) *AIParser {
	return &AIParser{extractor: extractor, name: name}
}

// Parse requires an image or extracted document text.
func (p *AIParser) Parse(ctx context.Context, input Input) (Response, error) {
	if len(input.ImageData) == 0 && strings.TrimSpace(input.Text) == "" {
		return Response{}, errors.New("an invoice image or document is required")
	}

	fileName := FileNameOrDefault(input.FileName)
	extraction, err := p.extractor.ExtractInvoice(ctx, ai.InvoiceInput{
		FileName:  fileName,
		ImageData: input.ImageData,
		MIMEType:  input.MIMEType,
		Text:      input.Text,
	})
	if errors.Is(err, ai.ErrInvalidPayload) {
		return Response{}, fmt.Errorf("%w: %s parse %s: %w", ErrInvalidResponse, p.name, fileName, err)
	}
	if err != nil {
		return Response{}, fmt.Errorf("%s parse %s: %w", p.name, fileName, err)
	}

	resp := Response{
		Items:         make([]ParsedLine, 0, len(extraction.Items)),
		Confidence:    extraction.Confidence,
		LowConfidence: extraction.LowConfidence,
		Warnings:      extraction.Warnings,
	}
	for _, item := range extraction.Items {
		resp.Items = append(resp.Items, ParsedLine{
			RawDescription: item.RawDescription,
			LineTotal:      item.LineTotal,
			Qty:            item.Qty,
			Unit:           item.Unit,
			Confidence:     item.Confidence,
		})
	}
	if err := resp.Validate(); err != nil {
		return Response{}, err
	}

	applog.Debug(ctx, "invoice parsed", "provider", p.name, "file", fileName, "items", len(resp.Items), "confidence", resp.Confidence)
	return resp, nil
}
