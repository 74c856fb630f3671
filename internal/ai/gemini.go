package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig describes how the Gemini client should be initialised.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiClient reads invoices with the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiClient builds a GeminiClient backed by the Gemini developer API.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("ai: gemini api key must not be empty")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model, timeout: timeout}, nil
}

// Model returns the model the client sends requests to.
func (c *GeminiClient) Model() string {
	return c.model
}

// ExtractInvoice sends the invoice to Gemini with a JSON response schema.
func (c *GeminiClient) ExtractInvoice(ctx context.Context, input InvoiceInput) (InvoiceExtraction, error) {
	if err := input.validate(); err != nil {
		return InvoiceExtraction{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parts := []*genai.Part{genai.NewPartFromText(buildInvoicePrompt(input))}
	if len(input.ImageData) > 0 {
		parts = append(parts, genai.NewPartFromBytes(input.ImageData, input.mimeType()))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](defaultTemperature),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    invoiceGeminiSchema(),
		},
	)
	if err != nil {
		return InvoiceExtraction{}, fmt.Errorf("ai: call gemini: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return InvoiceExtraction{}, errors.New("ai: empty response from provider")
	}
	return decodeExtraction(text)
}

func invoiceGeminiSchema() *genai.Schema {
	nullable := func(kind genai.Type) *genai.Schema {
		return &genai.Schema{Type: kind, Nullable: genai.Ptr(true)}
	}
	return &genai.Schema{
		Type:     genai.TypeObject,
		Required: []string{"items", "confidence", "low_confidence", "warnings"},
		Properties: map[string]*genai.Schema{
			"items": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type:     genai.TypeObject,
					Required: []string{"raw_description", "line_total", "qty", "unit", "confidence"},
					Properties: map[string]*genai.Schema{
						"raw_description": {Type: genai.TypeString},
						"line_total":      {Type: genai.TypeNumber},
						"qty":             nullable(genai.TypeNumber),
						"unit":            nullable(genai.TypeString),
						"confidence":      nullable(genai.TypeNumber),
					},
				},
			},
			"confidence":     {Type: genai.TypeNumber},
			"low_confidence": {Type: genai.TypeBoolean},
			"warnings": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
	}
}
