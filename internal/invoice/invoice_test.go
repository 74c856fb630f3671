package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"subrecetas/internal/ai"
	"subrecetas/internal/config"
)

func TestMockParserLowConfidenceMarkers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fileName string
		low      bool
	}{
		{"factura-blurry.jpg", true},
		{"FOTO_BLUR.png", true},
		{"ticket ilegible.jpeg", true},
		{"Factura-Oscura.webp", true},
		{"factura.jpg", false},
		{"", false},
	}

	parser := NewMockParser()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.fileName, func(t *testing.T) {
			t.Parallel()
			resp, err := parser.Parse(context.Background(), Input{FileName: tt.fileName})
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if resp.LowConfidence != tt.low {
				t.Fatalf("LowConfidence = %t, want %t", resp.LowConfidence, tt.low)
			}
			if err := resp.Validate(); err != nil {
				t.Fatalf("mock response failed validation: %v", err)
			}
			if tt.low {
				if len(resp.Items) != 2 {
					t.Fatalf("expected 2 low confidence items, got %d", len(resp.Items))
				}
				if len(resp.Warnings) == 0 || !strings.Contains(strings.ToLower(resp.Warnings[0]), "image quality") {
					t.Fatalf("expected image quality warning, got %#v", resp.Warnings)
				}
				if resp.Items[0].Qty != nil || resp.Items[0].Unit != nil {
					t.Fatalf("expected low confidence items without qty/unit")
				}
				return
			}
			if len(resp.Items) != 3 || resp.Confidence != 0.9 || len(resp.Warnings) != 0 {
				t.Fatalf("unexpected high confidence response %+v", resp)
			}
		})
	}
}

func TestResponseJSONOmitsAbsentFields(t *testing.T) {
	t.Parallel()

	resp, _ := NewMockParser().Parse(context.Background(), Input{FileName: "blurry.jpg"})
	data, err := json.Marshal(resp.Items[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "qty") || strings.Contains(string(data), "unit") {
		t.Fatalf("expected qty and unit to be omitted, got %s", data)
	}
}

func TestResponseValidate(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	over := 1.2
	tests := []struct {
		name string
		resp Response
		ok   bool
	}{
		{name: "empty normalizes", resp: Response{Confidence: 0.5}, ok: true},
		{name: "confidence above one", resp: Response{Confidence: 1.5}},
		{name: "negative confidence", resp: Response{Confidence: -0.1}},
		{name: "infinite total", resp: Response{Items: []ParsedLine{{RawDescription: "x", LineTotal: math.Inf(1)}}}},
		{name: "nan qty", resp: Response{Items: []ParsedLine{{RawDescription: "x", LineTotal: 1, Qty: &nan}}}},
		{name: "item confidence above one", resp: Response{Items: []ParsedLine{{RawDescription: "x", LineTotal: 1, Confidence: &over}}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.resp.Validate()
			if tt.ok {
				if err != nil {
					t.Fatalf("Validate returned error: %v", err)
				}
				if tt.resp.Items == nil || tt.resp.Warnings == nil {
					t.Fatalf("expected nil slices to be normalized")
				}
				return
			}
			if !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("Validate error = %v, want ErrInvalidResponse", err)
			}
		})
	}
}

type fakeExtractor struct {
	got  ai.InvoiceInput
	resp ai.InvoiceExtraction
	err  error
}

func (f *fakeExtractor) ExtractInvoice(_ context.Context, input ai.InvoiceInput) (ai.InvoiceExtraction, error) {
	f.got = input
	return f.resp, f.err
}

func TestAIParser(t *testing.T) {
	t.Parallel()

	qty := 2.0
	unit := "kg"
	extractor := &fakeExtractor{resp: ai.InvoiceExtraction{
		Items: []ai.ExtractedLine{
			{RawDescription: "Azucar x 2kg", LineTotal: 26.4, Qty: &qty, Unit: &unit},
			{RawDescription: "Flete", LineTotal: 5},
		},
		Confidence: 0.8,
	}}
	parser := NewAIParser(extractor, "fake")

	if _, err := parser.Parse(context.Background(), Input{FileName: "x.jpg"}); err == nil {
		t.Fatalf("expected error without image or text")
	}

	resp, err := parser.Parse(context.Background(), Input{ImageData: []byte{1, 2, 3}, MIMEType: "image/jpeg"})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if extractor.got.FileName != DefaultFileName {
		t.Fatalf("FileName = %q, want default", extractor.got.FileName)
	}
	if len(resp.Items) != 2 || *resp.Items[0].Qty != 2 || resp.Items[1].Unit != nil {
		t.Fatalf("unexpected items %+v", resp.Items)
	}
	if resp.Warnings == nil {
		t.Fatalf("expected warnings to be normalized to an empty slice")
	}

	extractor.resp.Confidence = 3
	if _, err := parser.Parse(context.Background(), Input{Text: "Azucar"}); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}

	extractor.err = errors.New("upstream down")
	_, err = parser.Parse(context.Background(), Input{Text: "Azucar"})
	if err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("expected wrapped extractor error, got %v", err)
	}
	if errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("transport failure reported as invalid response")
	}

	extractor.err = fmt.Errorf("%w: warnings is required", ai.ErrInvalidPayload)
	_, err = parser.Parse(context.Background(), Input{Text: "Azucar"})
	if !errors.Is(err, ErrInvalidResponse) || !errors.Is(err, ai.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidResponse for schema mismatch, got %v", err)
	}
}

func TestNewUploadInput(t *testing.T) {
	t.Parallel()

	image, err := NewUploadInput("factura.png", []byte("\x89PNG\r\n\x1a\n"), "")
	if err != nil {
		t.Fatalf("NewUploadInput(image) returned error: %v", err)
	}
	if image.MIMEType != "image/png" || len(image.ImageData) == 0 || image.Text != "" {
		t.Fatalf("unexpected image input %+v", image)
	}

	text, err := NewUploadInput("factura.txt", []byte("Harina 000 14.50"), "text/plain; charset=utf-8")
	if err != nil {
		t.Fatalf("NewUploadInput(text) returned error: %v", err)
	}
	if text.Text != "Harina 000 14.50" {
		t.Fatalf("Text = %q", text.Text)
	}

	if _, err := NewUploadInput("factura.pdf", []byte("not a pdf"), "application/pdf"); err == nil {
		t.Fatalf("expected error for corrupt pdf")
	}

	if _, err := NewUploadInput("factura.zip", []byte("PK\x03\x04"), "application/zip"); !errors.Is(err, ErrUnsupportedDocument) {
		t.Fatalf("expected ErrUnsupportedDocument, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	const emptyDigest = "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"
	if got := Fingerprint(nil); got != emptyDigest {
		t.Fatalf("Fingerprint(nil) = %s", got)
	}
	if Fingerprint([]byte("a")) == Fingerprint([]byte("b")) {
		t.Fatalf("expected distinct fingerprints")
	}
	if got := FingerprintKey("abc"); got != "invoice:abc" {
		t.Fatalf("FingerprintKey = %q", got)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	t.Parallel()

	parser, err := New(context.Background(), config.ParserConfig{Provider: config.ProviderMock})
	if err != nil {
		t.Fatalf("New(mock) returned error: %v", err)
	}
	if _, ok := parser.(*MockParser); !ok {
		t.Fatalf("expected *MockParser, got %T", parser)
	}

	parser, err = New(context.Background(), config.ParserConfig{Provider: config.ProviderOpenAI, OpenAIAPIKey: "sk-test"})
	if err != nil {
		t.Fatalf("New(openai) returned error: %v", err)
	}
	if _, ok := parser.(*AIParser); !ok {
		t.Fatalf("expected *AIParser, got %T", parser)
	}

	if _, err := New(context.Background(), config.ParserConfig{Provider: config.ProviderOpenAI}); err == nil {
		t.Fatalf("expected error without api key")
	}
	if _, err := New(context.Background(), config.ParserConfig{Provider: "ocr"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
