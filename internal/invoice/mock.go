package invoice

import (
	"context"
	"strings"
)

// LowQualityWarning is returned by MockParser for low quality images.
const LowQualityWarning = "Low image quality. Upload a clearer photo of the invoice before saving."

var lowQualityMarkers = []string{"blurry", "blur", "ilegible", "oscura"}

// MockParser returns fixed responses keyed on the file name. It never fails.
type MockParser struct{}

// NewMockParser returns the deterministic parser used in development.
func NewMockParser() *MockParser {
	return &MockParser{}
}

// Parse returns a low-confidence two-line response when the file name suggests
// a poor image and a three-line high-confidence response otherwise.
func (MockParser) Parse(_ context.Context, input Input) (Response, error) {
	name := strings.ToLower(FileNameOrDefault(input.FileName))
	for _, marker := range lowQualityMarkers {
		if strings.Contains(name, marker) {
			return lowConfidenceResponse(), nil
		}
	}
	return highConfidenceResponse(), nil
}

func lowConfidenceResponse() Response {
	return Response{
		Items: []ParsedLine{
			{RawDescription: "Harina (lectura parcial)", LineTotal: 14.5, Confidence: float64Ptr(0.48)},
			{RawDescription: "Leche (texto incompleto)", LineTotal: 8.9, Confidence: float64Ptr(0.41)},
		},
		Confidence:    0.44,
		LowConfidence: true,
		Warnings:      []string{LowQualityWarning},
	}
}

func highConfidenceResponse() Response {
	return Response{
		Items: []ParsedLine{
			{RawDescription: "Harina 000 x 1kg", LineTotal: 14.5, Qty: float64Ptr(1), Unit: stringPtr("kg"), Confidence: float64Ptr(0.94)},
			{RawDescription: "Azucar x 1kg", LineTotal: 13.2, Qty: float64Ptr(1), Unit: stringPtr("kg"), Confidence: float64Ptr(0.92)},
			{RawDescription: "Leche entera x 1L", LineTotal: 8.9, Qty: float64Ptr(1), Unit: stringPtr("l"), Confidence: float64Ptr(0.9)},
		},
		Confidence:    0.9,
		LowConfidence: false,
		Warnings:      []string{},
	}
}
