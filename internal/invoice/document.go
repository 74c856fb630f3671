package invoice

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/crypto/blake2b"
)

// ErrUnsupportedDocument is returned for uploads that are neither images,
// PDFs nor plain text.
var ErrUnsupportedDocument = errors.New("unsupported invoice document")

// NewUploadInput classifies uploaded bytes into parser input. PDFs are reduced
// to their text, images are passed through and plain text is kept as text.
func NewUploadInput(fileName string, data []byte, mimeType string) (Input, error) {
	fileName = FileNameOrDefault(fileName)
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = MIMETypeFromName(fileName)
	}
	if mimeType == "application/octet-stream" && len(data) > 0 {
		mimeType = http.DetectContentType(data)
	}

	input := Input{FileName: fileName, MIMEType: mimeType}
	switch {
	case strings.Contains(mimeType, "pdf"):
		text, err := ExtractPDFText(data)
		if err != nil {
			return Input{}, err
		}
		input.Text = text
	case strings.HasPrefix(mimeType, "image/"):
		input.ImageData = data
	case strings.HasPrefix(mimeType, "text/"):
		input.Text = string(data)
	default:
		return Input{}, fmt.Errorf("%w: %s", ErrUnsupportedDocument, mimeType)
	}
	return input, nil
}

// ExtractPDFText returns the plain text of every page of a PDF document.
func ExtractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return strings.TrimSpace(builder.String()), nil
}

// MIMETypeFromName guesses a content type from the file extension.
func MIMETypeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}

// Fingerprint identifies an uploaded invoice by the blake2b-256 digest of its
// bytes, hex encoded.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FingerprintKey is the meta store key under which a committed invoice is recorded.
func FingerprintKey(fingerprint string) string {
	return "invoice:" + fingerprint
}
