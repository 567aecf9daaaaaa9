package services

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github/itish2003/docsearch/models"
)

// SetPDFLicense registers the UniPDF metered key. Without a key PDF
// processing fails at extraction time, so a bad key is logged rather than
// stopping the process.
func SetPDFLicense(key string) {
	if key == "" {
		log.Println("WARN: UNIDOC_LICENSE_KEY not set, PDF extraction may fail.")
		return
	}
	if err := license.SetMeteredKey(key); err != nil {
		log.Printf("ERROR: Failed to set Unidoc license key: %v. PDF processing will fail.", err)
	}
}

// Extractor turns PDF bytes into plain text.
type Extractor interface {
	Extract(r io.ReadSeeker) (string, error)
}

// PDFExtractor uses UniPDF to get the text of every page, concatenated in
// page order.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract reads the whole document from r. Any failure is wrapped in
// models.ErrExtraction.
func (PDFExtractor) Extract(r io.ReadSeeker) (string, error) {
	text, err := extractTextFromPDF(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrExtraction, err)
	}
	return text, nil
}

// ExtractFile opens path and extracts its text.
func ExtractFile(e Extractor, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrExtraction, err)
	}
	defer f.Close()
	return e.Extract(f)
}

// ExtractBytes extracts text from an in-memory PDF.
func ExtractBytes(e Extractor, data []byte) (string, error) {
	return e.Extract(bytes.NewReader(data))
}

func extractTextFromPDF(r io.ReadSeeker) (string, error) {
	pdfReader, err := model.NewPdfReader(r)
	if err != nil {
		return "", err
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(text)
	}

	return sb.String(), nil
}
