package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDFTextExtractor pulls text out of a PDF held in memory.
type PDFTextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

var ErrNoText = errors.New("no text extracted from PDF")

// FitzExtractor reads the text layer with MuPDF and, when that is empty and
// OCR is enabled, renders each page and runs tesseract on it.
type FitzExtractor struct {
	OCR bool
}

func NewFitzExtractor(ocr bool) *FitzExtractor {
	return &FitzExtractor{OCR: ocr}
}

func (f *FitzExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var text strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		page, err := doc.Text(n)
		if err != nil {
			log.Printf("page %d: text layer error: %v", n+1, err)
			continue
		}
		text.WriteString(page)
		text.WriteString("\n")
	}
	if strings.TrimSpace(text.String()) != "" {
		return text.String(), nil
	}
	if !f.OCR {
		return "", ErrNoText
	}

	log.Printf("PDF has no text layer, falling back to OCR (%d pages)", doc.NumPage())
	return ocrDocument(ctx, doc)
}

func ocrDocument(ctx context.Context, doc *fitz.Document) (string, error) {
	// Cek apakah tesseract terinstall
	if err := checkTesseract(ctx); err != nil {
		return "", fmt.Errorf("tesseract check failed: %w", err)
	}

	var fullText bytes.Buffer
	var lastErr error

	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		img, err := doc.Image(n)
		if err != nil {
			lastErr = fmt.Errorf("page %d: failed to extract image: %w", n+1, err)
			log.Println(lastErr)
			continue
		}

		pageText, err := ocrImage(ctx, img)
		if err != nil {
			lastErr = fmt.Errorf("page %d: %w", n+1, err)
			log.Println(lastErr)
			continue
		}
		if pageText != "" {
			fullText.WriteString(pageText)
			fullText.WriteString("\n\n")
		}
	}

	result := strings.TrimSpace(fullText.String())
	if result == "" {
		if lastErr != nil {
			return "", fmt.Errorf("failed to extract text via OCR: %w", lastErr)
		}
		return "", ErrNoText
	}
	log.Printf("OCR extracted %d chars", len(result))
	return result, nil
}

func ocrImage(ctx context.Context, img image.Image) (string, error) {
	tmpFile, err := os.CreateTemp("", "page-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	err = png.Encode(tmpFile, img)
	tmpFile.Close()
	if err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}

	out, err := exec.CommandContext(ctx, "tesseract", tmpPath, "stdout", "-l", "eng").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tesseract error: %w, output: %s", err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

func checkTesseract(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "tesseract", "-v").CombinedOutput()
	if err != nil {
		return fmt.Errorf("tesseract not found or not executable: %w\nOutput: %s", err, string(out))
	}
	return nil
}
