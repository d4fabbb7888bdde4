package intake

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/fadilmartias/cv-builder/internal/apperror"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes line endings and whitespace while keeping line
// structure, which the regex extractor relies on.
func CleanText(content string) string {
	if content == "" {
		return ""
	}
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "")
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, " ", " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}
	out := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

// HTMLText flattens an HTML document into text, dropping page chrome.
func HTMLText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("nav, footer, header, script, style, noscript, iframe, svg").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr, section, article").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	root := doc.Find("main, article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	if root.Length() == 0 {
		root = doc.Selection
	}
	return CleanText(root.Text()), nil
}

// Document is an accepted upload converted to text. Raw keeps the original
// bytes so a model that reads PDFs natively can receive them.
type Document struct {
	Kind     Kind
	Filename string
	Text     string
	Raw      []byte
}

// Reader converts accepted uploads into text.
type Reader struct {
	pdf PDFTextExtractor
}

func NewReader(pdf PDFTextExtractor) *Reader {
	if pdf == nil {
		pdf = NewFitzExtractor(true)
	}
	return &Reader{pdf: pdf}
}

// Read loads u and returns its text. kind must come from one of the Check
// functions.
func (r *Reader) Read(ctx context.Context, u Upload, kind Kind) (*Document, error) {
	data, err := readAll(u)
	if err != nil {
		return nil, err
	}
	doc := &Document{Kind: kind, Filename: u.Filename, Raw: data}

	switch kind {
	case KindTXT:
		doc.Text = CleanText(string(data))
	case KindHTML:
		text, err := HTMLText(string(data))
		if err != nil {
			return nil, apperror.Wrap(apperror.CodeInvalidInput, "Failed to parse HTML file", err)
		}
		doc.Text = text
	case KindPDF:
		text, err := r.pdf.ExtractText(ctx, data)
		if err != nil {
			return nil, apperror.Wrap(apperror.CodeInvalidInput, "Failed to read PDF file", err)
		}
		doc.Text = CleanText(text)
	default:
		return nil, apperror.New(apperror.CodeInvalidInput, "Unsupported file type")
	}

	if doc.Text == "" && kind != KindPDF {
		return nil, apperror.New(apperror.CodeInvalidInput, "File contains no readable text")
	}
	return doc, nil
}
