package service

import (
	"context"
	"strings"
)

// Attachment is a binary input sent alongside a prompt, e.g. the original PDF.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// AIClient asks a language model for a JSON document.
type AIClient interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, attachments ...Attachment) (string, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CleanJSONBlock strips markdown fences and any prose around the outermost
// JSON object in a model reply.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
