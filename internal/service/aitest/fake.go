// Package aitest provides scripted AI clients for tests.
package aitest

import (
	"context"
	"strings"
	"sync"

	"github.com/fadilmartias/cv-builder/internal/service"
)

// Reply is one scripted answer. Match selects it by prompt substring; an
// empty Match matches anything.
type Reply struct {
	Match string
	Text  string
	Err   error
}

// FakeClient answers GenerateJSON from a list of scripted replies and
// records every prompt it saw.
type FakeClient struct {
	Replies []Reply
	// Block makes calls wait for ctx cancellation, for timeout tests.
	Block bool

	mu      sync.Mutex
	Prompts []string
	Attach  [][]service.Attachment
}

func (f *FakeClient) Name() string { return "fake" }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, attachments ...service.Attachment) (string, error) {
	f.mu.Lock()
	f.Prompts = append(f.Prompts, prompt)
	f.Attach = append(f.Attach, attachments)
	f.mu.Unlock()

	if f.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	for _, r := range f.Replies {
		if r.Match == "" || strings.Contains(prompt, r.Match) {
			return r.Text, r.Err
		}
	}
	return "", service.ErrEmptyResponse
}

func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Prompts)
}

// FakeEmbedder returns a fixed vector or error.
type FakeEmbedder struct {
	Vector []float32
	Err    error

	mu    sync.Mutex
	Texts []string
}

func (f *FakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.Texts = append(f.Texts, text)
	f.mu.Unlock()
	return f.Vector, f.Err
}
