package figma

import (
	"context"
	"fmt"
)

// MockSource serves a fixed single-page resume design. It is used when no
// Figma token is configured so the flow still works end to end.
type MockSource struct{}

func NewMockSource() *MockSource { return &MockSource{} }

func (MockSource) Name() string                { return "mock" }
func (MockSource) Check(context.Context) error { return nil }

func (MockSource) GetFile(_ context.Context, fileKey string) (*File, error) {
	return &File{
		Key:          fileKey,
		Name:         "Resume Template",
		LastModified: "2024-01-01T00:00:00Z",
		Version:      "1",
		Document:     mockDocument(),
	}, nil
}

func (MockSource) GetNodes(_ context.Context, _ string, ids []string) ([]*Node, error) {
	doc := mockDocument()
	index := map[string]*Node{}
	doc.Walk(func(n *Node) { index[n.ID] = n })

	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		n, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("node %s not found in mock design", id)
		}
		out = append(out, n)
	}
	return out, nil
}

func solid(r, g, b float64) []Paint {
	return []Paint{{Type: "SOLID", Visible: true, Color: &Color{R: r, G: g, B: b, A: 1}}}
}

func text(id, name, chars string, size, weight float64, fill []Paint) *Node {
	return &Node{
		ID:         id,
		Name:       name,
		Type:       "TEXT",
		Characters: chars,
		Fills:      fill,
		Style:      &TypeStyle{FontFamily: "Inter", FontSize: size, FontWeight: weight, LineHeightPx: size * 1.4},
	}
}

func mockDocument() *Node {
	dark := solid(0.07, 0.09, 0.15)
	muted := solid(0.29, 0.33, 0.39)
	accent := solid(0.15, 0.39, 0.92)
	return &Node{
		ID:   "0:0",
		Name: "Document",
		Type: "DOCUMENT",
		Children: []*Node{{
			ID:   "0:1",
			Name: "Page 1",
			Type: "CANVAS",
			Children: []*Node{{
				ID:    "1:2",
				Name:  "Resume",
				Type:  "FRAME",
				Fills: solid(1, 1, 1),
				Children: []*Node{
					{ID: "1:3", Name: "Header", Type: "FRAME", Fills: accent, Children: []*Node{
						text("1:4", "Full Name", "Your Name", 32, 700, dark),
						text("1:5", "Job Title", "Product Designer", 18, 500, muted),
						text("1:6", "Email", "hello@example.com", 12, 400, muted),
						text("1:7", "Phone", "+1 000 000 0000", 12, 400, muted),
						text("1:8", "Location", "City, Country", 12, 400, muted),
					}},
					text("1:9", "Section Heading", "About", 16, 700, accent),
					text("1:10", "Summary", "A short paragraph about you.", 12, 400, dark),
					text("1:11", "Experience List", "Company, 2020-2024", 12, 400, dark),
					text("1:12", "Education", "Degree, University", 12, 400, dark),
					text("1:13", "Skills", "Skill one, Skill two", 12, 400, dark),
					text("1:14", "Footer Note", "Made with Figma", 10, 400, muted),
				},
			}},
		}},
	}
}
