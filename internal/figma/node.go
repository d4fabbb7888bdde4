package figma

import (
	"context"
	"fmt"
	"math"
	"strings"
)

type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Hex renders the color as #rrggbb, ignoring alpha.
func (c Color) Hex() string {
	to := func(v float64) int { return int(math.Round(math.Max(0, math.Min(1, v)) * 255)) }
	return fmt.Sprintf("#%02x%02x%02x", to(c.R), to(c.G), to(c.B))
}

type Paint struct {
	Type    string `json:"type"`
	Visible bool   `json:"visible"`
	Color   *Color `json:"color,omitempty"`
}

type TypeStyle struct {
	FontFamily   string  `json:"fontFamily,omitempty"`
	FontWeight   float64 `json:"fontWeight,omitempty"`
	FontSize     float64 `json:"fontSize,omitempty"`
	LineHeightPx float64 `json:"lineHeightPx,omitempty"`
}

// Node is the subset of a Figma document node the adapter reads.
type Node struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Characters string     `json:"characters,omitempty"`
	Fills      []Paint    `json:"fills,omitempty"`
	Style      *TypeStyle `json:"style,omitempty"`
	Children   []*Node    `json:"children,omitempty"`
}

func (n *Node) IsText() bool { return n.Type == "TEXT" }

// Walk visits n and its descendants depth first.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

type File struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	LastModified string `json:"lastModified,omitempty"`
	Version      string `json:"version,omitempty"`
	Document     *Node  `json:"-"`
}

// Source reads design data. The REST client and the mock both implement it.
type Source interface {
	GetFile(ctx context.Context, fileKey string) (*File, error)
	GetNodes(ctx context.Context, fileKey string, ids []string) ([]*Node, error)
	Check(ctx context.Context) error
	Name() string
}

func slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(sb.String(), "-")
}
