package figma

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fadilmartias/cv-builder/internal/schema"
)

type NodeStyle struct {
	Color      string  `json:"color,omitempty"`
	Background string  `json:"background,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontWeight float64 `json:"fontWeight,omitempty"`
	LineHeight float64 `json:"lineHeight,omitempty"`
}

type Styles struct {
	Palette []string             `json:"palette"`
	Fonts   []string             `json:"fonts"`
	Colors  map[string]string    `json:"colors"`
	Nodes   map[string]NodeStyle `json:"-"`
}

var cssColor = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,20}|(rgb|rgba|hsl|hsla)\([0-9.,%\s]+\))$`)

func firstSolid(fills []Paint) string {
	for _, p := range fills {
		if p.Visible && p.Type == "SOLID" && p.Color != nil {
			return p.Color.Hex()
		}
	}
	return ""
}

// ExtractStyles collects fills and text styles and derives the resume color
// variables. colorScheme entries override derived colors; invalid entries are
// skipped and reported as warnings.
func ExtractStyles(roots []*Node, colorScheme map[string]string) (Styles, []string) {
	st := Styles{Colors: map[string]string{}, Nodes: map[string]NodeStyle{}}
	seenColor, seenFont := map[string]bool{}, map[string]bool{}
	textFreq := map[string]int{}
	var (
		background, frameAccent, heading string
		headingSize                      float64
	)

	for _, root := range roots {
		root.Walk(func(n *Node) {
			fill := firstSolid(n.Fills)
			if fill != "" && !seenColor[fill] {
				seenColor[fill] = true
				st.Palette = append(st.Palette, fill)
			}

			ns := NodeStyle{}
			if n.IsText() {
				ns.Color = fill
				if fill != "" {
					textFreq[fill]++
				}
				if n.Style != nil {
					ns.FontFamily = n.Style.FontFamily
					ns.FontSize = n.Style.FontSize
					ns.FontWeight = n.Style.FontWeight
					ns.LineHeight = n.Style.LineHeightPx
					if f := n.Style.FontFamily; f != "" && !seenFont[f] {
						seenFont[f] = true
						st.Fonts = append(st.Fonts, f)
					}
					if fill != "" && n.Style.FontSize > headingSize {
						headingSize, heading = n.Style.FontSize, fill
					}
				}
			} else if fill != "" {
				ns.Background = fill
				switch {
				case background == "":
					background = fill
				case frameAccent == "" && fill != background:
					frameAccent = fill
				}
			}
			if ns != (NodeStyle{}) {
				st.Nodes[n.ID] = ns
			}
		})
	}

	byFreq := make([]string, 0, len(textFreq))
	for c := range textFreq {
		byFreq = append(byFreq, c)
	}
	sort.SliceStable(byFreq, func(a, b int) bool {
		if textFreq[byFreq[a]] != textFreq[byFreq[b]] {
			return textFreq[byFreq[a]] > textFreq[byFreq[b]]
		}
		return byFreq[a] < byFreq[b]
	})

	derived := schema.Colors{}
	set := func(key, value string) {
		if value != "" {
			derived[key] = value
		}
	}
	set(schema.ColorBackground, background)
	set(schema.ColorHeading, heading)
	set(schema.ColorAccent, frameAccent)
	set(schema.ColorPrimary, frameAccent)
	if len(byFreq) > 0 {
		set(schema.ColorText, byFreq[0])
	}
	if len(byFreq) > 1 {
		set(schema.ColorSecondary, byFreq[1])
	}

	var warnings []string
	for key, value := range colorScheme {
		name := colorVar(key)
		if name == "" {
			warnings = append(warnings, "colorScheme: unknown color "+key)
			continue
		}
		value = strings.TrimSpace(value)
		if !cssColor.MatchString(value) {
			warnings = append(warnings, "colorScheme: invalid value for "+key)
			continue
		}
		derived[name] = value
	}
	sort.Strings(warnings)

	st.Colors = derived.Resolve()
	return st, warnings
}

// colorVar accepts "primary", "primary-color" or "--primary-color".
func colorVar(key string) string {
	k := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(key)), "--")
	k = strings.TrimSuffix(k, "-color")
	name := "--" + k + "-color"
	if schema.IsColorKey(name) {
		return name
	}
	return ""
}
