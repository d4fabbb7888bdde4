package schema

import "sort"

// Colors maps CSS custom-property names to color values.
type Colors map[string]string

const (
	ColorPrimary    = "--primary-color"
	ColorSecondary  = "--secondary-color"
	ColorAccent     = "--accent-color"
	ColorText       = "--text-color"
	ColorBackground = "--background-color"
	ColorHeading    = "--heading-color"
)

var defaultColors = map[string]string{
	ColorPrimary:    "#1f2937",
	ColorSecondary:  "#4b5563",
	ColorAccent:     "#2563eb",
	ColorText:       "#111827",
	ColorBackground: "#ffffff",
	ColorHeading:    "#0f172a",
}

// ColorKeys lists the allowed property names in a stable order.
func ColorKeys() []string {
	keys := make([]string, 0, len(defaultColors))
	for k := range defaultColors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func IsColorKey(key string) bool {
	_, ok := defaultColors[key]
	return ok
}

// Resolve fills absent or blank keys with system defaults.
func (c Colors) Resolve() map[string]string {
	out := make(map[string]string, len(defaultColors))
	for k, v := range defaultColors {
		out[k] = v
	}
	for k, v := range c {
		if IsColorKey(k) && v != "" {
			out[k] = v
		}
	}
	return out
}
