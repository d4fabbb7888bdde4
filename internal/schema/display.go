package schema

// SummaryDisplayLimit bounds the summary shown by renderers. Stored data is
// never truncated.
const SummaryDisplayLimit = 1000

func TruncateSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= SummaryDisplayLimit {
		return s
	}
	return string(runes[:SummaryDisplayLimit]) + "…"
}
