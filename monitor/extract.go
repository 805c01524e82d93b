package monitor

import "strings"

// ExtractOptions bounds what counts as a headline line.
type ExtractOptions struct {
	MinLen int
	MaxLen int
}

func (o ExtractOptions) withDefaults() ExtractOptions {
	if o.MinLen <= 0 {
		o.MinLen = 30
	}
	if o.MaxLen <= 0 {
		o.MaxLen = 1500
	}
	return o
}

// Page chrome that can sit directly above a timestamp.
var skipExact = map[string]struct{}{
	"live news": {}, "all": {}, "results": {}, "block deals": {}, "equity": {},
	"commentary": {}, "global": {}, "fixed income": {}, "commodities": {},
	"solutions": {}, "markets": {}, "tools & resources": {}, "support": {},
	"login / sign up": {}, "search": {}, "0 updates": {},
}

var skipContains = []string{
	"sign up", "get started", "why nuvama", "support center", "helpdesk",
	"feedback", "visit", "locate", "healthy financial", "customer", "trader",
	"menu", "investor charter", "dispute resolution", "issue with our website",
	"issue is not resolved", "join ", "million customers", "empowering our clients",
	"dedicated to empowering", "mon-fri", "all rights reserved", "sebi scores",
	"broking services offered by", "registered office", "corporate office",
	"financial products distribution", "most important terms",
	"prevent unauthorized", "switch to old website", "clicking the button below",
}

// ExtractHeadlines scans the visible text of the live-news page, one entry
// per line, and returns the headlines in page order (newest first). A line is
// a headline when the next line is a display timestamp; the line after the
// timestamp is taken as the category tag when it looks like one.
func ExtractHeadlines(lines []string, opts ExtractOptions) []RawHeadline {
	opts = opts.withDefaults()
	var out []RawHeadline
	for i := 0; i+1 < len(lines); i++ {
		text := strings.TrimSpace(lines[i])
		ts := strings.TrimSpace(lines[i+1])
		if !IsDisplayTimestamp(ts) || !isHeadlineLine(text, opts) {
			continue
		}
		h := RawHeadline{Text: text, Timestamp: ts}
		i++
		if i+1 < len(lines) {
			if c := NormalizeCategory(lines[i+1]); c != "" {
				h.Category = c
				i++
			}
		}
		out = append(out, h)
	}
	return out
}

func isHeadlineLine(s string, opts ExtractOptions) bool {
	n := len([]rune(s))
	if n < opts.MinLen || n > opts.MaxLen {
		return false
	}
	lower := strings.ToLower(s)
	if _, ok := skipExact[lower]; ok {
		return false
	}
	for _, p := range skipContains {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}
