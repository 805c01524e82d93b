package monitor

import "strings"

// maxCategoryLen separates a tag line from a headline line.
const maxCategoryLen = 29

var knownCategories = map[string]string{
	"result":       "Result",
	"results":      "Result",
	"earning":      "Earnings",
	"earnings":     "Earnings",
	"equity":       "Equity",
	"block deal":   "Block Deals",
	"block deals":  "Block Deals",
	"commentary":   "Commentary",
	"global":       "Global",
	"fixed income": "Fixed Income",
	"commodities":  "Commodities",
	"commodity":    "Commodities",
	"economy":      "Economy",
	"ipo":          "IPO",
}

// NormalizeCategory maps the tag line printed under a headline's timestamp to
// a stable label. Known tags get their canonical spelling; other short lines
// are kept trimmed; anything that looks like a headline or a timestamp is not
// a tag and yields "".
func NormalizeCategory(v string) string {
	s := strings.Join(strings.Fields(v), " ")
	if s == "" || len(s) > maxCategoryLen || IsDisplayTimestamp(s) {
		return ""
	}
	if c, ok := knownCategories[strings.ToLower(s)]; ok {
		return c
	}
	return s
}

// IsResultsCategory reports whether a tag marks a results or earnings item.
func IsResultsCategory(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "result", "results", "earning", "earnings":
		return true
	default:
		return false
	}
}
